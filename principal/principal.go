// Package principal implements the identifiers carried by DIDL principal, func and service values.
package principal

import (
	"bytes"
	"encoding/base32"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/stewi1014/didl/encio"
)

// MaxLength is the longest principal that ParseText accepts.
const MaxLength = 29

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// ID is the raw bytes of a principal.
type ID []byte

// Anonymous is the principal of unauthenticated callers.
var Anonymous = ID{0x04}

// Management is the empty principal, addressing the management interface.
var Management = ID{}

// String returns the textual form of the principal;
// a CRC32 checksum followed by the bytes, base32 encoded in lowercase without padding,
// with a dash after every five characters.
func (id ID) String() string {
	data := make([]byte, 4+len(id))
	binary.BigEndian.PutUint32(data, crc32.ChecksumIEEE(id))
	copy(data[4:], id)

	enc := strings.ToLower(encoding.EncodeToString(data))

	var sb strings.Builder
	for i := 0; i < len(enc); i += 5 {
		if i > 0 {
			sb.WriteByte('-')
		}
		end := i + 5
		if end > len(enc) {
			end = len(enc)
		}
		sb.WriteString(enc[i:end])
	}
	return sb.String()
}

// Hex returns the upper case hex encoding of the principal's bytes.
func (id ID) Hex() string {
	return strings.ToUpper(hex.EncodeToString(id))
}

// Equal returns true if both principals have the same bytes.
func (id ID) Equal(other ID) bool {
	return bytes.Equal(id, other)
}

// ParseText parses the textual form of a principal.
// The checksum is verified, and the text must be in canonical form.
func ParseText(text string) (ID, error) {
	raw := strings.ToUpper(strings.ReplaceAll(text, "-", ""))
	data, err := encoding.DecodeString(raw)
	if err != nil {
		return nil, encio.NewError(encio.ErrMalformed, fmt.Sprintf("principal %q is not base32: %v", text, err), 0)
	}
	if len(data) < 4 {
		return nil, encio.NewError(encio.ErrMalformed, fmt.Sprintf("principal %q is too short", text), 0)
	}

	id := ID(data[4:])
	if len(id) > MaxLength {
		return nil, encio.NewError(encio.ErrMalformed, fmt.Sprintf("principal %q is longer than %v bytes", text, MaxLength), 0)
	}
	if binary.BigEndian.Uint32(data) != crc32.ChecksumIEEE(id) {
		return nil, encio.NewError(encio.ErrMalformed, fmt.Sprintf("principal %q has a bad checksum", text), 0)
	}
	if id.String() != text {
		return nil, encio.NewError(encio.ErrMalformed, fmt.Sprintf("principal %q is not in canonical form %q", text, id.String()), 0)
	}
	return id, nil
}
