package frame

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stewi1014/didl/encio"
)

// Tag identifies the compression of a frame's payload.
// The values are stored in frames; they must not change.
type Tag uint8

const (
	// None stores the message as is.
	None Tag = 0

	// LZ4 compresses with LZ4 block compression; fast, with a modest ratio.
	LZ4 Tag = 1

	// Zstd compresses with zstd at the default level.
	Zstd Tag = 2
)

// String implements fmt.Stringer
func (tag Tag) String() string {
	switch tag {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(tag))
	}
}

// ParseTag parses the name of a compression tag, as returned by String.
func ParseTag(name string) (Tag, error) {
	switch name {
	case "none", "":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return 0, encio.NewError(encio.ErrBadConfig, fmt.Sprintf("unknown compression %q", name), 0)
	}
}

// MarshalText implements encoding.TextMarshaler
func (tag Tag) MarshalText() ([]byte, error) {
	if tag > Zstd {
		return nil, encio.NewError(encio.ErrBadConfig, fmt.Sprintf("unknown compression tag %d", uint8(tag)), 0)
	}
	return []byte(tag.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (tag *Tag) UnmarshalText(text []byte) error {
	t, err := ParseTag(string(text))
	if err != nil {
		return err
	}
	*tag = t
	return nil
}

// errIncompressible is returned by compressors when the output is not smaller than the input.
var errIncompressible = errors.New("data is incompressible")

// zstd.Encoder and zstd.Decoder are safe for concurrent use of EncodeAll and DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("frame: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("frame: zstd decoder initialization failed: " + err.Error())
	}
}

func compress(data []byte, tag Tag) ([]byte, error) {
	switch tag {
	case None:
		return data, nil

	case LZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			return nil, encio.NewError(err, "lz4 compress", 0)
		}
		// CompressBlock gives 0 for incompressible data.
		if n == 0 || n >= len(data) {
			return nil, errIncompressible
		}
		return dst[:n], nil

	case Zstd:
		compressed := zstdEncoder.EncodeAll(data, nil)
		if len(compressed) >= len(data) {
			return nil, errIncompressible
		}
		return compressed, nil

	default:
		return nil, encio.NewError(encio.ErrBadConfig, fmt.Sprintf("unsupported compression tag %v", tag), 0)
	}
}

func decompress(payload []byte, tag Tag, size int) ([]byte, error) {
	switch tag {
	case None:
		if len(payload) != size {
			return nil, encio.NewError(encio.ErrMalformed, fmt.Sprintf("uncompressed payload is %v bytes, header says %v", len(payload), size), 0)
		}
		return payload, nil

	case LZ4:
		dst := make([]byte, size)
		n, err := lz4.UncompressBlock(payload, dst)
		if err != nil {
			return nil, encio.NewError(encio.ErrMalformed, "lz4 decompress: "+err.Error(), 0)
		}
		if n != size {
			return nil, encio.NewError(encio.ErrMalformed, fmt.Sprintf("lz4 decompressed %v bytes, header says %v", n, size), 0)
		}
		return dst, nil

	case Zstd:
		out, err := zstdDecoder.DecodeAll(payload, make([]byte, 0, size))
		if err != nil {
			return nil, encio.NewError(encio.ErrMalformed, "zstd decompress: "+err.Error(), 0)
		}
		if len(out) != size {
			return nil, encio.NewError(encio.ErrMalformed, fmt.Sprintf("zstd decompressed %v bytes, header says %v", len(out), size), 0)
		}
		return out, nil

	default:
		return nil, encio.NewError(encio.ErrMalformed, fmt.Sprintf("unknown compression tag %v", tag), 0)
	}
}
