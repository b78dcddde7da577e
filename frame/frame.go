// Package frame wraps whole DIDL messages in an envelope for storage and streaming.
//
// A frame is
//
//	magic       : 4 bytes "DIDF"
//	compression : 1 byte Tag
//	raw_len     : unsigned LEB128, length of the message
//	payload_len : unsigned LEB128, length of the payload
//	digest      : 32 bytes, keyed BLAKE3 of the message
//	payload     : the message, compressed as per the Tag
//
// DIDL messages carry no length of their own, so frames also delimit messages in a stream.
package frame

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/stewi1014/didl/encio"
	"github.com/zeebo/blake3"
)

// Magic begins every frame.
const Magic = "DIDF"

// DigestSize is the size of a frame's digest.
const DigestSize = 32

// domainKey keys the digest so frame digests can't be confused with other BLAKE3 hashes of the same bytes.
var domainKey = [32]byte{'d', 'i', 'd', 'l', '.', 'f', 'r', 'a', 'm', 'e'}

// Digest returns the keyed BLAKE3 digest of msg stored in frames.
func Digest(msg []byte) (sum [DigestSize]byte) {
	hasher, err := blake3.NewKeyed(domainKey[:])
	if err != nil {
		panic("frame: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(msg)
	copy(sum[:], hasher.Sum(nil))
	return sum
}

// Pack returns msg in a frame, compressed with tag.
// Messages that don't get smaller are stored uncompressed.
func Pack(msg []byte, tag Tag) ([]byte, error) {
	payload, err := compress(msg, tag)
	if errors.Is(err, errIncompressible) {
		payload, tag = msg, None
	} else if err != nil {
		return nil, err
	}

	digest := Digest(msg)
	b := encio.NewBuffer(make([]byte, 0, len(Magic)+1+2*binary.MaxVarintLen64+DigestSize+len(payload)))
	b.WriteString(Magic)
	b.WriteByte(byte(tag))
	encio.WriteUleb128Uint64(b, uint64(len(msg)))
	encio.WriteUleb128Uint64(b, uint64(len(payload)))
	b.Write(digest[:])
	b.Write(payload)
	return b.Bytes(), nil
}

// Unpack returns the message in a frame. data must hold exactly one frame.
// It returns an error wrapping encio.ErrMalformed if the frame is damaged, or the digest doesn't match.
func Unpack(data []byte) ([]byte, error) {
	src := bytes.NewReader(data)
	r := NewReader(src, 0)
	msg, err := r.ReadMessage()
	if err == io.EOF {
		return nil, encio.NewIOError(io.ErrUnexpectedEOF, "empty frame")
	}
	if err != nil {
		return nil, err
	}
	if left := r.r.Buffered() + src.Len(); left > 0 {
		return nil, encio.NewError(encio.ErrMalformed, fmt.Sprintf("%v left-over bytes after frame", left), 0)
	}
	return msg, nil
}

// NewWriter returns a Writer writing frames to w.
func NewWriter(w io.Writer, tag Tag) *Writer {
	return &Writer{w: w, tag: tag}
}

// Writer writes messages to a stream as frames.
type Writer struct {
	w   io.Writer
	tag Tag
}

// WriteMessage writes msg as a single frame, in a single call to Write.
func (w *Writer) WriteMessage(msg []byte) error {
	data, err := Pack(msg, w.tag)
	if err != nil {
		return err
	}
	return encio.Write(data, w.w)
}

// NewReader returns a Reader reading frames from r.
// Frames with a message larger than maxLength are rejected; if zero, encio.TooBig is used.
// The Reader may read past the end of a frame.
func NewReader(r io.Reader, maxLength uint64) *Reader {
	if maxLength == 0 {
		maxLength = encio.TooBig
	}
	return &Reader{
		r:         bufio.NewReader(r),
		maxLength: maxLength,
	}
}

// Reader reads messages from a stream of frames.
type Reader struct {
	r         *bufio.Reader
	maxLength uint64
	header    [len(Magic) + 1]byte
	digest    [DigestSize]byte
}

// ReadMessage reads the next frame and returns its message.
// It returns io.EOF if the stream ends before a frame starts.
func (r *Reader) ReadMessage() ([]byte, error) {
	if _, err := r.r.Peek(1); err == io.EOF {
		return nil, io.EOF
	}

	if err := encio.Read(r.header[:], r.r); err != nil {
		return nil, err
	}
	if string(r.header[:len(Magic)]) != Magic {
		return nil, encio.NewIOError(encio.ErrMalformed, fmt.Sprintf("wrong frame magic number %q", r.header[:len(Magic)]))
	}
	tag := Tag(r.header[len(Magic)])
	if tag > Zstd {
		return nil, encio.NewIOError(encio.ErrMalformed, fmt.Sprintf("unknown compression tag %v", uint8(tag)))
	}

	rawLen, err := encio.ReadLength(r.r, r.maxLength)
	if err != nil {
		return nil, fmt.Errorf("frame message length: %w", err)
	}
	payloadLen, err := encio.ReadLength(r.r, r.maxLength)
	if err != nil {
		return nil, fmt.Errorf("frame payload length: %w", err)
	}

	if err := encio.Read(r.digest[:], r.r); err != nil {
		return nil, err
	}

	payload := make([]byte, payloadLen)
	if err := encio.Read(payload, r.r); err != nil {
		return nil, err
	}

	msg, err := decompress(payload, tag, rawLen)
	if err != nil {
		return nil, err
	}
	if Digest(msg) != r.digest {
		return nil, encio.NewIOError(encio.ErrMalformed, "frame digest does not match message")
	}
	return msg, nil
}
