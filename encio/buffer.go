package encio

import (
	"fmt"
	"io"
)

// NewBuffer returns a Buffer that reads from data.
// The Buffer takes ownership of data; the caller must not modify it afterwards.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{buff: data}
}

// Buffer is a byte cursor. It operates similar to bytes.Buffer;
// reads consume from the front and writes append to the end.
// A Buffer is owned by a single encode or decode call and is not safe for concurrent use.
type Buffer struct {
	buff []byte
	off  int
}

// Read implements io.Reader
func (b *Buffer) Read(buff []byte) (int, error) {
	n := copy(buff, b.buff[b.off:])
	b.off += n
	if n < len(buff) {
		return n, io.EOF
	}
	return n, nil
}

// ReadByte implements io.ByteReader.
// Unlike Read, it returns an IOError wrapping io.ErrUnexpectedEOF if the buffer is empty.
func (b *Buffer) ReadByte() (byte, error) {
	if b.Len() == 0 {
		return 0, NewIOError(io.ErrUnexpectedEOF, "want 1 byte but buffer is empty")
	}
	by := b.buff[b.off]
	b.off++
	return by, nil
}

// Next consumes and returns the next n bytes.
// The returned slice aliases the buffer and is only valid until the next write.
// If fewer than n bytes remain, nothing is consumed and an IOError wrapping io.ErrUnexpectedEOF is returned.
func (b *Buffer) Next(n int) ([]byte, error) {
	if n < 0 || n > b.Len() {
		return nil, NewIOError(io.ErrUnexpectedEOF, fmt.Sprintf("want %v bytes but only %v remain", n, b.Len()))
	}
	s := b.buff[b.off : b.off+n]
	b.off += n
	return s, nil
}

// Peek returns the unread portion of the buffer without consuming it.
func (b *Buffer) Peek() []byte {
	return b.buff[b.off:]
}

// Write implements io.Writer
func (b *Buffer) Write(buff []byte) (int, error) {
	return copy(b.buff[b.grow(len(buff)):], buff), nil
}

// WriteByte implements io.ByteWriter
func (b *Buffer) WriteByte(by byte) error {
	b.buff[b.grow(1)] = by
	return nil
}

// WriteString appends s to the buffer.
func (b *Buffer) WriteString(s string) (int, error) {
	return copy(b.buff[b.grow(len(s)):], s), nil
}

// Len returns the length of the unread portion of the buffer
func (b *Buffer) Len() int {
	return len(b.buff) - b.off
}

// Bytes returns the unread portion of the buffer.
func (b *Buffer) Bytes() []byte {
	return b.buff[b.off:]
}

// Save returns a mark of the current read position, to be given to Restore.
func (b *Buffer) Save() int {
	return b.off
}

// Restore rewinds the read position to a mark returned by Save.
// Writes must not happen between Save and Restore.
func (b *Buffer) Restore(mark int) {
	if mark < 0 || mark > len(b.buff) {
		panic(NewError(ErrBadConfig, fmt.Sprintf("restore mark %v outside buffer of %v bytes", mark, len(b.buff)), 0))
	}
	b.off = mark
}

func (b *Buffer) grow(n int) int {
	l := len(b.buff)
	if l+n <= cap(b.buff) {
		b.buff = b.buff[:l+n]
		return l
	}

	l -= b.off
	c := cap(b.buff)
	if (l+n)*8 <= c { // let cap grow to 8 time the size so we're not always sliding.
		// slide down
		copy(b.buff, b.buff[b.off:])
		b.buff = b.buff[:l+n]
		b.off = 0
		return l
	}
	// must allocate
	nb := make([]byte, l+n, c*2+n)
	copy(nb, b.buff[b.off:])
	b.buff = nb
	b.off = 0
	return l
}
