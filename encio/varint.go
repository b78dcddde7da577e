package encio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
)

// LEB128 and SLEB128 encode 7 payload bits per byte, least significant group first,
// with the high bit of every byte but the last set.
// The big.Int forms handle any magnitude; the uint64 and int64 forms are shortcuts for lengths, counts, indices and opcodes.

var (
	big1   = big.NewInt(1)
	big127 = big.NewInt(0x7f)
)

// WriteUleb128 appends the unsigned LEB128 encoding of n to b.
// It returns an Error wrapping ErrBadValue if n is negative.
func WriteUleb128(b *Buffer, n *big.Int) error {
	if n.Sign() < 0 {
		return NewError(ErrBadValue, fmt.Sprintf("cannot leb128 encode negative value %v", n), 0)
	}
	if n.IsUint64() {
		WriteUleb128Uint64(b, n.Uint64())
		return nil
	}

	v := new(big.Int).Set(n)
	low := new(big.Int)
	for {
		low.And(v, big127)
		v.Rsh(v, 7)
		if v.Sign() == 0 {
			return b.WriteByte(byte(low.Uint64()))
		}
		if err := b.WriteByte(byte(low.Uint64()) | 0x80); err != nil {
			return err
		}
	}
}

// WriteUleb128Uint64 appends the unsigned LEB128 encoding of n to b.
func WriteUleb128Uint64(b *Buffer, n uint64) {
	for n >= 0x80 {
		b.WriteByte(byte(n) | 0x80)
		n >>= 7
	}
	b.WriteByte(byte(n))
}

// ReadUleb128 consumes an unsigned LEB128 number from b.
// It returns an IOError wrapping io.ErrUnexpectedEOF if the buffer ends before the last byte.
func ReadUleb128(b *Buffer) (*big.Int, error) {
	data := b.Peek()
	end := 0
	for ; end < len(data); end++ {
		if data[end] < 0x80 {
			break
		}
	}
	if end == len(data) {
		return nil, NewIOError(io.ErrUnexpectedEOF, "leb128 number runs past the end of the buffer")
	}

	bytes, _ := b.Next(end + 1)
	if end < 9 {
		var n uint64
		for i := end; i >= 0; i-- {
			n = n<<7 | uint64(bytes[i]&0x7f)
		}
		return new(big.Int).SetUint64(n), nil
	}

	n := new(big.Int)
	group := new(big.Int)
	for i := end; i >= 0; i-- {
		n.Lsh(n, 7)
		n.Or(n, group.SetUint64(uint64(bytes[i]&0x7f)))
	}
	return n, nil
}

// ReadUleb128Uint64 consumes an unsigned LEB128 number from r that must fit in a uint64.
// r is usually a Buffer, but any io.ByteReader will do; frame headers are read from a bufio.Reader.
// A stream that ends early gives an IOError wrapping io.ErrUnexpectedEOF.
func ReadUleb128Uint64(r io.ByteReader) (uint64, error) {
	var n uint64
	var shift uint
	for {
		by, err := r.ReadByte()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, NewIOError(io.ErrUnexpectedEOF, "leb128 number runs past the end of the buffer")
		}
		if err != nil {
			return 0, err
		}
		if shift == 63 && by > 1 || shift > 63 {
			return 0, NewError(ErrMalformed, "leb128 number overflows 64 bits", 0)
		}
		n |= uint64(by&0x7f) << shift
		if by < 0x80 {
			return n, nil
		}
		shift += 7
	}
}

// WriteSleb128 appends the signed LEB128 encoding of n to b.
// Negative numbers are encoded through -n-1, whose groups are inverted;
// encoding stops once the remaining magnitude is zero and the sign bit (0x40) of the last group agrees with the sign of n.
func WriteSleb128(b *Buffer, n *big.Int) error {
	if n.IsInt64() {
		WriteSleb128Int64(b, n.Int64())
		return nil
	}

	neg := n.Sign() < 0
	v := new(big.Int).Set(n)
	if neg {
		v.Neg(v)
		v.Sub(v, big1)
	}

	low := new(big.Int)
	for {
		low.And(v, big127)
		group := byte(low.Uint64())
		if neg {
			group = 0x7f - group
		}
		v.Rsh(v, 7)

		if v.Sign() == 0 && (group&0x40 != 0) == neg {
			return b.WriteByte(group)
		}
		if err := b.WriteByte(group | 0x80); err != nil {
			return err
		}
	}
}

// WriteSleb128Int64 appends the signed LEB128 encoding of n to b.
func WriteSleb128Int64(b *Buffer, n int64) {
	for {
		group := byte(n & 0x7f)
		n >>= 7 // arithmetic shift keeps the sign
		if (n == 0 && group&0x40 == 0) || (n == -1 && group&0x40 != 0) {
			b.WriteByte(group)
			return
		}
		b.WriteByte(group | 0x80)
	}
}

// ReadSleb128 consumes a signed LEB128 number from b.
// If the terminating byte has its sign bit clear, the number is non-negative and is decoded as unsigned LEB128.
func ReadSleb128(b *Buffer) (*big.Int, error) {
	data := b.Peek()
	end := 0
	for ; end < len(data); end++ {
		if data[end] < 0x80 {
			if data[end]&0x40 == 0 {
				return ReadUleb128(b)
			}
			break
		}
	}
	if end == len(data) {
		return nil, NewIOError(io.ErrUnexpectedEOF, "sleb128 number runs past the end of the buffer")
	}

	bytes, _ := b.Next(end + 1)
	// Accumulate the inverted groups to get -n-1, then undo the transform.
	n := new(big.Int)
	group := new(big.Int)
	for i := end; i >= 0; i-- {
		n.Lsh(n, 7)
		n.Or(n, group.SetUint64(uint64(0x7f-bytes[i]&0x7f)))
	}
	n.Neg(n)
	return n.Sub(n, big1), nil
}

// ReadSleb128Int64 consumes a signed LEB128 number from b that must fit in an int64.
func ReadSleb128Int64(b *Buffer) (int64, error) {
	n, err := ReadSleb128(b)
	if err != nil {
		return 0, err
	}
	if !n.IsInt64() {
		return 0, NewError(ErrMalformed, fmt.Sprintf("sleb128 number %v overflows 64 bits", n), 0)
	}
	return n.Int64(), nil
}

// ReadLength consumes an unsigned LEB128 length or count from r,
// returning ErrMalformed if it exceeds limit.
func ReadLength(r io.ByteReader, limit uint64) (int, error) {
	n, err := ReadUleb128Uint64(r)
	if err != nil {
		return 0, err
	}
	if n > limit || n > math.MaxInt32 {
		return 0, NewError(ErrMalformed, fmt.Sprintf("length %v is larger than the allowed %v", n, limit), 0)
	}
	return int(n), nil
}
