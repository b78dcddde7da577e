package encio

import (
	"fmt"
	"math/big"
)

var big256 = big.NewInt(256)

// IntRange returns the smallest and largest two's complement integers that fit in byteLength bytes.
func IntRange(byteLength int) (lo, hi *big.Int) {
	hi = new(big.Int).Lsh(big1, uint(8*byteLength-1))
	lo = new(big.Int).Neg(hi)
	hi.Sub(hi, big1)
	return lo, hi
}

// UintRange returns the largest unsigned integer that fits in byteLength bytes.
func UintRange(byteLength int) *big.Int {
	hi := new(big.Int).Lsh(big1, uint(8*byteLength))
	return hi.Sub(hi, big1)
}

// WriteIntLE appends n to b as a byteLength byte little-endian two's complement integer.
// It returns an Error wrapping ErrBadValue if n does not fit.
func WriteIntLE(b *Buffer, n *big.Int, byteLength int) error {
	lo, hi := IntRange(byteLength)
	if n.Cmp(lo) < 0 || n.Cmp(hi) > 0 {
		return NewError(ErrBadValue, fmt.Sprintf("%v does not fit in a %v bit signed integer", n, 8*byteLength), 0)
	}
	writeLE(b, n, byteLength)
	return nil
}

// WriteUintLE appends n to b as a byteLength byte little-endian unsigned integer.
// It returns an Error wrapping ErrBadValue if n is negative or does not fit.
func WriteUintLE(b *Buffer, n *big.Int, byteLength int) error {
	if n.Sign() < 0 {
		return NewError(ErrBadValue, fmt.Sprintf("cannot write negative value %v as unsigned", n), 0)
	}
	if n.Cmp(UintRange(byteLength)) > 0 {
		return NewError(ErrBadValue, fmt.Sprintf("%v does not fit in a %v bit unsigned integer", n, 8*byteLength), 0)
	}
	writeLE(b, n, byteLength)
	return nil
}

// writeLE writes the low byteLength bytes of n.
// big.Int's Div and Mod are Euclidean, so for negative n each byte is taken modulo 256
// and the floor division carries the borrow into the next byte.
func writeLE(b *Buffer, n *big.Int, byteLength int) {
	if n.IsInt64() {
		v := n.Int64()
		for i := 0; i < byteLength; i++ {
			b.WriteByte(byte(v))
			v >>= 8
		}
		return
	}

	v := new(big.Int).Set(n)
	by := new(big.Int)
	for i := 0; i < byteLength; i++ {
		v.DivMod(v, big256, by)
		b.WriteByte(byte(by.Uint64()))
	}
}

// ReadUintLE consumes a byteLength byte little-endian unsigned integer from b.
func ReadUintLE(b *Buffer, byteLength int) (*big.Int, error) {
	bytes, err := b.Next(byteLength)
	if err != nil {
		return nil, err
	}

	if byteLength <= 8 {
		var v uint64
		for i := byteLength - 1; i >= 0; i-- {
			v = v<<8 | uint64(bytes[i])
		}
		return new(big.Int).SetUint64(v), nil
	}

	be := make([]byte, byteLength)
	for i := range bytes {
		be[byteLength-1-i] = bytes[i]
	}
	return new(big.Int).SetBytes(be), nil
}

// ReadIntLE consumes a byteLength byte little-endian two's complement integer from b.
func ReadIntLE(b *Buffer, byteLength int) (*big.Int, error) {
	v, err := ReadUintLE(b, byteLength)
	if err != nil {
		return nil, err
	}

	// values at or above 2^(8*byteLength-1) have their sign bit set.
	half := new(big.Int).Lsh(big1, uint(8*byteLength-1))
	if v.Cmp(half) >= 0 {
		v.Sub(v, half.Lsh(half, 1))
	}
	return v, nil
}
