package encio_test

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"io"
	"math/big"
	"math/rand"
	"testing"
	"testing/iotest"

	"github.com/maxatome/go-testdeep/td"
	"github.com/stewi1014/didl/encio"
)

func bigInt(t *testing.T, s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad test number %q", s)
	}
	return n
}

func bigIntString(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad test number " + s)
	}
	return n
}

func TestUleb128(t *testing.T) {
	testCases := []struct {
		n   string
		hex string
	}{
		{"0", "00"},
		{"1", "01"},
		{"127", "7f"},
		{"128", "8001"},
		{"255", "ff01"},
		{"256", "8002"},
		{"624485", "e58e26"},
		{"18446744073709551615", "ffffffffffffffffff01"},
		{"18446744073709551616", "80808080808080808002"},
		{"60000000000000000", "808098f4e9b5ca6a"},
	}

	for _, tC := range testCases {
		t.Run(tC.n, func(t *testing.T) {
			n := bigInt(t, tC.n)

			var buff encio.Buffer
			td.CmpNoError(t, encio.WriteUleb128(&buff, n))
			td.Cmp(t, hex.EncodeToString(buff.Bytes()), tC.hex)

			got, err := encio.ReadUleb128(&buff)
			td.CmpNoError(t, err)
			td.Cmp(t, got.String(), tC.n)
			td.Cmp(t, buff.Len(), 0)
		})
	}
}

func TestUleb128Uint64(t *testing.T) {
	testCases := []uint64{0, 1, 127, 128, 16383, 16384, 1 << 32, 1<<63 - 1, 1<<64 - 1}

	for _, tC := range testCases {
		var buff encio.Buffer
		encio.WriteUleb128Uint64(&buff, tC)

		n, err := encio.ReadUleb128Uint64(&buff)
		td.CmpNoError(t, err)
		td.Cmp(t, n, tC)
		td.Cmp(t, buff.Len(), 0)
	}
}

func TestUleb128Uint64Overflow(t *testing.T) {
	buff := encio.NewBuffer([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x02})
	_, err := encio.ReadUleb128Uint64(buff)
	td.Cmp(t, errors.Is(err, encio.ErrMalformed), true)
}

func TestSleb128(t *testing.T) {
	testCases := []struct {
		n   string
		hex string
	}{
		{"0", "00"},
		{"1", "01"},
		{"-1", "7f"},
		{"63", "3f"},
		{"64", "c000"},
		{"-64", "40"},
		{"-65", "bf7f"},
		{"127", "ff00"},
		{"-128", "807f"},
		{"-123456", "c0bb78"},
		{"9223372036854775807", "ffffffffffffffffff00"},
		{"-9223372036854775808", "8080808080808080807f"},
		{"-9223372036854775809", "ffffffffffffffffff7e"},
		{"1267650600228229401496703205376", "808080808080808080808080808004"},
		{"-1267650600228229401496703205376", "80808080808080808080808080807c"},
	}

	for _, tC := range testCases {
		t.Run(tC.n, func(t *testing.T) {
			n := bigInt(t, tC.n)

			var buff encio.Buffer
			td.CmpNoError(t, encio.WriteSleb128(&buff, n))
			td.Cmp(t, hex.EncodeToString(buff.Bytes()), tC.hex)

			got, err := encio.ReadSleb128(&buff)
			td.CmpNoError(t, err)
			td.Cmp(t, got.String(), tC.n)
			td.Cmp(t, buff.Len(), 0)
		})
	}
}

func TestSleb128Int64(t *testing.T) {
	testCases := []int64{0, 1, -1, 63, 64, -64, -65, 1 << 40, -1 << 40, 1<<63 - 1, -1 << 63}

	for _, tC := range testCases {
		var buff encio.Buffer
		encio.WriteSleb128Int64(&buff, tC)

		var wide encio.Buffer
		td.CmpNoError(t, encio.WriteSleb128(&wide, new(big.Int).SetInt64(tC)))
		td.Cmp(t, buff.Bytes(), wide.Bytes(), "int64 and big.Int encodings of %v differ", tC)

		n, err := encio.ReadSleb128Int64(&buff)
		td.CmpNoError(t, err)
		td.Cmp(t, n, tC)
	}
}

func TestVarintTruncated(t *testing.T) {
	testCases := []struct {
		desc string
		read func(*encio.Buffer) error
	}{
		{"uleb128", func(b *encio.Buffer) error { _, err := encio.ReadUleb128(b); return err }},
		{"uleb128 uint64", func(b *encio.Buffer) error { _, err := encio.ReadUleb128Uint64(b); return err }},
		{"sleb128", func(b *encio.Buffer) error { _, err := encio.ReadSleb128(b); return err }},
	}

	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			err := tC.read(encio.NewBuffer([]byte{0x80, 0x80}))
			td.Cmp(t, errors.Is(err, io.ErrUnexpectedEOF), true, "got %v", err)

			var ioErr encio.IOError
			td.Cmp(t, errors.As(err, &ioErr), true)
		})
	}
}

func TestReadLength(t *testing.T) {
	var buff encio.Buffer
	encio.WriteUleb128Uint64(&buff, 1000)
	encio.WriteUleb128Uint64(&buff, 10)

	_, err := encio.ReadLength(&buff, 999)
	td.Cmp(t, errors.Is(err, encio.ErrMalformed), true)

	n, err := encio.ReadLength(&buff, 999)
	td.CmpNoError(t, err)
	td.Cmp(t, n, 10)
}

func TestLeb128Random(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	for i := 0; i < 1000; i++ {
		bits := 1 + rng.Intn(200)
		n := new(big.Int).Rand(rng, new(big.Int).Lsh(big.NewInt(1), uint(bits)))

		var buff encio.Buffer
		td.CmpNoError(t, encio.WriteUleb128(&buff, n))
		got, err := encio.ReadUleb128(&buff)
		td.CmpNoError(t, err)
		td.Cmp(t, got.Cmp(n), 0, "uleb128 of %v decoded as %v", n, got)
		td.Cmp(t, buff.Len(), 0)

		if n.IsUint64() {
			encio.WriteUleb128Uint64(&buff, n.Uint64())
			got, err := encio.ReadUleb128Uint64(&buff)
			td.CmpNoError(t, err)
			td.Cmp(t, got, n.Uint64())
		}

		if rng.Intn(2) == 0 {
			n.Neg(n)
		}
		td.CmpNoError(t, encio.WriteSleb128(&buff, n))
		got, err = encio.ReadSleb128(&buff)
		td.CmpNoError(t, err)
		td.Cmp(t, got.Cmp(n), 0, "sleb128 of %v decoded as %v", n, got)
		td.Cmp(t, buff.Len(), 0)

		if n.IsInt64() {
			encio.WriteSleb128Int64(&buff, n.Int64())
			got, err := encio.ReadSleb128Int64(&buff)
			td.CmpNoError(t, err)
			td.Cmp(t, got, n.Int64())
		}
	}
}

func TestReadLengthByteReader(t *testing.T) {
	var buff encio.Buffer
	encio.WriteUleb128Uint64(&buff, 300)
	encio.WriteUleb128Uint64(&buff, 1<<40)
	data := buff.Bytes()

	r := bufio.NewReader(iotest.OneByteReader(bytes.NewReader(data)))
	n, err := encio.ReadLength(r, 1000)
	td.CmpNoError(t, err)
	td.Cmp(t, n, 300)

	_, err = encio.ReadLength(r, 1000)
	td.Cmp(t, errors.Is(err, encio.ErrMalformed), true, "got %v", err)

	_, err = encio.ReadLength(bufio.NewReader(bytes.NewReader(data[:1])), 1000)
	td.Cmp(t, errors.Is(err, io.ErrUnexpectedEOF), true, "got %v", err)

	_, err = encio.ReadLength(bufio.NewReader(iotest.ErrReader(iotest.ErrTimeout)), 1000)
	td.Cmp(t, err, iotest.ErrTimeout)
}
