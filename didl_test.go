package didl_test

import (
	"encoding/hex"
	"errors"
	"io"
	"math"
	"math/big"
	"strings"
	"testing"

	"github.com/maxatome/go-testdeep/td"
	"github.com/stewi1014/didl"
	"github.com/stewi1014/didl/encio"
	"github.com/stewi1014/didl/idl"
	"github.com/stewi1014/didl/principal"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	data, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func bigEq(s string) td.TestDeep {
	return td.Smuggle(func(n *big.Int) string { return n.String() }, s)
}

func types(t ...*idl.Type) []*idl.Type { return t }

func values(v ...any) []any { return v }

var (
	list    = idl.RecType()
	result  = idl.VariantType(idl.Field{Label: "ok", Type: idl.NatType}, idl.Field{Label: "err", Type: idl.TextType})
	fooName = idl.RecordType(idl.Field{Label: "name", Type: idl.TextType}, idl.Field{Label: "foo", Type: idl.NatType})
)

func init() {
	list.Fill(idl.OptType(idl.RecordType(
		idl.Field{Label: "head", Type: idl.IntType},
		idl.Field{Label: "tail", Type: list},
	)))
}

func TestGolden(t *testing.T) {
	huge, _ := new(big.Int).SetString("1267650600228229401496703205376", 10) // 2^100
	tiny, _ := new(big.Int).SetString("-1180591620717411303424", 10)          // -2^70

	testCases := []struct {
		desc   string
		types  []*idl.Type
		values []any
		hex    string
		want   []any
	}{
		{
			desc:   "nat",
			types:  types(idl.NatType),
			values: values(42),
			hex:    "4449444c00017d2a",
			want:   values(bigEq("42")),
		},
		{
			desc:   "null",
			types:  types(idl.NullType),
			values: values(nil),
			hex:    "4449444c00017f",
			want:   values(nil),
		},
		{
			desc:   "text",
			types:  types(idl.TextType),
			values: values("Hi ☃\n"),
			hex:    "4449444c00017107486920e298830a",
			want:   values("Hi ☃\n"),
		},
		{
			desc:   "int",
			types:  types(idl.IntType),
			values: values(-42),
			hex:    "4449444c00017c56",
			want:   values(bigEq("-42")),
		},
		{
			desc:   "big nat",
			types:  types(idl.NatType),
			values: values(huge),
			hex:    "4449444c00017d808080808080808080808080808004",
			want:   values(bigEq(huge.String())),
		},
		{
			desc:   "big int",
			types:  types(idl.IntType),
			values: values(tiny),
			hex:    "4449444c00017c808080808080808080807f",
			want:   values(bigEq(tiny.String())),
		},
		{
			desc:   "fixed width",
			types:  types(idl.Int8Type, idl.Int64Type, idl.Float64Type, idl.Float32Type),
			values: values(-1, int64(math.MinInt64), 0.5, float32(1.5)),
			hex:    "4449444c000477747273 ff 0000000000000080 000000000000e03f 0000c03f",
			want:   values(int8(-1), int64(math.MinInt64), 0.5, float32(1.5)),
		},
		{
			desc:   "principal",
			types:  types(idl.PrincipalType),
			values: values(principal.Anonymous),
			hex:    "4449444c000168010104",
			want:   values(principal.Anonymous),
		},
		{
			desc:   "opt",
			types:  types(idl.OptType(idl.NatType)),
			values: values(idl.Some(42)),
			hex:    "4449444c016e7d0100012a",
			want:   values(idl.Option{Value: bigEq("42"), Valid: true}),
		},
		{
			desc:   "dense vec",
			types:  types(idl.VecType(idl.Nat16Type)),
			values: values([]uint16{1, 2, 0xffff}),
			hex:    "4449444c016d7a01000301000200ffff",
			want:   values([]uint16{1, 2, 0xffff}),
		},
		{
			desc:   "vec",
			types:  types(idl.VecType(idl.Nat16Type)),
			values: values([]any{1, 2, 0xffff}),
			hex:    "4449444c016d7a01000301000200ffff",
			want:   values([]uint16{1, 2, 0xffff}),
		},
		{
			desc:   "record",
			types:  types(fooName),
			values: values(map[string]any{"name": "bob", "foo": 3}),
			hex:    "4449444c016c02868eb7027dcbe4fdc7047101000303626f62",
			want:   values(map[string]any{"name": "bob", "foo": bigEq("3")}),
		},
		{
			desc:   "variant",
			types:  types(result),
			values: values(map[string]any{"ok": 5}),
			hex:    "4449444c016b029cc2017de58eb4027101000005",
			want:   values(map[string]any{"ok": bigEq("5")}),
		},
		{
			desc:   "recursive",
			types:  types(list),
			values: values(idl.Some(map[string]any{"head": 1, "tail": idl.Some(map[string]any{"head": 2, "tail": idl.None})})),
			hex:    "4449444c026e016c02a0d2aca8047c90eddae7040001000101010200",
			want: values(idl.Option{Valid: true, Value: map[string]any{
				"head": bigEq("1"),
				"tail": idl.Option{Valid: true, Value: map[string]any{"head": bigEq("2"), "tail": idl.None}},
			}}),
		},
		{
			desc:   "shared table entry",
			types:  types(idl.VecType(idl.NatType), idl.VecType(idl.NatType)),
			values: values([]any{}, []any{}),
			hex:    "4449444c016d7d0200000000",
			want:   values([]any{}, []any{}),
		},
	}

	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			msg, err := didl.Encode(tC.types, tC.values)
			td.CmpNoError(t, err)
			td.Cmp(t, hex.EncodeToString(msg), strings.ReplaceAll(tC.hex, " ", ""))

			got, err := didl.Decode(tC.types, msg)
			td.CmpNoError(t, err)
			td.Cmp(t, got, tC.want)
		})
	}
}

func TestTupleRecordIdentity(t *testing.T) {
	tuple := idl.TupleType(idl.Int8Type, idl.BoolType)
	record := idl.RecordType(idl.Field{Label: "_0_", Type: idl.Int8Type}, idl.Field{Label: "_1_", Type: idl.BoolType})

	fromTuple, err := didl.Encode(types(tuple), values([]any{-1, true}))
	td.CmpNoError(t, err)
	fromRecord, err := didl.Encode(types(record), values(map[string]any{"_0_": -1, "_1_": true}))
	td.CmpNoError(t, err)

	td.Cmp(t, hex.EncodeToString(fromTuple), "4449444c016c020077017e0100ff01")
	td.Cmp(t, fromRecord, fromTuple)

	got, err := didl.Decode(types(record), fromTuple)
	td.CmpNoError(t, err)
	td.Cmp(t, got, values(map[string]any{"_0_": int8(-1), "_1_": true}))

	got, err = didl.Decode(types(tuple), fromRecord)
	td.CmpNoError(t, err)
	td.Cmp(t, got, values([]any{int8(-1), true}))
}

func TestRoundTrip(t *testing.T) {
	method := idl.FuncType(types(idl.TextType), types(idl.NatType), idl.Query)
	service := idl.ServiceType(idl.Method{Name: "get", Type: method})
	max64 := uint64(math.MaxUint64)

	testCases := []struct {
		desc string
		t    *idl.Type
		in   any
		want any
	}{
		{"bool", idl.BoolType, true, true},
		{"nat8", idl.Nat8Type, 255, uint8(255)},
		{"nat32", idl.Nat32Type, uint32(7), uint32(7)},
		{"nat64", idl.Nat64Type, max64, max64},
		{"int16", idl.Int16Type, -2, int16(-2)},
		{"int32", idl.Int32Type, big.NewInt(-70000), int32(-70000)},
		{"float32", idl.Float32Type, 0.5, float32(0.5)},
		{"reserved", idl.ReservedType, "ignored", nil},
		{"none", idl.OptType(idl.TextType), nil, idl.None},
		{"empty principal", idl.PrincipalType, principal.Management, principal.Management},
		{"vec text", idl.VecType(idl.TextType), []string{"a", "b"}, []any{"a", "b"}},
		{"blob", idl.VecType(idl.Nat8Type), []byte("blob"), []byte("blob")},
		{"vec float64", idl.VecType(idl.Float64Type), []any{1.0, 2.5}, []float64{1, 2.5}},
		{"vec int8", idl.VecType(idl.Int8Type), []int8{-1, 1}, []int8{-1, 1}},
		{"vec of vec", idl.VecType(idl.VecType(idl.Int64Type)), []any{[]int64{1}, []any{}}, []any{[]int64{1}, []int64{}}},
		{"tuple extras", idl.TupleType(idl.TextType), []any{"a", "dropped"}, []any{"a"}},
		{"variant null", idl.VariantType(idl.Field{Label: "none", Type: idl.NullType}), map[string]any{"none": nil}, map[string]any{"none": nil}},
		{"func", method, idl.FuncRef{Service: principal.ID{1, 2}, Method: "get"}, idl.FuncRef{Service: principal.ID{1, 2}, Method: "get"}},
		{"service", service, principal.ID{9}, principal.ID{9}},
		{"empty record", idl.RecordType(), map[string]any{}, map[string]any{}},
		{"empty tuple", idl.TupleType(), []any{}, []any{}},
	}

	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			msg, err := didl.Encode(types(tC.t), values(tC.in))
			td.CmpNoError(t, err)

			got, err := didl.Decode(types(tC.t), msg)
			td.CmpNoError(t, err)
			td.Cmp(t, got, values(tC.want))
		})
	}
}

func TestEncodeErrors(t *testing.T) {
	testCases := []struct {
		desc   string
		types  []*idl.Type
		values []any
		err    error
		prefix string
	}{
		{"arity", types(idl.NatType, idl.NatType), values(1), encio.ErrBadValue, ""},
		{"empty", types(idl.EmptyType), values(nil), encio.ErrBadType, ""},
		{"unknown", types(idl.UnknownType), values(idl.Decoded{Value: "a", Type: idl.TextType}), encio.ErrBadType, ""},
		{"unfilled rec", types(idl.RecType()), values(nil), encio.ErrBadType, ""},
		{"unknown in vec", types(idl.VecType(idl.UnknownType)), values([]any{}), encio.ErrBadType, ""},
		{"bad value", types(idl.NatType), values("42"), encio.ErrBadValue, "argument 0 -> "},
		{
			"nested",
			types(idl.TextType, idl.RecordType(idl.Field{Label: "a", Type: idl.VecType(idl.Nat8Type)})),
			values("x", map[string]any{"a": []any{1, 300}}),
			encio.ErrBadValue,
			"argument 1 -> field a -> index 1 -> ",
		},
	}

	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			_, err := didl.Encode(tC.types, tC.values)
			td.Cmp(t, errors.Is(err, tC.err), true, "got %v", err)
			if tC.prefix != "" {
				td.Cmp(t, err, td.Smuggle(func(e error) string { return e.Error() }, td.HasPrefix(tC.prefix)))
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	testCases := []struct {
		desc  string
		types []*idl.Type
		hex   string
		err   error
		msg   string
	}{
		{"short magic", types(idl.NatType), "2a", encio.ErrMalformed, "message length smaller than magic number"},
		{"wrong magic", types(idl.NatType), "4449444d2a", encio.ErrMalformed, "wrong magic number"},
		{"table past end", types(idl.NatType), "4449444c2a", encio.ErrMalformed, ""},
		{"truncated refs", types(idl.NatType), "4449444c0001", io.ErrUnexpectedEOF, ""},
		{"truncated value", types(idl.NatType), "4449444c00017d", io.ErrUnexpectedEOF, ""},
		{"left-over bytes", types(idl.NatType), "4449444c00017d2a00", encio.ErrMalformed, "left-over bytes"},
		{"future opcode in table", types(idl.NatType), "4449444c0167", encio.ErrMalformed, ""},
		{"primitive in table", types(idl.NatType), "4449444c017d0100", encio.ErrMalformed, ""},
		{"future type reference", types(idl.NatType), "4449444c000167", encio.ErrMalformed, "future type"},
		{"constructed type reference", types(idl.NatType), "4449444c00016e", encio.ErrMalformed, ""},
		{"index out of range", types(idl.NatType), "4449444c000100", encio.ErrMalformed, "out of range"},
		{"entry index out of range", types(idl.NatType), "4449444c016e010100", encio.ErrMalformed, "out of range"},
		{"repeated field id", types(idl.NatType), "4449444c016c020171017100", encio.ErrMalformed, "strictly increasing"},
		{"decreasing field id", types(idl.NatType), "4449444c016c02027101710100", encio.ErrMalformed, "strictly increasing"},
		{"field id too big", types(idl.NatType), "4449444c016c01808080801071", encio.ErrMalformed, ""},
		{"bad func annotation", types(idl.NatType), "4449444c016a000001040100", encio.ErrMalformed, ""},
		{"service method not func", types(idl.NatType), "4449444c01690101617d0100", encio.ErrMalformed, ""},
		{"bad bool", types(idl.BoolType), "4449444c00017e02", encio.ErrMalformed, ""},
		{"bad utf8", types(idl.TextType), "4449444c00017101ff", encio.ErrMalformed, ""},
		{"bad principal tag", types(idl.PrincipalType), "4449444c00016800", encio.ErrMalformed, ""},
		{"bad opt tag", types(idl.OptType(idl.NatType)), "4449444c016e7d010002", encio.ErrMalformed, ""},
		{"variant index out of range", types(idl.VariantType(idl.Field{Label: "_0_", Type: idl.NullType})), "4449444c016b01007f010001", encio.ErrMalformed, ""},
		{"missing values", types(idl.NatType, idl.NatType), "4449444c00017d2a", encio.ErrBadType, "wrong number of return values"},
		{"type mismatch", types(idl.TextType), "4449444c00017d2a", encio.ErrBadType, ""},
		{"empty", types(idl.EmptyType), "4449444c00016f", encio.ErrBadType, ""},
		{"unknown empty", types(idl.UnknownType), "4449444c00016f", encio.ErrBadType, ""},
		{"unknown case", types(idl.VariantType(idl.Field{Label: "_1_", Type: idl.NullType})), "4449444c016b01007f010000", encio.ErrBadType, ""},
		{"vec too long", types(idl.VecType(idl.NatType)), "4449444c016d7d0100ff01", encio.ErrMalformed, ""},
		{"record containing itself", types(idl.NatType), "4449444c016c0100000100", encio.ErrMalformed, "contains itself"},
		{"records containing each other", types(idl.NatType), "4449444c026c0100016c0100000100", encio.ErrMalformed, "contains itself"},
		{"too many nulls", types(idl.VecType(idl.NullType)), "4449444c016d7f010080808040", encio.ErrMalformed, ""},
	}

	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			_, err := didl.Decode(tC.types, mustHex(t, tC.hex))
			td.Cmp(t, errors.Is(err, tC.err), true, "got %v", err)
			if tC.msg != "" {
				td.Cmp(t, err, td.Smuggle(func(e error) string { return e.Error() }, td.Contains(tC.msg)))
			}
		})
	}
}
