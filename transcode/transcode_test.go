package transcode_test

import (
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"github.com/maxatome/go-testdeep/td"
	"github.com/stewi1014/didl/encio"
	"github.com/stewi1014/didl/idl"
	"github.com/stewi1014/didl/principal"
	"github.com/stewi1014/didl/transcode"
)

func field(label string, t *idl.Type) idl.Field {
	return idl.Field{Label: label, Type: t}
}

func TestMarshal(t *testing.T) {
	list := idl.RecType()
	list.Fill(idl.OptType(idl.RecordType(field("head", idl.IntType), field("tail", list))))

	testCases := []struct {
		desc string
		t    *idl.Type
		v    any
		hex  string
	}{
		{"null", idl.NullType, nil, "f6"},
		{"reserved", idl.ReservedType, "ignored", "f6"},
		{"bool", idl.BoolType, true, "f5"},
		{"nat", idl.NatType, big.NewInt(42), "182a"},
		{"int", idl.IntType, big.NewInt(-1), "20"},
		{"bignum", idl.NatType, new(big.Int).Lsh(big.NewInt(1), 64), "c249010000000000000000"},
		{"nat8", idl.Nat8Type, uint8(7), "07"},
		{"float", idl.Float64Type, 0.25, "f93400"},
		{"text", idl.TextType, "bob", "63626f62"},
		{"principal", idl.PrincipalType, principal.Anonymous, "4104"},
		{"some", idl.OptType(idl.NatType), idl.Some(big.NewInt(42)), "81182a"},
		{"none", idl.OptType(idl.NatType), idl.None, "80"},
		{"nil opt", idl.OptType(idl.NatType), nil, "80"},
		{"blob", idl.VecType(idl.Nat8Type), []byte{1, 2}, "420102"},
		{"dense vec", idl.VecType(idl.Nat16Type), []uint16{1, 256}, "8201190100"},
		{"vec", idl.VecType(idl.TextType), []any{"a", "b"}, "8261616162"},
		{
			"record",
			idl.RecordType(field("name", idl.TextType), field("foo", idl.NatType)),
			map[string]any{"name": "bob", "foo": big.NewInt(3)},
			"a263666f6f03646e616d6563626f62",
		},
		{"tuple", idl.TupleType(idl.BoolType, idl.TextType), []any{true, "x"}, "82f56178"},
		{
			"variant",
			idl.VariantType(field("ok", idl.NatType), field("err", idl.TextType)),
			map[string]any{"ok": big.NewInt(3)},
			"a1626f6b03",
		},
		{
			"rec",
			list,
			idl.Some(map[string]any{"head": big.NewInt(1), "tail": idl.None}),
			"81a2646865616401647461696c80",
		},
		{
			"func",
			idl.FuncType(nil, nil),
			idl.FuncRef{Service: principal.Anonymous, Method: "go"},
			"82410462676f",
		},
		{"service", idl.ServiceType(), principal.Management, "40"},
		{"decoded", idl.UnknownType, idl.Decoded{Value: "a", Type: idl.TextType}, "6161"},
	}

	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			data, err := transcode.Marshal(tC.t, tC.v)
			td.CmpNoError(t, err)
			td.Cmp(t, hex.EncodeToString(data), tC.hex)
		})
	}
}

func TestMarshalAll(t *testing.T) {
	data, err := transcode.MarshalAll(
		[]*idl.Type{idl.TextType, idl.OptType(idl.BoolType)},
		[]any{"a", idl.Some(false)},
	)
	td.CmpNoError(t, err)
	td.Cmp(t, hex.EncodeToString(data), "82616181f4")

	diag, err := transcode.Diagnose(data)
	td.CmpNoError(t, err)
	td.Cmp(t, diag, `["a", [false]]`)

	_, err = transcode.MarshalAll([]*idl.Type{idl.TextType}, nil)
	td.Cmp(t, errors.Is(err, encio.ErrBadValue), true)
}

func TestMarshalErrors(t *testing.T) {
	testCases := []struct {
		desc    string
		t       *idl.Type
		v       any
		err     error
		message string
	}{
		{"text", idl.TextType, 3, encio.ErrBadValue, "int is not a valid text"},
		{"empty", idl.EmptyType, nil, encio.ErrBadType, "empty has no values"},
		{
			"record field",
			idl.RecordType(field("a", idl.BoolType)),
			map[string]any{"a": "yes"},
			encio.ErrBadValue,
			"field a -> ",
		},
		{
			"unknown case",
			idl.VariantType(field("ok", idl.NullType)),
			map[string]any{"maybe": nil},
			encio.ErrBadValue,
			"has no case maybe",
		},
		{"short tuple", idl.TupleType(idl.BoolType, idl.BoolType), []any{true}, encio.ErrBadValue, "is not a valid"},
		{"unfilled rec", idl.RecType(), nil, encio.ErrBadType, "recursive type uninitialized"},
	}

	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			_, err := transcode.Marshal(tC.t, tC.v)
			td.Cmp(t, errors.Is(err, tC.err), true)
			td.Cmp(t, err.Error(), td.Contains(tC.message))
		})
	}
}
