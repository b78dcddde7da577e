// Package transcode converts DIDL values to CBOR, guided by their types.
//
// Integers become CBOR integers, or bignums when they don't fit 64 bits.
// opt values become arrays of zero or one element, records become maps keyed by label,
// tuples become arrays, variants become single-entry maps, and principals become byte strings.
// vec nat8 is written as a byte string. A func reference becomes [service, method].
// Output uses Core Deterministic Encoding, so equal values always produce identical bytes.
package transcode

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
	"github.com/stewi1014/didl/encio"
	"github.com/stewi1014/didl/idl"
	"github.com/stewi1014/didl/principal"
)

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("transcode: CBOR encoder initialization failed: " + err.Error())
	}
}

// Value returns v, a value of type t, as plain Go values ready for CBOR encoding.
// Decoded values are unwrapped and converted with the type they carry.
func Value(t *idl.Type, v any) (any, error) {
	r := idl.Visit[any, result](converter{}, t, v)
	return r.v, r.err
}

// Marshal returns the CBOR encoding of v, a value of type t.
func Marshal(t *idl.Type, v any) ([]byte, error) {
	c, err := Value(t, v)
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(c)
}

// MarshalAll returns the CBOR encoding of values as one array, one element per value.
func MarshalAll(types []*idl.Type, values []any) ([]byte, error) {
	if len(types) != len(values) {
		return nil, encio.NewError(
			encio.ErrBadValue,
			fmt.Sprintf("got %v values for %v types", len(values), len(types)),
			0,
		)
	}

	out := make([]any, len(values))
	for i := range values {
		c, err := Value(types[i], values[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d -> %w", i, err)
		}
		out[i] = c
	}
	return encMode.Marshal(out)
}

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) of data.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}

type result struct {
	v   any
	err error
}

type converter struct{}

func (c converter) convert(t *idl.Type, v any) result {
	return idl.Visit[any, result](c, t, v)
}

func (converter) VisitPrimitive(t *idl.Type, v any) result {
	switch t.Kind() {
	case idl.Null, idl.Reserved:
		return result{}
	case idl.Bool:
		if b, ok := v.(bool); ok {
			return result{v: b}
		}
	case idl.Text:
		if s, ok := v.(string); ok {
			return result{v: s}
		}
	case idl.Float32:
		switch f := v.(type) {
		case float32:
			return result{v: f}
		case float64:
			return result{v: float32(f)}
		}
	case idl.Float64:
		switch f := v.(type) {
		case float32:
			return result{v: float64(f)}
		case float64:
			return result{v: f}
		}
	case idl.Principal:
		if id, ok := v.(principal.ID); ok {
			return result{v: []byte(id)}
		}
	case idl.Unknown:
		if d, ok := v.(idl.Decoded); ok && d.Type != nil {
			return converter{}.convert(d.Type, d.Value)
		}
	case idl.Empty:
		return result{err: encio.NewError(encio.ErrBadType, "empty has no values", 0)}
	default:
		if n, ok := idl.ToBigInt(v); ok {
			return result{v: shortest(n)}
		}
	}
	return mismatch(t, v)
}

func (c converter) VisitOpt(t *idl.Type, elem *idl.Type, v any) result {
	if v == nil {
		return result{v: []any{}}
	}
	o, ok := v.(idl.Option)
	if !ok {
		return mismatch(t, v)
	}
	if !o.Valid {
		return result{v: []any{}}
	}

	r := c.convert(elem, o.Value)
	if r.err != nil {
		return result{err: fmt.Errorf("opt -> %w", r.err)}
	}
	return result{v: []any{r.v}}
}

func (c converter) VisitVec(t *idl.Type, elem *idl.Type, v any) result {
	if b, ok := v.([]byte); ok && elem.Kind() == idl.Nat8 {
		return result{v: b}
	}
	if idl.IsDense(elem.Kind(), v) {
		return result{v: v}
	}

	elems, ok := v.([]any)
	if !ok {
		return mismatch(t, v)
	}
	out := make([]any, len(elems))
	for i, e := range elems {
		r := c.convert(elem, e)
		if r.err != nil {
			return result{err: fmt.Errorf("index %d -> %w", i, r.err)}
		}
		out[i] = r.v
	}
	return result{v: out}
}

func (c converter) VisitRecord(t *idl.Type, fields []idl.Field, v any) result {
	m, ok := v.(map[string]any)
	if !ok {
		return mismatch(t, v)
	}

	out := make(map[string]any, len(fields))
	for _, field := range fields {
		r := c.convert(field.Type, m[field.Label])
		if r.err != nil {
			return result{err: fmt.Errorf("field %v -> %w", field.Label, r.err)}
		}
		out[field.Label] = r.v
	}
	return result{v: out}
}

func (c converter) VisitTuple(t *idl.Type, elems []idl.Field, v any) result {
	values, ok := v.([]any)
	if !ok || len(values) < len(elems) {
		return mismatch(t, v)
	}

	out := make([]any, len(elems))
	for i, elem := range elems {
		r := c.convert(elem.Type, values[i])
		if r.err != nil {
			return result{err: fmt.Errorf("index %d -> %w", i, r.err)}
		}
		out[i] = r.v
	}
	return result{v: out}
}

func (c converter) VisitVariant(t *idl.Type, fields []idl.Field, v any) result {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return mismatch(t, v)
	}

	for label, value := range m {
		i, ok := t.FieldByLabel(label)
		if !ok {
			return result{err: encio.NewError(
				encio.ErrBadValue,
				fmt.Sprintf("%v has no case %v", t, label),
				0,
			)}
		}
		r := c.convert(fields[i].Type, value)
		if r.err != nil {
			return result{err: fmt.Errorf("variant %v -> %w", label, r.err)}
		}
		return result{v: map[string]any{label: r.v}}
	}
	panic("unreachable")
}

func (c converter) VisitRec(t *idl.Type, inner *idl.Type, v any) result {
	if inner == nil {
		return result{err: encio.NewError(encio.ErrBadType, "recursive type uninitialized", 0)}
	}
	return c.convert(inner, v)
}

func (converter) VisitFunc(t *idl.Type, v any) result {
	ref, ok := v.(idl.FuncRef)
	if !ok {
		return mismatch(t, v)
	}
	return result{v: []any{[]byte(ref.Service), ref.Method}}
}

func (converter) VisitService(t *idl.Type, v any) result {
	id, ok := v.(principal.ID)
	if !ok {
		return mismatch(t, v)
	}
	return result{v: []byte(id)}
}

// shortest returns n as an int64 or uint64 if it fits, so it is written as a plain CBOR integer.
func shortest(n *big.Int) any {
	switch {
	case n.IsUint64():
		return n.Uint64()
	case n.IsInt64():
		return n.Int64()
	default:
		return n
	}
}

func mismatch(t *idl.Type, v any) result {
	return result{err: encio.NewError(
		encio.ErrBadValue,
		fmt.Sprintf("%T is not a valid %v", v, t),
		1,
	)}
}
