package idl

import (
	"fmt"
	"reflect"
	"unicode/utf8"

	"github.com/stewi1014/didl/encio"
	"github.com/stewi1014/didl/principal"
)

// Validate checks that v is a value that can be encoded as t.
// Errors wrap ErrBadValue, or ErrBadType for Empty, Unknown and unfilled Rec types,
// and name the path to the offending value, e.g. "field owner -> index 3 -> ...".
func Validate(t *Type, v any) error {
	t, err := t.Resolve()
	if err != nil {
		return err
	}

	switch t.kind {
	case Null:
		if v != nil {
			return badValue(t, v)
		}
		return nil

	case Reserved:
		return nil

	case Empty, Unknown:
		return encio.NewError(encio.ErrBadType, fmt.Sprintf("cannot encode a value as %v", t.kind), 0)

	case Bool:
		return expect[bool](t, v)

	case Text:
		s, ok := v.(string)
		if !ok {
			return badValue(t, v)
		}
		if !utf8.ValidString(s) {
			return encio.NewError(encio.ErrBadValue, "text is not valid UTF-8", 0)
		}
		return nil

	case Nat, Int, Nat8, Nat16, Nat32, Nat64, Int8, Int16, Int32, Int64:
		return validateInt(t, v)

	case Float32, Float64:
		switch v.(type) {
		case float32, float64:
			return nil
		default:
			return badValue(t, v)
		}

	case Principal, Service:
		return expect[principal.ID](t, v)

	case Func:
		return expect[FuncRef](t, v)

	case Opt:
		switch o := v.(type) {
		case nil:
			return nil
		case Option:
			if !o.Valid {
				return nil
			}
			return Validate(t.elem, o.Value)
		default:
			return badValue(t, v)
		}

	case Vec:
		if IsDense(t.elem.kind, v) {
			return nil
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return badValue(t, v)
		}
		for i := 0; i < rv.Len(); i++ {
			if err := Validate(t.elem, rv.Index(i).Interface()); err != nil {
				return fmt.Errorf("index %d -> %w", i, err)
			}
		}
		return nil

	case Record:
		if t.tuple {
			return validateTuple(t, v)
		}
		m, ok := v.(map[string]any)
		if !ok {
			return badValue(t, v)
		}
		for _, f := range t.fields {
			fv, ok := m[f.Label]
			if !ok {
				return encio.NewError(encio.ErrBadValue, fmt.Sprintf("record is missing field %v", f.Label), 0)
			}
			if err := Validate(f.Type, fv); err != nil {
				return fmt.Errorf("field %v -> %w", f.Label, err)
			}
		}
		return nil

	case Variant:
		m, ok := v.(map[string]any)
		if !ok {
			return badValue(t, v)
		}
		if len(m) != 1 {
			return encio.NewError(encio.ErrBadValue, fmt.Sprintf("variant value must have exactly one key, has %v", len(m)), 0)
		}
		for label, fv := range m {
			i, ok := t.FieldByLabel(label)
			if !ok {
				return encio.NewError(encio.ErrBadValue, fmt.Sprintf("%v is not a case of %v", label, t), 0)
			}
			if err := Validate(t.fields[i].Type, fv); err != nil {
				return fmt.Errorf("variant %v -> %w", label, err)
			}
		}
		return nil

	default:
		return encio.NewError(encio.ErrBadType, fmt.Sprintf("unhandled kind %v", t.kind), 0)
	}
}

func validateTuple(t *Type, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return badValue(t, v)
	}
	if rv.Len() < len(t.fields) {
		return encio.NewError(encio.ErrBadValue, fmt.Sprintf("tuple has %v elements, want at least %v", rv.Len(), len(t.fields)), 0)
	}
	for i, f := range t.fields {
		if err := Validate(f.Type, rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("index %d -> %w", i, err)
		}
	}
	return nil
}

func validateInt(t *Type, v any) error {
	n, ok := ToBigInt(v)
	if !ok {
		return badValue(t, v)
	}

	width := t.kind.Width()
	switch {
	case t.kind == Int:
		return nil
	case !t.kind.IsSigned() && n.Sign() < 0:
		return encio.NewError(encio.ErrBadValue, fmt.Sprintf("%v cannot be negative, got %v", t.kind, n), 0)
	case t.kind == Nat:
		return nil
	case t.kind.IsSigned():
		lo, hi := encio.IntRange(width)
		if n.Cmp(lo) < 0 || n.Cmp(hi) > 0 {
			return encio.NewError(encio.ErrBadValue, fmt.Sprintf("%v is out of range for %v", n, t.kind), 0)
		}
	default:
		if n.Cmp(encio.UintRange(width)) > 0 {
			return encio.NewError(encio.ErrBadValue, fmt.Sprintf("%v is out of range for %v", n, t.kind), 0)
		}
	}
	return nil
}

func expect[T any](t *Type, v any) error {
	if _, ok := v.(T); !ok {
		return badValue(t, v)
	}
	return nil
}

func badValue(t *Type, v any) error {
	return encio.NewError(encio.ErrBadValue, fmt.Sprintf("cannot encode %T as %v", v, t), 1)
}
