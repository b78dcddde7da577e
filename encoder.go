package didl

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"reflect"
	"sync"

	"github.com/stewi1014/didl/encio"
	"github.com/stewi1014/didl/frame"
	"github.com/stewi1014/didl/idl"
	"github.com/stewi1014/didl/principal"
)

// Encode encodes values as types into a DIDL message.
//
// There must be at least as many values as types; extra values are ignored.
// Each value is validated with idl.Validate before it is encoded, and errors name the offending argument.
func (c *Config) Encode(types []*idl.Type, values []any) ([]byte, error) {
	if len(values) < len(types) {
		return nil, encio.NewError(
			encio.ErrBadValue,
			fmt.Sprintf("wrong number of message arguments; %v types but %v values", len(types), len(values)),
			0,
		)
	}

	tb := newTable()
	for _, t := range types {
		if err := tb.add(t); err != nil {
			return nil, err
		}
	}

	b := encio.NewBuffer(make([]byte, 0, 64))
	b.WriteString(Magic)
	tb.write(b)

	encio.WriteUleb128Uint64(b, uint64(len(types)))
	for _, t := range types {
		if err := tb.ref(b, t); err != nil {
			return nil, err
		}
	}

	for i, t := range types {
		if err := idl.Validate(t, values[i]); err != nil {
			return nil, fmt.Errorf("argument %d -> %w", i, err)
		}
		if err := encodeValue(b, t, values[i]); err != nil {
			return nil, fmt.Errorf("argument %d -> %w", i, err)
		}
	}

	return b.Bytes(), nil
}

// NewEncoder returns a new Encoder writing to w.
func NewEncoder(w io.Writer, config *Config) *Encoder {
	config = config.copyAndFill()
	return &Encoder{
		w:      frame.NewWriter(w, config.Compression),
		config: config,
	}
}

// Encoder writes DIDL messages to a stream, each in its own frame.
// It is safe for concurrent use.
type Encoder struct {
	mutex  sync.Mutex
	w      *frame.Writer
	config *Config
}

// Encode encodes values as types, and writes the message.
func (e *Encoder) Encode(types []*idl.Type, values ...any) error {
	msg, err := e.config.Encode(types, values)
	if err != nil {
		return err
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	return e.w.WriteMessage(msg)
}

// encodeValue writes v as t. v must have been validated against t.
func encodeValue(b *encio.Buffer, t *idl.Type, v any) error {
	t, err := t.Resolve()
	if err != nil {
		return err
	}

	switch t.Kind() {
	case idl.Null, idl.Reserved:
		return nil

	case idl.Bool:
		x, ok := v.(bool)
		if !ok {
			return mismatch(t, v)
		}
		if x {
			return b.WriteByte(1)
		}
		return b.WriteByte(0)

	case idl.Nat, idl.Int, idl.Nat8, idl.Nat16, idl.Nat32, idl.Nat64, idl.Int8, idl.Int16, idl.Int32, idl.Int64:
		n, ok := idl.ToBigInt(v)
		if !ok {
			return mismatch(t, v)
		}
		switch k := t.Kind(); {
		case k == idl.Nat:
			return encio.WriteUleb128(b, n)
		case k == idl.Int:
			return encio.WriteSleb128(b, n)
		case k.IsSigned():
			return encio.WriteIntLE(b, n, k.Width())
		default:
			return encio.WriteUintLE(b, n, k.Width())
		}

	case idl.Float32:
		f, ok := toFloat(v)
		if !ok {
			return mismatch(t, v)
		}
		var buff [4]byte
		binary.LittleEndian.PutUint32(buff[:], math.Float32bits(float32(f)))
		b.Write(buff[:])
		return nil

	case idl.Float64:
		f, ok := toFloat(v)
		if !ok {
			return mismatch(t, v)
		}
		var buff [8]byte
		binary.LittleEndian.PutUint64(buff[:], math.Float64bits(f))
		b.Write(buff[:])
		return nil

	case idl.Text:
		s, ok := v.(string)
		if !ok {
			return mismatch(t, v)
		}
		encio.WriteUleb128Uint64(b, uint64(len(s)))
		b.WriteString(s)
		return nil

	case idl.Principal, idl.Service:
		id, ok := v.(principal.ID)
		if !ok {
			return mismatch(t, v)
		}
		writePrincipal(b, id)
		return nil

	case idl.Func:
		ref, ok := v.(idl.FuncRef)
		if !ok {
			return mismatch(t, v)
		}
		b.WriteByte(1)
		writePrincipal(b, ref.Service)
		encio.WriteUleb128Uint64(b, uint64(len(ref.Method)))
		b.WriteString(ref.Method)
		return nil

	case idl.Opt:
		o, ok := v.(idl.Option)
		if v == nil || ok && !o.Valid {
			return b.WriteByte(0)
		}
		if !ok {
			return mismatch(t, v)
		}
		b.WriteByte(1)
		return encodeValue(b, t.Elem(), o.Value)

	case idl.Vec:
		if idl.IsDense(t.Elem().Kind(), v) {
			return encodeDense(b, v)
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return mismatch(t, v)
		}
		encio.WriteUleb128Uint64(b, uint64(rv.Len()))
		for i := 0; i < rv.Len(); i++ {
			if err := encodeValue(b, t.Elem(), rv.Index(i).Interface()); err != nil {
				return fmt.Errorf("index %d -> %w", i, err)
			}
		}
		return nil

	case idl.Record:
		if t.IsTuple() {
			rv := reflect.ValueOf(v)
			if (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) || rv.Len() < len(t.Fields()) {
				return mismatch(t, v)
			}
			for i, f := range t.Fields() {
				if err := encodeValue(b, f.Type, rv.Index(i).Interface()); err != nil {
					return fmt.Errorf("index %d -> %w", i, err)
				}
			}
			return nil
		}

		m, ok := v.(map[string]any)
		if !ok {
			return mismatch(t, v)
		}
		for _, f := range t.Fields() {
			if err := encodeValue(b, f.Type, m[f.Label]); err != nil {
				return fmt.Errorf("field %v -> %w", f.Label, err)
			}
		}
		return nil

	case idl.Variant:
		m, ok := v.(map[string]any)
		if !ok || len(m) != 1 {
			return mismatch(t, v)
		}
		for label, fv := range m {
			i, ok := t.FieldByLabel(label)
			if !ok {
				return mismatch(t, v)
			}
			encio.WriteUleb128Uint64(b, uint64(i))
			return encodeValue(b, t.Fields()[i].Type, fv)
		}
		return nil

	default:
		return encio.NewError(encio.ErrBadType, fmt.Sprintf("cannot encode a value as %v", t.Kind()), 0)
	}
}

// encodeDense writes a packed slice in a single copy.
func encodeDense(b *encio.Buffer, v any) error {
	encio.WriteUleb128Uint64(b, uint64(reflect.ValueOf(v).Len()))
	if bytes, ok := v.([]byte); ok {
		b.Write(bytes)
		return nil
	}
	return binary.Write(b, binary.LittleEndian, v)
}

func writePrincipal(b *encio.Buffer, id principal.ID) {
	b.WriteByte(1)
	encio.WriteUleb128Uint64(b, uint64(len(id)))
	b.Write(id)
}

func toFloat(v any) (float64, bool) {
	switch f := v.(type) {
	case float32:
		return float64(f), true
	case float64:
		return f, true
	default:
		return 0, false
	}
}

func mismatch(t *idl.Type, v any) error {
	return encio.NewError(encio.ErrBadValue, fmt.Sprintf("cannot encode %T as %v", v, t), 1)
}
