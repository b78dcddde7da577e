package didl

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/stewi1014/didl/encio"
	"github.com/stewi1014/didl/frame"
	"github.com/stewi1014/didl/idl"
	"github.com/stewi1014/didl/principal"
)

// Decode decodes a DIDL message, returning a value for each of types.
//
// The types on the wire need not be the same as types; values are decoded as their expected type where the wire type is compatible.
// Record fields missing from the wire decode as idl.None if they are Opt, or nil if Reserved,
// and fields the expected type doesn't have are skipped.
// Values on the wire beyond len(types) are skipped.
// An idl.UnknownType decodes any wire type as an idl.Decoded.
func (c *Config) Decode(types []*idl.Type, data []byte) ([]any, error) {
	d := newDecoder(data, c)
	wire, err := d.header()
	if err != nil {
		return nil, err
	}
	if len(wire) < len(types) {
		return nil, encio.NewError(
			encio.ErrBadType,
			fmt.Sprintf("wrong number of return values; want %v but message has %v", len(types), len(wire)),
			0,
		)
	}

	values := make([]any, len(types))
	for i, t := range types {
		if values[i], err = d.value(t, wire[i]); err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
	}

	for i := len(types); i < len(wire); i++ {
		d.config.Logger.Debug("skipping extra value", "index", i, "type", wire[i])
		if err := d.skip(wire[i]); err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
	}

	return values, d.end()
}

// DecodeTypes returns the types of the values in a DIDL message, without decoding them.
func (c *Config) DecodeTypes(data []byte) ([]*idl.Type, error) {
	return newDecoder(data, c).header()
}

// DecodeUnknown decodes every value in a DIDL message as the type it was sent as.
func (c *Config) DecodeUnknown(data []byte) ([]idl.Decoded, error) {
	d := newDecoder(data, c)
	wire, err := d.header()
	if err != nil {
		return nil, err
	}

	values := make([]idl.Decoded, len(wire))
	for i, t := range wire {
		v, err := d.value(t, t)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		values[i] = idl.Decoded{Value: v, Type: t}
	}
	return values, d.end()
}

// NewDecoder returns a new Decoder reading from r.
func NewDecoder(r io.Reader, config *Config) *Decoder {
	config = config.copyAndFill()
	return &Decoder{
		r:      frame.NewReader(r, config.MaxLength),
		config: config,
	}
}

// Decoder reads DIDL messages written by an Encoder.
// It is safe for concurrent use.
type Decoder struct {
	mutex  sync.Mutex
	r      *frame.Reader
	config *Config
}

// Decode reads the next message and decodes it as types.
// It returns io.EOF when the stream ends between messages.
func (d *Decoder) Decode(types ...*idl.Type) ([]any, error) {
	d.mutex.Lock()
	msg, err := d.r.ReadMessage()
	d.mutex.Unlock()
	if err != nil {
		return nil, err
	}

	return d.config.Decode(types, msg)
}

type decoder struct {
	b      *encio.Buffer
	config *Config

	depth     int    // nesting of value calls
	zeroSized uint64 // elements of zero-sized vectors left to decode
}

func newDecoder(data []byte, config *Config) *decoder {
	config = config.copyAndFill()
	return &decoder{
		b:         encio.NewBuffer(data),
		config:    config,
		zeroSized: config.MaxZeroSized,
	}
}

// header reads the magic number and type table, returning the types of the values.
func (d *decoder) header() ([]*idl.Type, error) {
	magic, err := d.b.Next(len(Magic))
	if err != nil {
		return nil, encio.NewError(encio.ErrMalformed, "message length smaller than magic number", 0)
	}
	if string(magic) != Magic {
		return nil, encio.NewError(encio.ErrMalformed, fmt.Sprintf("wrong magic number %q", magic), 0)
	}

	entries, refs, err := d.readTable()
	if err != nil {
		return nil, err
	}

	r := newResolver(entries)
	for i := range entries {
		if _, err := r.get(int64(i)); err != nil {
			return nil, fmt.Errorf("type table entry %d: %w", i, err)
		}
	}
	if err := r.checkRecords(); err != nil {
		return nil, err
	}

	types := make([]*idl.Type, len(refs))
	for i, ref := range refs {
		if types[i], err = r.get(ref); err != nil {
			return nil, err
		}
	}
	return types, nil
}

func (d *decoder) end() error {
	if d.b.Len() > 0 {
		return encio.NewError(encio.ErrMalformed, fmt.Sprintf("%v left-over bytes after decode", d.b.Len()), 0)
	}
	return nil
}

// skip decodes and discards a value of wire type t.
func (d *decoder) skip(t *idl.Type) error {
	_, err := d.value(t, t)
	return err
}

// value decodes a value sent as wire into the expected type.
func (d *decoder) value(expect, wire *idl.Type) (any, error) {
	if d.depth >= d.config.MaxDepth {
		return nil, encio.NewError(encio.ErrMalformed, fmt.Sprintf("values nested deeper than %v", d.config.MaxDepth), 0)
	}
	d.depth++
	defer func() { d.depth-- }()

	wire, err := wire.Resolve()
	if err != nil {
		return nil, err
	}
	if expect.Kind() == idl.Unknown {
		v, err := d.value(wire, wire)
		if err != nil {
			return nil, err
		}
		return idl.Decoded{Value: v, Type: wire}, nil
	}
	if expect, err = expect.Resolve(); err != nil {
		return nil, err
	}

	switch expect.Kind() {
	case idl.Reserved:
		if wire.Kind() != idl.Reserved {
			if err := d.skip(wire); err != nil {
				return nil, err
			}
		}
		return nil, nil
	case idl.Opt:
		return d.opt(expect, wire)
	case idl.Empty:
		return nil, encio.NewError(encio.ErrBadType, "cannot decode a value as empty", 0)
	}

	if wire.Kind() != expect.Kind() {
		return nil, encio.NewError(encio.ErrBadType, fmt.Sprintf("type mismatch; cannot decode %v as %v", wire, expect), 0)
	}

	switch k := expect.Kind(); k {
	case idl.Null:
		return nil, nil

	case idl.Bool:
		by, err := d.b.ReadByte()
		if err != nil {
			return nil, err
		}
		if by > 1 {
			return nil, encio.NewError(encio.ErrMalformed, fmt.Sprintf("invalid boolean byte %v", by), 0)
		}
		return by == 1, nil

	case idl.Nat:
		return encio.ReadUleb128(d.b)

	case idl.Int:
		return encio.ReadSleb128(d.b)

	case idl.Nat8, idl.Nat16, idl.Nat32, idl.Nat64:
		n, err := encio.ReadUintLE(d.b, k.Width())
		if err != nil {
			return nil, err
		}
		switch k {
		case idl.Nat8:
			return uint8(n.Uint64()), nil
		case idl.Nat16:
			return uint16(n.Uint64()), nil
		case idl.Nat32:
			return uint32(n.Uint64()), nil
		default:
			return n.Uint64(), nil
		}

	case idl.Int8, idl.Int16, idl.Int32, idl.Int64:
		n, err := encio.ReadIntLE(d.b, k.Width())
		if err != nil {
			return nil, err
		}
		switch k {
		case idl.Int8:
			return int8(n.Int64()), nil
		case idl.Int16:
			return int16(n.Int64()), nil
		case idl.Int32:
			return int32(n.Int64()), nil
		default:
			return n.Int64(), nil
		}

	case idl.Float32:
		bytes, err := d.b.Next(4)
		if err != nil {
			return nil, err
		}
		return math.Float32frombits(binary.LittleEndian.Uint32(bytes)), nil

	case idl.Float64:
		bytes, err := d.b.Next(8)
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(bytes)), nil

	case idl.Text:
		return d.readText()

	case idl.Principal, idl.Service:
		return d.principal()

	case idl.Func:
		by, err := d.b.ReadByte()
		if err != nil {
			return nil, err
		}
		if by != 1 {
			return nil, encio.NewError(encio.ErrMalformed, "cannot decode function reference", 0)
		}
		id, err := d.principal()
		if err != nil {
			return nil, err
		}
		method, err := d.readText()
		if err != nil {
			return nil, err
		}
		return idl.FuncRef{Service: id, Method: method}, nil

	case idl.Vec:
		return d.vec(expect, wire)

	case idl.Record:
		return d.record(expect, wire)

	case idl.Variant:
		return d.variant(expect, wire)

	default:
		return nil, encio.NewError(encio.ErrBadType, fmt.Sprintf("cannot decode a value as %v", k), 0)
	}
}

func (d *decoder) principal() (principal.ID, error) {
	by, err := d.b.ReadByte()
	if err != nil {
		return nil, err
	}
	if by != 1 {
		return nil, encio.NewError(encio.ErrMalformed, "cannot decode principal", 0)
	}

	n, err := encio.ReadLength(d.b, d.config.limit(d.b))
	if err != nil {
		return nil, err
	}
	bytes, err := d.b.Next(n)
	if err != nil {
		return nil, err
	}
	return append(principal.ID{}, bytes...), nil
}

// opt decodes an Opt, coercing wire values that don't fit to None.
func (d *decoder) opt(expect, wire *idl.Type) (any, error) {
	switch wire.Kind() {
	case idl.Null, idl.Reserved:
		return idl.None, nil

	case idl.Opt:
		tag, err := d.b.ReadByte()
		if err != nil {
			return nil, err
		}
		switch tag {
		case 0:
			return idl.None, nil
		case 1:
			return d.optInner(expect.Elem(), wire.Elem())
		default:
			return nil, encio.NewError(encio.ErrMalformed, fmt.Sprintf("invalid opt tag %v", tag), 0)
		}

	default:
		elem, err := expect.Elem().Resolve()
		if err != nil {
			return nil, err
		}
		switch elem.Kind() {
		case idl.Null, idl.Opt, idl.Reserved:
			if err := d.skip(wire); err != nil {
				return nil, err
			}
			return idl.None, nil
		}
		return d.optInner(expect.Elem(), wire)
	}
}

// optInner decodes the value of an Opt, rewinding and skipping it to give None if it doesn't fit.
func (d *decoder) optInner(expect, wire *idl.Type) (any, error) {
	mark := d.b.Save()
	v, err := d.value(expect, wire)
	if err == nil {
		return idl.Some(v), nil
	}
	if !errors.Is(err, encio.ErrBadType) {
		return nil, err
	}

	d.config.Logger.Debug("opt value does not fit expected type; decoding as none", "expected", expect, "wire", wire, "error", err)
	d.b.Restore(mark)
	if err := d.skip(wire); err != nil {
		return nil, err
	}
	return idl.None, nil
}

func (d *decoder) vec(expect, wire *idl.Type) (any, error) {
	elem, err := expect.Elem().Resolve()
	if err != nil {
		return nil, err
	}
	wireElem, err := wire.Elem().Resolve()
	if err != nil {
		return nil, err
	}

	empty := zeroSized(wireElem)
	limit := d.config.limit(d.b)
	if empty {
		limit = min(d.zeroSized, d.config.MaxLength)
	}
	n, err := encio.ReadLength(d.b, limit)
	if err != nil {
		return nil, err
	}
	if empty {
		d.zeroSized -= uint64(n)
	}

	if elem.Kind() == wireElem.Kind() && elem.Kind().Width() > 0 {
		return d.dense(elem.Kind(), n)
	}

	values := make([]any, n)
	for i := range values {
		if values[i], err = d.value(expect.Elem(), wire.Elem()); err != nil {
			return nil, fmt.Errorf("index %d -> %w", i, err)
		}
	}
	return values, nil
}

// dense reads a vector of n fixed-width numbers into a packed slice.
func (d *decoder) dense(k idl.Kind, n int) (any, error) {
	bytes, err := d.b.Next(n * k.Width())
	if err != nil {
		return nil, err
	}

	var out any
	switch k {
	case idl.Nat8:
		return append([]uint8{}, bytes...), nil
	case idl.Nat16:
		out = make([]uint16, n)
	case idl.Nat32:
		out = make([]uint32, n)
	case idl.Nat64:
		out = make([]uint64, n)
	case idl.Int8:
		out = make([]int8, n)
	case idl.Int16:
		out = make([]int16, n)
	case idl.Int32:
		out = make([]int32, n)
	case idl.Int64:
		out = make([]int64, n)
	case idl.Float32:
		out = make([]float32, n)
	case idl.Float64:
		out = make([]float64, n)
	default:
		return nil, encio.NewError(encio.ErrBadType, fmt.Sprintf("%v is not a fixed-width number", k), 0)
	}

	if n == 0 {
		return out, nil
	}
	if err := binary.Read(encio.NewBuffer(bytes), binary.LittleEndian, out); err != nil {
		return nil, encio.NewIOError(err, "reading packed vector")
	}
	return out, nil
}

// record merges the wire fields into the expected fields by id.
func (d *decoder) record(expect, wire *idl.Type) (any, error) {
	ef, wf := expect.Fields(), wire.Fields()

	var tuple []any
	var record map[string]any
	if expect.IsTuple() {
		tuple = make([]any, len(ef))
	} else {
		record = make(map[string]any, len(ef))
	}
	set := func(i int, v any) {
		if tuple != nil {
			tuple[i] = v
		} else {
			record[ef[i].Label] = v
		}
	}

	i := 0
	for j := 0; j < len(wf); {
		switch {
		case i < len(ef) && ef[i].ID == wf[j].ID:
			v, err := d.value(ef[i].Type, wf[j].Type)
			if err != nil {
				return nil, fmt.Errorf("field %v -> %w", ef[i].Label, err)
			}
			set(i, v)
			i++
			j++

		case i < len(ef) && ef[i].ID < wf[j].ID:
			v, err := missing(ef[i])
			if err != nil {
				return nil, err
			}
			set(i, v)
			i++

		default:
			d.config.Logger.Debug("skipping unexpected record field", "id", wf[j].ID, "type", wf[j].Type)
			if err := d.skip(wf[j].Type); err != nil {
				return nil, fmt.Errorf("field %v -> %w", wf[j].Label, err)
			}
			j++
		}
	}

	for ; i < len(ef); i++ {
		v, err := missing(ef[i])
		if err != nil {
			return nil, err
		}
		set(i, v)
	}

	if tuple != nil {
		return tuple, nil
	}
	return record, nil
}

// missing returns the value of an expected field that isn't on the wire.
func missing(f idl.Field) (any, error) {
	t, err := f.Type.Resolve()
	if err != nil {
		return nil, err
	}
	switch t.Kind() {
	case idl.Opt:
		return idl.None, nil
	case idl.Reserved:
		return nil, nil
	default:
		return nil, encio.NewError(encio.ErrBadType, fmt.Sprintf("cannot find required field %v", f.Label), 0)
	}
}

func (d *decoder) variant(expect, wire *idl.Type) (any, error) {
	wf := wire.Fields()
	idx, err := encio.ReadUleb128Uint64(d.b)
	if err != nil {
		return nil, err
	}
	if idx >= uint64(len(wf)) {
		return nil, encio.NewError(encio.ErrMalformed, fmt.Sprintf("variant index %v out of range of %v cases", idx, len(wf)), 0)
	}

	field := wf[idx]
	i, ok := expect.FieldByID(field.ID)
	if !ok {
		return nil, encio.NewError(encio.ErrBadType, fmt.Sprintf("cannot find variant case %v (id %v) in %v", field.Label, field.ID, expect), 0)
	}

	ef := expect.Fields()[i]
	v, err := d.value(ef.Type, field.Type)
	if err != nil {
		return nil, fmt.Errorf("variant %v -> %w", ef.Label, err)
	}
	return map[string]any{ef.Label: v}, nil
}

// zeroSized returns true if values of t can take no bytes.
func zeroSized(t *idl.Type) bool {
	switch t.Kind() {
	case idl.Null, idl.Reserved:
		return true
	case idl.Record:
		for _, f := range t.Fields() {
			if f.Type.Kind() == idl.Rec || !zeroSized(f.Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
