package didl

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/stewi1014/didl/encio"
	"github.com/stewi1014/didl/idl"
)

// rawEntry is a type table entry as read, with type references not yet resolved.
type rawEntry struct {
	kind    idl.Kind
	elem    int64
	fields  []rawField
	args    []int64
	rets    []int64
	modes   []idl.FuncMode
	methods []rawMethod
}

type rawField struct {
	id  uint32
	ref int64
}

type rawMethod struct {
	name string
	ref  int64
}

// readTable reads the type table and the type references of the values that follow.
func (d *decoder) readTable() ([]rawEntry, []int64, error) {
	n, err := encio.ReadLength(d.b, d.config.limit(d.b))
	if err != nil {
		return nil, nil, err
	}

	entries := make([]rawEntry, n)
	for i := range entries {
		if err := d.readEntry(&entries[i]); err != nil {
			return nil, nil, fmt.Errorf("type table entry %d: %w", i, err)
		}
	}

	refs, err := d.readRefs()
	if err != nil {
		return nil, nil, err
	}
	return entries, refs, nil
}

func (d *decoder) readEntry(e *rawEntry) error {
	op, err := encio.ReadSleb128Int64(d.b)
	if err != nil {
		return err
	}
	kind, ok := idl.KindOf(op)
	if !ok {
		return encio.NewError(encio.ErrMalformed, fmt.Sprintf("illegal opcode %v in type table", op), 0)
	}
	e.kind = kind

	switch kind {
	case idl.Opt, idl.Vec:
		e.elem, err = encio.ReadSleb128Int64(d.b)
		return err

	case idl.Record, idl.Variant:
		n, err := encio.ReadLength(d.b, d.config.limit(d.b))
		if err != nil {
			return err
		}
		e.fields = make([]rawField, n)
		for i := range e.fields {
			id, err := encio.ReadUleb128Uint64(d.b)
			if err != nil {
				return err
			}
			if id > math.MaxUint32 {
				return encio.NewError(encio.ErrMalformed, fmt.Sprintf("field id %v is larger than 32 bits", id), 0)
			}
			if i > 0 && uint32(id) <= e.fields[i-1].id {
				return encio.NewError(encio.ErrMalformed, fmt.Sprintf("field id %v follows %v; ids must be strictly increasing", id, e.fields[i-1].id), 0)
			}
			e.fields[i].id = uint32(id)
			if e.fields[i].ref, err = encio.ReadSleb128Int64(d.b); err != nil {
				return err
			}
		}
		return nil

	case idl.Func:
		if e.args, err = d.readRefs(); err != nil {
			return err
		}
		if e.rets, err = d.readRefs(); err != nil {
			return err
		}
		n, err := encio.ReadLength(d.b, d.config.limit(d.b))
		if err != nil {
			return err
		}
		e.modes = make([]idl.FuncMode, n)
		for i := range e.modes {
			by, err := d.b.ReadByte()
			if err != nil {
				return err
			}
			e.modes[i] = idl.FuncMode(by)
			if e.modes[i] < idl.Query || e.modes[i] > idl.CompositeQuery {
				return encio.NewError(encio.ErrMalformed, fmt.Sprintf("unknown func annotation %v", by), 0)
			}
		}
		return nil

	case idl.Service:
		n, err := encio.ReadLength(d.b, d.config.limit(d.b))
		if err != nil {
			return err
		}
		e.methods = make([]rawMethod, n)
		seen := make(map[string]bool, n)
		for i := range e.methods {
			name, err := d.readText()
			if err != nil {
				return err
			}
			if seen[name] {
				return encio.NewError(encio.ErrMalformed, fmt.Sprintf("service method %v declared twice", name), 0)
			}
			seen[name] = true
			e.methods[i].name = name
			if e.methods[i].ref, err = encio.ReadSleb128Int64(d.b); err != nil {
				return err
			}
		}
		return nil

	default:
		return encio.NewError(encio.ErrMalformed, fmt.Sprintf("illegal opcode %v (%v) in type table", op, kind), 0)
	}
}

func (d *decoder) readRefs() ([]int64, error) {
	n, err := encio.ReadLength(d.b, d.config.limit(d.b))
	if err != nil {
		return nil, err
	}
	refs := make([]int64, n)
	for i := range refs {
		if refs[i], err = encio.ReadSleb128Int64(d.b); err != nil {
			return nil, err
		}
	}
	return refs, nil
}

func (d *decoder) readText() (string, error) {
	n, err := encio.ReadLength(d.b, d.config.limit(d.b))
	if err != nil {
		return "", err
	}
	bytes, err := d.b.Next(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(bytes) {
		return "", encio.NewError(encio.ErrMalformed, "text is not valid UTF-8", 0)
	}
	return string(bytes), nil
}

// resolver builds types from a parsed table.
//
// Entries are built depth first. An entry met again while it is being built is part of a cycle;
// it is referred to through a Rec from the arena, which is filled once the entry is built.
type resolver struct {
	entries []rawEntry
	types   []*idl.Type
	arena   []*idl.Type
	state   []byte
}

const (
	stateNew = iota
	stateBuilding
	stateBuilt
)

func newResolver(entries []rawEntry) *resolver {
	return &resolver{
		entries: entries,
		types:   make([]*idl.Type, len(entries)),
		arena:   make([]*idl.Type, len(entries)),
		state:   make([]byte, len(entries)),
	}
}

// get returns the type for a type reference.
func (r *resolver) get(ref int64) (*idl.Type, error) {
	if ref < 0 {
		if ref < idl.Principal.Opcode() {
			return nil, encio.NewError(encio.ErrMalformed, fmt.Sprintf("future type %v not supported", ref), 0)
		}
		kind, _ := idl.KindOf(ref)
		t, ok := idl.PrimitiveType(kind)
		if !ok || !kind.IsPrimitive() {
			return nil, encio.NewError(encio.ErrMalformed, fmt.Sprintf("illegal type reference %v (%v)", ref, kind), 0)
		}
		return t, nil
	}

	if ref >= int64(len(r.entries)) {
		return nil, encio.NewError(encio.ErrMalformed, fmt.Sprintf("type index %v out of range of %v table entries", ref, len(r.entries)), 0)
	}

	switch r.state[ref] {
	case stateBuilt:
		return r.types[ref], nil
	case stateBuilding:
		if r.arena[ref] == nil {
			r.arena[ref] = idl.RecType()
		}
		return r.arena[ref], nil
	}

	r.state[ref] = stateBuilding
	t, err := r.build(&r.entries[ref])
	if err != nil {
		return nil, err
	}
	if rec := r.arena[ref]; rec != nil {
		rec.Fill(t)
		t = rec
	}
	r.types[ref] = t
	r.state[ref] = stateBuilt
	return t, nil
}

func (r *resolver) build(e *rawEntry) (*idl.Type, error) {
	list := func(refs []int64) ([]*idl.Type, error) {
		types := make([]*idl.Type, len(refs))
		for i, ref := range refs {
			t, err := r.get(ref)
			if err != nil {
				return nil, err
			}
			types[i] = t
		}
		return types, nil
	}

	switch e.kind {
	case idl.Opt, idl.Vec:
		elem, err := r.get(e.elem)
		if err != nil {
			return nil, err
		}
		if e.kind == idl.Opt {
			return idl.OptType(elem), nil
		}
		return idl.VecType(elem), nil

	case idl.Record, idl.Variant:
		fields := make([]idl.Field, len(e.fields))
		tuple := true
		for i, f := range e.fields {
			t, err := r.get(f.ref)
			if err != nil {
				return nil, err
			}
			fields[i] = idl.Field{Label: idl.PositionalLabel(f.id), Type: t}
			tuple = tuple && f.id == uint32(i)
		}
		switch {
		case e.kind == idl.Variant:
			return idl.VariantType(fields...), nil
		case tuple:
			elems := make([]*idl.Type, len(fields))
			for i := range fields {
				elems[i] = fields[i].Type
			}
			return idl.TupleType(elems...), nil
		default:
			return idl.RecordType(fields...), nil
		}

	case idl.Func:
		args, err := list(e.args)
		if err != nil {
			return nil, err
		}
		rets, err := list(e.rets)
		if err != nil {
			return nil, err
		}
		return idl.FuncType(args, rets, e.modes...), nil

	case idl.Service:
		methods := make([]idl.Method, len(e.methods))
		for i, m := range e.methods {
			if m.ref < 0 || m.ref >= int64(len(r.entries)) || r.entries[m.ref].kind != idl.Func {
				return nil, encio.NewError(encio.ErrMalformed, fmt.Sprintf("service method %v is not a func reference", m.name), 0)
			}
			t, err := r.get(m.ref)
			if err != nil {
				return nil, err
			}
			methods[i] = idl.Method{Name: m.name, Type: t}
		}
		return idl.ServiceType(methods...), nil

	default:
		return nil, encio.NewError(encio.ErrMalformed, fmt.Sprintf("illegal opcode %v in type table", e.kind.Opcode()), 0)
	}
}

// checkRecords rejects records that contain themselves through record fields alone.
// Such a record has no finite value; every path back to it must pass through an opt, vec or variant.
func (r *resolver) checkRecords() error {
	state := make([]byte, len(r.entries))
	var visit func(i int64) error
	visit = func(i int64) error {
		switch state[i] {
		case stateBuilding:
			return encio.NewError(encio.ErrMalformed, fmt.Sprintf("record %v contains itself and has no finite value", i), 0)
		case stateBuilt:
			return nil
		}
		state[i] = stateBuilding
		for _, f := range r.entries[i].fields {
			if f.ref >= 0 && f.ref < int64(len(r.entries)) && r.entries[f.ref].kind == idl.Record {
				if err := visit(f.ref); err != nil {
					return err
				}
			}
		}
		state[i] = stateBuilt
		return nil
	}

	for i, e := range r.entries {
		if e.kind == idl.Record {
			if err := visit(int64(i)); err != nil {
				return err
			}
		}
	}
	return nil
}
