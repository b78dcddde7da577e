package didl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stewi1014/didl/encio"
	"github.com/stewi1014/didl/idl"
)

// table builds the type table of a message.
//
// Entries are keyed by a structural name, so equal types share an entry whatever their *idl.Type.
// Rec types are named by a counter local to the table; it never reaches the wire.
type table struct {
	entries [][]byte
	index   map[string]int
	names   map[*idl.Type]string
	recs    map[*idl.Type]int
}

func newTable() *table {
	return &table{
		index: make(map[string]int),
		names: make(map[*idl.Type]string),
		recs:  make(map[*idl.Type]int),
	}
}

// name returns the table key of t.
func (tb *table) name(t *idl.Type) string {
	if n, ok := tb.names[t]; ok {
		return n
	}

	var n string
	switch t.Kind() {
	case idl.Rec:
		id, ok := tb.recs[t]
		if !ok {
			id = len(tb.recs)
			tb.recs[t] = id
		}
		n = "rec_" + strconv.Itoa(id)

	case idl.Opt, idl.Vec:
		n = t.Kind().String() + " " + tb.name(t.Elem())

	case idl.Record, idl.Variant:
		var sb strings.Builder
		sb.WriteString(t.Kind().String())
		sb.WriteString(" {")
		for _, f := range t.Fields() {
			fmt.Fprintf(&sb, "%d:%s;", f.ID, tb.name(f.Type))
		}
		sb.WriteByte('}')
		n = sb.String()

	case idl.Func:
		var sb strings.Builder
		sb.WriteString("func (")
		for _, a := range t.Args() {
			sb.WriteString(tb.name(a))
			sb.WriteByte(',')
		}
		sb.WriteString(") -> (")
		for _, r := range t.Rets() {
			sb.WriteString(tb.name(r))
			sb.WriteByte(',')
		}
		sb.WriteByte(')')
		for _, m := range t.Modes() {
			sb.WriteByte(' ')
			sb.WriteString(m.String())
		}
		n = sb.String()

	case idl.Service:
		var sb strings.Builder
		sb.WriteString("service {")
		for _, m := range t.Methods() {
			fmt.Fprintf(&sb, "%s:%s;", strconv.Quote(m.Name), tb.name(m.Type))
		}
		sb.WriteByte('}')
		n = sb.String()

	default:
		n = t.Kind().String()
	}

	tb.names[t] = n
	return n
}

// add adds t and the types it uses to the table, children first.
func (tb *table) add(t *idl.Type) error {
	switch k := t.Kind(); {
	case k.IsPrimitive():
		return nil
	case k == idl.Unknown:
		return encio.NewError(encio.ErrBadType, "cannot encode unknown type", 0)
	}

	name := tb.name(t)
	if _, ok := tb.index[name]; ok {
		return nil
	}

	if t.Kind() == idl.Rec {
		return tb.addRec(t, name)
	}

	var children []*idl.Type
	switch t.Kind() {
	case idl.Opt, idl.Vec:
		children = []*idl.Type{t.Elem()}
	case idl.Record, idl.Variant:
		for _, f := range t.Fields() {
			children = append(children, f.Type)
		}
	case idl.Func:
		children = append(append(children, t.Args()...), t.Rets()...)
	case idl.Service:
		for _, m := range t.Methods() {
			children = append(children, m.Type)
		}
	}
	for _, child := range children {
		if err := tb.add(child); err != nil {
			return err
		}
	}
	if _, ok := tb.index[name]; ok {
		// added by a rec among the children
		return nil
	}

	entry, err := tb.entry(t)
	if err != nil {
		return err
	}
	tb.index[name] = len(tb.entries)
	tb.entries = append(tb.entries, entry)
	return nil
}

// addRec reserves a slot for the rec, so its inner type can refer to it, then moves the inner type's entry into that slot.
func (tb *table) addRec(t *idl.Type, name string) error {
	inner, err := t.Resolve()
	if err != nil {
		return err
	}

	slot := len(tb.entries)
	tb.index[name] = slot
	tb.entries = append(tb.entries, nil)

	if err := tb.add(inner); err != nil {
		return err
	}

	innerName := tb.name(inner)
	innerSlot := tb.index[innerName]
	tb.entries[slot] = tb.entries[innerSlot]

	if innerSlot == len(tb.entries)-1 && innerSlot != slot {
		// Nothing can refer to the inner slot yet; only types added after it could.
		tb.entries = tb.entries[:innerSlot]
		tb.index[innerName] = slot
	}
	return nil
}

// ref writes the type reference of t; its opcode for primitives, or its table index.
func (tb *table) ref(b *encio.Buffer, t *idl.Type) error {
	if t.Kind().IsPrimitive() {
		encio.WriteSleb128Int64(b, t.Kind().Opcode())
		return nil
	}

	i, ok := tb.index[tb.name(t)]
	if !ok {
		return encio.NewError(encio.ErrBadType, fmt.Sprintf("%v is not in the type table", t), 0)
	}
	encio.WriteSleb128Int64(b, int64(i))
	return nil
}

func (tb *table) entry(t *idl.Type) ([]byte, error) {
	b := encio.NewBuffer(nil)
	encio.WriteSleb128Int64(b, t.Kind().Opcode())

	refs := func(types []*idl.Type) error {
		encio.WriteUleb128Uint64(b, uint64(len(types)))
		for _, t := range types {
			if err := tb.ref(b, t); err != nil {
				return err
			}
		}
		return nil
	}

	switch t.Kind() {
	case idl.Opt, idl.Vec:
		if err := tb.ref(b, t.Elem()); err != nil {
			return nil, err
		}

	case idl.Record, idl.Variant:
		encio.WriteUleb128Uint64(b, uint64(len(t.Fields())))
		for _, f := range t.Fields() {
			encio.WriteUleb128Uint64(b, uint64(f.ID))
			if err := tb.ref(b, f.Type); err != nil {
				return nil, err
			}
		}

	case idl.Func:
		if err := refs(t.Args()); err != nil {
			return nil, err
		}
		if err := refs(t.Rets()); err != nil {
			return nil, err
		}
		encio.WriteUleb128Uint64(b, uint64(len(t.Modes())))
		for _, m := range t.Modes() {
			b.WriteByte(byte(m))
		}

	case idl.Service:
		encio.WriteUleb128Uint64(b, uint64(len(t.Methods())))
		for _, m := range t.Methods() {
			encio.WriteUleb128Uint64(b, uint64(len(m.Name)))
			b.WriteString(m.Name)
			if err := tb.ref(b, m.Type); err != nil {
				return nil, err
			}
		}

	default:
		return nil, encio.NewError(encio.ErrBadType, fmt.Sprintf("%v has no table entry", t.Kind()), 0)
	}

	return b.Bytes(), nil
}

// write writes the table length and entries.
func (tb *table) write(b *encio.Buffer) {
	encio.WriteUleb128Uint64(b, uint64(len(tb.entries)))
	for _, e := range tb.entries {
		b.Write(e)
	}
}
