package idl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stewi1014/didl/encio"
)

// Type describes a DIDL type.
//
// Types are immutable once constructed, except for the one time Fill of a Rec,
// and are safe to share between concurrent encodes and decodes.
// Use the package constructors and singletons to create them.
type Type struct {
	kind    Kind
	elem    *Type   // Opt, Vec and filled Rec
	fields  []Field // Record and Variant, ascending by ID
	tuple   bool
	args    []*Type
	rets    []*Type
	modes   []FuncMode
	methods []Method // ascending by Name
}

// Field is a member of a Record or Variant.
type Field struct {
	Label string
	ID    uint32
	Type  *Type
}

// Method is a member of a Service.
type Method struct {
	Name string
	Type *Type
}

// FuncMode is an annotation on a Func type.
type FuncMode uint8

// Func annotations, with their wire values.
const (
	Query          FuncMode = 1
	Oneway         FuncMode = 2
	CompositeQuery FuncMode = 3
)

// String implements fmt.Stringer
func (m FuncMode) String() string {
	switch m {
	case Query:
		return "query"
	case Oneway:
		return "oneway"
	case CompositeQuery:
		return "composite_query"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// Kind returns the kind of the type.
func (t *Type) Kind() Kind {
	return t.kind
}

// Elem returns the element type of an Opt or Vec, or the filled type of a Rec.
// It returns nil for other kinds and for an unfilled Rec.
func (t *Type) Elem() *Type {
	return t.elem
}

// Fields returns the fields of a Record or Variant, sorted ascending by ID.
// The returned slice must not be modified.
func (t *Type) Fields() []Field {
	return t.fields
}

// FieldByID returns the index of the field with the given id.
func (t *Type) FieldByID(id uint32) (int, bool) {
	i := sort.Search(len(t.fields), func(i int) bool { return t.fields[i].ID >= id })
	return i, i < len(t.fields) && t.fields[i].ID == id
}

// FieldByLabel returns the index of the field with the given label.
func (t *Type) FieldByLabel(label string) (int, bool) {
	i, ok := t.FieldByID(LabelID(label))
	return i, ok && t.fields[i].Label == label
}

// IsTuple returns true for Records created with TupleType, or decoded with positional field ids.
func (t *Type) IsTuple() bool {
	return t.tuple
}

// Args returns the argument types of a Func.
func (t *Type) Args() []*Type {
	return t.args
}

// Rets returns the return types of a Func.
func (t *Type) Rets() []*Type {
	return t.rets
}

// Modes returns the annotations of a Func.
func (t *Type) Modes() []FuncMode {
	return t.modes
}

// Methods returns the methods of a Service, sorted by name.
func (t *Type) Methods() []Method {
	return t.methods
}

// Resolve returns the type a Rec stands in for, or t itself for any other kind.
// It returns an error wrapping ErrBadType if t is a Rec that has not been filled.
func (t *Type) Resolve() (*Type, error) {
	if t.kind != Rec {
		return t, nil
	}
	if t.elem == nil {
		return nil, encio.NewError(encio.ErrBadType, "recursive type uninitialized", 1)
	}
	return t.elem, nil
}

// String returns a human readable description of the type.
// Rec types are written as μrecN.<type> where first met, and as recN afterwards.
func (t *Type) String() string {
	var sb strings.Builder
	t.display(&sb, make(map[*Type]int))
	return sb.String()
}

func (t *Type) display(sb *strings.Builder, recs map[*Type]int) {
	switch t.kind {
	case Rec:
		if n, ok := recs[t]; ok {
			fmt.Fprintf(sb, "rec%d", n)
			return
		}
		n := len(recs)
		recs[t] = n
		if t.elem == nil {
			fmt.Fprintf(sb, "μrec%d.?", n)
			return
		}
		fmt.Fprintf(sb, "μrec%d.", n)
		t.elem.display(sb, recs)

	case Opt, Vec:
		sb.WriteString(t.kind.String())
		sb.WriteByte(' ')
		t.elem.display(sb, recs)

	case Record, Variant:
		sb.WriteString(t.kind.String())
		sb.WriteString(" {")
		for i, f := range t.fields {
			if i > 0 {
				sb.WriteString("; ")
			}
			switch {
			case t.tuple:
				f.Type.display(sb, recs)
			case t.kind == Variant && f.Type.kind == Null:
				sb.WriteString(f.Label)
			default:
				sb.WriteString(f.Label)
				sb.WriteByte(':')
				f.Type.display(sb, recs)
			}
		}
		sb.WriteByte('}')

	case Func:
		sb.WriteString("func ")
		t.displaySignature(sb, recs)

	case Service:
		sb.WriteString("service {")
		for i, m := range t.methods {
			if i > 0 {
				sb.WriteString("; ")
			}
			sb.WriteString(m.Name)
			sb.WriteByte(':')
			if m.Type.kind == Func {
				m.Type.displaySignature(sb, recs)
			} else {
				m.Type.display(sb, recs)
			}
		}
		sb.WriteByte('}')

	default:
		sb.WriteString(t.kind.String())
	}
}

func (t *Type) displaySignature(sb *strings.Builder, recs map[*Type]int) {
	list := func(types []*Type) {
		sb.WriteByte('(')
		for i, a := range types {
			if i > 0 {
				sb.WriteString(", ")
			}
			a.display(sb, recs)
		}
		sb.WriteByte(')')
	}

	list(t.args)
	sb.WriteString(" -> ")
	list(t.rets)
	for _, m := range t.modes {
		sb.WriteByte(' ')
		sb.WriteString(m.String())
	}
}
