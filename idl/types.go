package idl

import (
	"fmt"
	"sort"

	"github.com/stewi1014/didl/encio"
)

// Primitive type singletons.
var (
	NullType      = &Type{kind: Null}
	BoolType      = &Type{kind: Bool}
	NatType       = &Type{kind: Nat}
	IntType       = &Type{kind: Int}
	Nat8Type      = &Type{kind: Nat8}
	Nat16Type     = &Type{kind: Nat16}
	Nat32Type     = &Type{kind: Nat32}
	Nat64Type     = &Type{kind: Nat64}
	Int8Type      = &Type{kind: Int8}
	Int16Type     = &Type{kind: Int16}
	Int32Type     = &Type{kind: Int32}
	Int64Type     = &Type{kind: Int64}
	Float32Type   = &Type{kind: Float32}
	Float64Type   = &Type{kind: Float64}
	TextType      = &Type{kind: Text}
	ReservedType  = &Type{kind: Reserved}
	EmptyType     = &Type{kind: Empty}
	PrincipalType = &Type{kind: Principal}
	UnknownType   = &Type{kind: Unknown}
)

var primitives = map[Kind]*Type{
	Null:      NullType,
	Bool:      BoolType,
	Nat:       NatType,
	Int:       IntType,
	Nat8:      Nat8Type,
	Nat16:     Nat16Type,
	Nat32:     Nat32Type,
	Nat64:     Nat64Type,
	Int8:      Int8Type,
	Int16:     Int16Type,
	Int32:     Int32Type,
	Int64:     Int64Type,
	Float32:   Float32Type,
	Float64:   Float64Type,
	Text:      TextType,
	Reserved:  ReservedType,
	Empty:     EmptyType,
	Principal: PrincipalType,
	Unknown:   UnknownType,
}

// PrimitiveType returns the singleton type of a primitive kind or of Unknown.
func PrimitiveType(k Kind) (*Type, bool) {
	t, ok := primitives[k]
	return t, ok
}

// OptType returns an optional elem.
func OptType(elem *Type) *Type {
	mustType(elem, "opt element")
	return &Type{kind: Opt, elem: elem}
}

// VecType returns a vector of elem.
func VecType(elem *Type) *Type {
	mustType(elem, "vec element")
	return &Type{kind: Vec, elem: elem}
}

// RecordType returns a record with the given fields.
// Field IDs are computed from their labels, and the fields are sorted by them.
// It panics if two labels share an id.
func RecordType(fields ...Field) *Type {
	return &Type{kind: Record, fields: sortFields("record", fields)}
}

// VariantType returns a variant with the given fields.
// Field IDs are computed from their labels, and the fields are sorted by them.
// It panics if two labels share an id.
func VariantType(fields ...Field) *Type {
	return &Type{kind: Variant, fields: sortFields("variant", fields)}
}

// TupleType returns a record whose fields are the positions of elems.
func TupleType(elems ...*Type) *Type {
	fields := make([]Field, len(elems))
	for i, elem := range elems {
		mustType(elem, "tuple element")
		fields[i] = Field{Label: PositionalLabel(uint32(i)), ID: uint32(i), Type: elem}
	}
	return &Type{kind: Record, fields: fields, tuple: true}
}

// FuncType returns a function reference type.
// It panics if a mode is not one of Query, Oneway or CompositeQuery.
func FuncType(args, rets []*Type, modes ...FuncMode) *Type {
	for _, a := range args {
		mustType(a, "func argument")
	}
	for _, r := range rets {
		mustType(r, "func result")
	}
	for _, m := range modes {
		if m < Query || m > CompositeQuery {
			panic(encio.NewError(encio.ErrBadType, fmt.Sprintf("unknown func annotation %v", m), 0))
		}
	}

	return &Type{
		kind:  Func,
		args:  append([]*Type(nil), args...),
		rets:  append([]*Type(nil), rets...),
		modes: append([]FuncMode(nil), modes...),
	}
}

// ServiceType returns a service reference type with the given methods, sorted by name.
// It panics if a method name repeats or a method is not a Func or Rec.
func ServiceType(methods ...Method) *Type {
	sorted := append([]Method(nil), methods...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for i, m := range sorted {
		mustType(m.Type, "service method")
		if m.Type.kind != Func && m.Type.kind != Rec {
			panic(encio.NewError(encio.ErrBadType, fmt.Sprintf("service method %v is %v, not a func", m.Name, m.Type), 0))
		}
		if i > 0 && sorted[i-1].Name == m.Name {
			panic(encio.NewError(encio.ErrBadType, fmt.Sprintf("service method %v declared twice", m.Name), 0))
		}
	}
	return &Type{kind: Service, methods: sorted}
}

// RecType returns an unfilled placeholder for a recursive type.
// It can be used inside other types straight away, but must be filled before it is encoded, decoded or validated against.
func RecType() *Type {
	return &Type{kind: Rec}
}

// Fill sets the type a Rec stands in for.
// It panics if t is not a Rec, t is already filled, or inner is a primitive or another Rec.
func (t *Type) Fill(inner *Type) {
	mustType(inner, "rec fill")
	switch {
	case t.kind != Rec:
		panic(encio.NewError(encio.ErrBadType, fmt.Sprintf("cannot fill %v; not a rec", t), 0))
	case t.elem != nil:
		panic(encio.NewError(encio.ErrBadType, "rec filled twice", 0))
	case inner.kind == Rec || inner.kind.IsPrimitive() || inner.kind == Unknown:
		panic(encio.NewError(encio.ErrBadType, fmt.Sprintf("cannot fill rec with %v", inner.kind), 0))
	}
	t.elem = inner
}

func sortFields(what string, fields []Field) []Field {
	sorted := make([]Field, len(fields))
	for i, f := range fields {
		mustType(f.Type, what+" field "+f.Label)
		sorted[i] = Field{Label: f.Label, ID: LabelID(f.Label), Type: f.Type}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].ID == sorted[i].ID {
			panic(encio.NewError(
				encio.ErrBadType,
				fmt.Sprintf("%v fields %v and %v have the same id %v", what, sorted[i-1].Label, sorted[i].Label, sorted[i].ID),
				1,
			))
		}
	}
	return sorted
}

func mustType(t *Type, what string) {
	if t == nil {
		panic(encio.NewError(encio.ErrBadType, what+" is a nil type", 2))
	}
}
