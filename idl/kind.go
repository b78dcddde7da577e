package idl

import "fmt"

// Kind is the variant of a Type.
//
// The first 24 kinds are ordered so their wire opcode is -(kind+1).
type Kind uint8

// Kinds with a wire opcode.
const (
	Null Kind = iota
	Bool
	Nat
	Int
	Nat8
	Nat16
	Nat32
	Nat64
	Int8
	Int16
	Int32
	Int64
	Float32
	Float64
	Text
	Reserved
	Empty
	Opt
	Vec
	Record
	Variant
	Func
	Service
	Principal

	// Unknown decodes whatever type it meets on the wire. It can't be encoded.
	Unknown
	// Rec is a placeholder for a recursive type; it stands in for the type it is filled with.
	Rec

	numKinds
)

var kindNames = [numKinds]string{
	Null:      "null",
	Bool:      "bool",
	Nat:       "nat",
	Int:       "int",
	Nat8:      "nat8",
	Nat16:     "nat16",
	Nat32:     "nat32",
	Nat64:     "nat64",
	Int8:      "int8",
	Int16:     "int16",
	Int32:     "int32",
	Int64:     "int64",
	Float32:   "float32",
	Float64:   "float64",
	Text:      "text",
	Reserved:  "reserved",
	Empty:     "empty",
	Opt:       "opt",
	Vec:       "vec",
	Record:    "record",
	Variant:   "variant",
	Func:      "func",
	Service:   "service",
	Principal: "principal",
	Unknown:   "unknown",
	Rec:       "rec",
}

// String implements fmt.Stringer
func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Opcode returns the wire opcode of the kind.
// Unknown and Rec have no opcode; they return 0.
func (k Kind) Opcode() int64 {
	if k > Principal {
		return 0
	}
	return -int64(k) - 1
}

// KindOf returns the kind with the given wire opcode.
func KindOf(opcode int64) (Kind, bool) {
	if opcode >= 0 || opcode < Principal.Opcode() {
		return 0, false
	}
	return Kind(-opcode - 1), true
}

// IsPrimitive returns true for kinds whose type reference is their own opcode,
// and so never enter a type table.
func (k Kind) IsPrimitive() bool {
	return k <= Empty || k == Principal
}

// Width returns the size in bytes of a fixed-width number kind, and 0 for any other kind.
func (k Kind) Width() int {
	switch k {
	case Nat8, Int8:
		return 1
	case Nat16, Int16:
		return 2
	case Nat32, Int32, Float32:
		return 4
	case Nat64, Int64, Float64:
		return 8
	default:
		return 0
	}
}

// IsSigned returns true for Int and the fixed-width signed integer kinds.
func (k Kind) IsSigned() bool {
	return k == Int || (k >= Int8 && k <= Int64)
}
