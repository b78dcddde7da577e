package idl

import (
	"fmt"

	"github.com/stewi1014/didl/encio"
)

// Visitor handles each family of types.
// D is data passed down through Visit, and R is the result.
type Visitor[D, R any] interface {
	// VisitPrimitive is called for primitive types and Unknown.
	VisitPrimitive(t *Type, data D) R
	VisitOpt(t *Type, elem *Type, data D) R
	VisitVec(t *Type, elem *Type, data D) R
	VisitRecord(t *Type, fields []Field, data D) R
	VisitTuple(t *Type, elems []Field, data D) R
	VisitVariant(t *Type, fields []Field, data D) R
	// VisitRec is called with the filled type of a Rec; inner is nil if it was never filled.
	VisitRec(t *Type, inner *Type, data D) R
	VisitFunc(t *Type, data D) R
	VisitService(t *Type, data D) R
}

// Visit calls the method of v for the kind of t.
func Visit[D, R any](v Visitor[D, R], t *Type, data D) R {
	switch t.kind {
	case Null, Bool, Nat, Int, Nat8, Nat16, Nat32, Nat64, Int8, Int16, Int32, Int64,
		Float32, Float64, Text, Reserved, Empty, Principal, Unknown:
		return v.VisitPrimitive(t, data)
	case Opt:
		return v.VisitOpt(t, t.elem, data)
	case Vec:
		return v.VisitVec(t, t.elem, data)
	case Record:
		if t.tuple {
			return v.VisitTuple(t, t.fields, data)
		}
		return v.VisitRecord(t, t.fields, data)
	case Variant:
		return v.VisitVariant(t, t.fields, data)
	case Rec:
		return v.VisitRec(t, t.elem, data)
	case Func:
		return v.VisitFunc(t, data)
	case Service:
		return v.VisitService(t, data)
	default:
		panic(encio.NewError(encio.ErrBadType, fmt.Sprintf("unhandled kind %v", t.kind), 0))
	}
}
