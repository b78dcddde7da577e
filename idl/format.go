package idl

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/stewi1014/didl/principal"
)

// FormatValue writes v in the textual form of its type t, e.g.
//
//	record {name = "root"; children = vec {opt 3; null}}
//
// Values that don't match t are written with %v.
// A Decoded value is written with the type it carries.
func FormatValue(t *Type, v any) string {
	var sb strings.Builder
	Visit[any, struct{}](formatter{sb: &sb}, t, v)
	return sb.String()
}

type formatter struct {
	sb *strings.Builder
}

func (f formatter) format(t *Type, v any) {
	Visit[any, struct{}](f, t, v)
}

func (f formatter) VisitPrimitive(t *Type, v any) (_ struct{}) {
	switch t.kind {
	case Null:
		f.sb.WriteString("null")
	case Reserved:
		f.sb.WriteString("reserved")
	case Text:
		if s, ok := v.(string); ok {
			f.sb.WriteString(strconv.Quote(s))
			return
		}
		fmt.Fprintf(f.sb, "%v", v)
	case Principal:
		f.principal("principal", v)
	case Float32, Float64:
		switch n := v.(type) {
		case float32:
			f.sb.WriteString(strconv.FormatFloat(float64(n), 'g', -1, 32))
		case float64:
			f.sb.WriteString(strconv.FormatFloat(n, 'g', -1, 64))
		default:
			fmt.Fprintf(f.sb, "%v", v)
		}
	case Unknown:
		if d, ok := v.(Decoded); ok && d.Type != nil {
			f.format(d.Type, d.Value)
			return
		}
		fmt.Fprintf(f.sb, "%v", v)
	default:
		if n, ok := v.(*big.Int); ok {
			f.sb.WriteString(n.String())
			return
		}
		fmt.Fprintf(f.sb, "%v", v)
	}
	return
}

func (f formatter) VisitOpt(t *Type, elem *Type, v any) (_ struct{}) {
	o, ok := v.(Option)
	if v == nil || ok && !o.Valid {
		f.sb.WriteString("null")
		return
	}
	if !ok {
		fmt.Fprintf(f.sb, "%v", v)
		return
	}
	f.sb.WriteString("opt ")
	f.format(elem, o.Value)
	return
}

func (f formatter) VisitVec(t *Type, elem *Type, v any) (_ struct{}) {
	elems, ok := toSlice(v)
	if !ok {
		fmt.Fprintf(f.sb, "%v", v)
		return
	}
	f.sb.WriteString("vec {")
	for i, e := range elems {
		if i > 0 {
			f.sb.WriteString("; ")
		}
		f.format(elem, e)
	}
	f.sb.WriteByte('}')
	return
}

func (f formatter) VisitRecord(t *Type, fields []Field, v any) (_ struct{}) {
	m, ok := v.(map[string]any)
	if !ok {
		fmt.Fprintf(f.sb, "%v", v)
		return
	}
	f.sb.WriteString("record {")
	for i, field := range fields {
		if i > 0 {
			f.sb.WriteString("; ")
		}
		f.sb.WriteString(field.Label)
		f.sb.WriteString(" = ")
		f.format(field.Type, m[field.Label])
	}
	f.sb.WriteByte('}')
	return
}

func (f formatter) VisitTuple(t *Type, elems []Field, v any) (_ struct{}) {
	values, ok := toSlice(v)
	if !ok || len(values) < len(elems) {
		fmt.Fprintf(f.sb, "%v", v)
		return
	}
	f.sb.WriteString("record {")
	for i, elem := range elems {
		if i > 0 {
			f.sb.WriteString("; ")
		}
		f.format(elem.Type, values[i])
	}
	f.sb.WriteByte('}')
	return
}

func (f formatter) VisitVariant(t *Type, fields []Field, v any) (_ struct{}) {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		fmt.Fprintf(f.sb, "%v", v)
		return
	}

	labels := make([]string, 0, len(m))
	for label := range m {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	f.sb.WriteString("variant {")
	f.sb.WriteString(labels[0])
	if i, ok := t.FieldByLabel(labels[0]); ok && fields[i].Type.kind != Null {
		f.sb.WriteString(" = ")
		f.format(fields[i].Type, m[labels[0]])
	}
	f.sb.WriteByte('}')
	return
}

func (f formatter) VisitRec(t *Type, inner *Type, v any) (_ struct{}) {
	if inner == nil {
		fmt.Fprintf(f.sb, "%v", v)
		return
	}
	f.format(inner, v)
	return
}

func (f formatter) VisitFunc(t *Type, v any) (_ struct{}) {
	ref, ok := v.(FuncRef)
	if !ok {
		fmt.Fprintf(f.sb, "%v", v)
		return
	}
	fmt.Fprintf(f.sb, "func %q.%v", ref.Service.String(), ref.Method)
	return
}

func (f formatter) VisitService(t *Type, v any) (_ struct{}) {
	f.principal("service", v)
	return
}

func (f formatter) principal(keyword string, v any) {
	id, ok := v.(principal.ID)
	if !ok {
		fmt.Fprintf(f.sb, "%v", v)
		return
	}
	fmt.Fprintf(f.sb, "%v %q", keyword, id.String())
}

func toSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	switch s := v.(type) {
	case []uint8:
		return spread(s), true
	case []uint16:
		return spread(s), true
	case []uint32:
		return spread(s), true
	case []uint64:
		return spread(s), true
	case []int8:
		return spread(s), true
	case []int16:
		return spread(s), true
	case []int32:
		return spread(s), true
	case []int64:
		return spread(s), true
	case []float32:
		return spread(s), true
	case []float64:
		return spread(s), true
	}
	return nil, false
}

func spread[T any](s []T) []any {
	out := make([]any, len(s))
	for i := range s {
		out[i] = s[i]
	}
	return out
}
