package idl

import (
	"math/big"

	"github.com/stewi1014/didl/principal"
)

// Option is the value of an Opt type.
type Option struct {
	Value any
	Valid bool
}

// Some returns an Option holding v.
func Some(v any) Option {
	return Option{Value: v, Valid: true}
}

// None is the empty Option.
var None = Option{}

// FuncRef is the value of a Func type; a method on a service.
type FuncRef struct {
	Service principal.ID
	Method  string
}

// Decoded is the value decoded for an Unknown type,
// alongside the type it was decoded as.
//
// Record and variant labels of Type are positional, e.g. _4138712_, as names are not sent on the wire.
// Encoding Value as Type reproduces the same bytes.
type Decoded struct {
	Value any
	Type  *Type
}

// ToBigInt returns v as a big.Int, if v is an integer.
// The result may alias v.
func ToBigInt(v any) (*big.Int, bool) {
	switch n := v.(type) {
	case *big.Int:
		return n, n != nil
	case big.Int:
		return &n, true
	case int:
		return big.NewInt(int64(n)), true
	case int8:
		return big.NewInt(int64(n)), true
	case int16:
		return big.NewInt(int64(n)), true
	case int32:
		return big.NewInt(int64(n)), true
	case int64:
		return big.NewInt(n), true
	case uint:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint8:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint16:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint32:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint64:
		return new(big.Int).SetUint64(n), true
	case uintptr:
		return new(big.Int).SetUint64(uint64(n)), true
	default:
		return nil, false
	}
}

// IsDense returns true if v is the packed slice type for vectors of elem;
// []uint8 for nat8, []int64 for int64, []float32 for float32 and so on.
// Packed slices are encoded and decoded as a single copy.
func IsDense(elem Kind, v any) bool {
	switch v.(type) {
	case []uint8:
		return elem == Nat8
	case []uint16:
		return elem == Nat16
	case []uint32:
		return elem == Nat32
	case []uint64:
		return elem == Nat64
	case []int8:
		return elem == Int8
	case []int16:
		return elem == Int16
	case []int32:
		return elem == Int32
	case []int64:
		return elem == Int64
	case []float32:
		return elem == Float32
	case []float64:
		return elem == Float64
	default:
		return false
	}
}
