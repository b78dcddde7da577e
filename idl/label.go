package idl

import (
	"math"
	"strconv"
	"strings"
)

// LabelID returns the canonical id of a field label.
//
// Labels that are an unsigned number, either bare ("3"), positional ("_3_") or positional hex ("_0x3_"),
// have that number as their id when it fits in 32 bits.
// Any other label is hashed over its UTF-8 bytes as id = id*223 + byte, modulo 2^32.
func LabelID(label string) uint32 {
	if id, ok := numericLabel(label); ok {
		return id
	}

	var id uint32
	for i := 0; i < len(label); i++ {
		id = id*223 + uint32(label[i])
	}
	return id
}

// PositionalLabel returns the label of the i'th field of a tuple.
func PositionalLabel(i uint32) string {
	return "_" + strconv.FormatUint(uint64(i), 10) + "_"
}

func numericLabel(label string) (uint32, bool) {
	digits, base := label, 10
	if len(label) > 2 && label[0] == '_' && label[len(label)-1] == '_' {
		digits = label[1 : len(label)-1]
		if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
			digits, base = digits[2:], 16
		}
	}

	if digits == "" || !isDigits(digits, base) {
		return 0, false
	}
	n, err := strconv.ParseUint(digits, base, 64)
	if err != nil || n > math.MaxUint32 {
		return 0, false
	}
	return uint32(n), true
}

// isDigits rejects the signs and underscores strconv would otherwise accept.
func isDigits(s string, base int) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case base == 16 && (c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'):
		default:
			return false
		}
	}
	return true
}
