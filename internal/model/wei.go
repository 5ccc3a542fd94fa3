package model

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParseWei parses a decimal wei string into a non-negative big.Int.
// Returns false for malformed or negative values.
func ParseWei(s string) (*big.Int, bool) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}

// FormatWei renders an amount as the decimal string stored in the database.
func FormatWei(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// NormalizeAddress lowercases a hex address so map and DB lookups are
// case-insensitive, matching how the original backend stores them.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// ValidAddress reports whether addr is a well-formed 0x hex address.
func ValidAddress(addr string) bool {
	return common.IsHexAddress(strings.TrimSpace(addr))
}

// SameAddress compares two addresses ignoring case.
func SameAddress(a, b string) bool {
	return NormalizeAddress(a) == NormalizeAddress(b)
}
