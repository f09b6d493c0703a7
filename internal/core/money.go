// Package core provides amount parsing and formatting utilities.
//
// Amounts are whole currency units with no minor part.
package core

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
)

// ParseAmount converts user input to a positive whole amount.
//
// Thousands separators (comma, underscore, space) are accepted. Signs,
// decimal parts and zero are rejected.
//
// Examples:
//
//	ParseAmount("15000")  -> 15000, nil
//	ParseAmount("15,000") -> 15000, nil
//	ParseAmount("1.5")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(",", "", "_", "", " ", "").Replace(s)
	if s == "" {
		return 0, invalid("amount", ErrInvalidAmount)
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return 0, invalid("amount", ErrInvalidAmount)
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, invalid("amount", ErrInvalidAmount)
	}
	return v, nil
}

// FormatAmount renders an amount with thousands separators, e.g. "-15,000".
func FormatAmount(v int64) string {
	return humanize.Comma(v)
}
