package utils

import (
	"strconv"
	"strings"
)

// Filter returns the values of s for which f is true.
func Filter[T any](s []T, f func(T) bool) []T {
	var r []T
	for _, v := range s {
		if f(v) {
			r = append(r, v)
		}
	}
	return r
}

// FormatSats renders a sat amount with thousands separators, e.g.
// 1234567 -> "1,234,567".
func FormatSats(sats uint64) string {
	digits := strconv.FormatUint(sats, 10)

	var sb strings.Builder
	for i, digit := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteRune(',')
		}
		sb.WriteRune(digit)
	}
	return sb.String()
}
