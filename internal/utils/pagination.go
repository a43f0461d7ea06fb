// Package utils provides small, generic helpers shared across layers.
// Nothing in here knows about the domain.
package utils

import "strconv"

// AtoiDefault converts a string to an int. Empty or malformed input
// returns the provided default instead of an error.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// BoundedAtoi parses s like AtoiDefault, additionally treating negative
// values as malformed and capping the result at max. Intended for
// limit/offset query parameters where out-of-range input must degrade
// to safe values rather than fail the request.
func BoundedAtoi(s string, def, max int) int {
	n := AtoiDefault(s, def)
	if n < 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
