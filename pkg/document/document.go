// Package document validates the document type and number of a lookup request.
package document

import (
	"errors"
	"strconv"
	"strings"
)

// Type is the registry letter of a document.
type Type string

const (
	TypeVenezuelan Type = "V"
	TypeForeign    Type = "E"
	TypeDNI        Type = "DNI"
)

// Types lists every accepted document type.
var Types = []Type{TypeVenezuelan, TypeForeign, TypeDNI}

var (
	ErrInvalidType   = errors.New("document type must be one of V, E or DNI")
	ErrInvalidNumber = errors.New("document number must be a positive integer")
)

// ParseType accepts V, E or DNI in any case and surrounding spaces, and
// returns the canonical upper-case type.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Types {
		if t == known {
			return t, nil
		}
	}
	return "", ErrInvalidType
}

// ParseNumber reads a document number. Thousands separators ('.' or ',')
// and surrounding spaces are tolerated: "12.345.678" is 12345678.
func ParseNumber(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(".", "", ",", "").Replace(s)
	if s == "" {
		return 0, ErrInvalidNumber
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, ErrInvalidNumber
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrInvalidNumber
	}
	return n, nil
}

// Format renders a document number the way it is sent upstream and hashed
// into cache keys.
func Format(n int64) string {
	return strconv.FormatInt(n, 10)
}
