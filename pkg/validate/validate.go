// Package validate holds the pure input validators and the airport name
// normalization used by the compatibility rules.
package validate

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout     = "02 Jan 2006"
	DateTimeLayout = "02 Jan 2006 15:04"

	// MaxWeightKg is the upper bound for parcel weight and carry capacity
	MaxWeightKg = 10.0
)

var (
	phoneRe = regexp.MustCompile(`^\+\d{8,15}$`)
	emailRe = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	spaceRe = regexp.MustCompile(`\s+`)

	ErrWeightRange = errors.New("weight out of range")
)

// Phone checks a trimmed phone number: "+" followed by 8 to 15 digits.
func Phone(s string) bool {
	return phoneRe.MatchString(strings.TrimSpace(s))
}

// Email checks an email address. Intentionally permissive: local@domain.tld
// with no whitespace in any part.
func Email(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}

// Date parses a calendar date strictly against DateLayout.
func Date(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// DateTime parses a date-time strictly against DateTimeLayout.
func DateTime(s string) (time.Time, error) {
	return time.Parse(DateTimeLayout, strings.TrimSpace(s))
}

// Weight parses a kilogram value and enforces 0 < w <= MaxWeightKg.
func Weight(s string) (float64, error) {
	w, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if w <= 0 || w > MaxWeightKg {
		return 0, ErrWeightRange
	}
	return w, nil
}

// NormalizeAirport canonicalizes an airport name for comparison:
// uppercase, collapsed whitespace, and the tokens INTERNATIONAL, INTL and
// AIRPORT dropped as whole words. Two names denote the same location iff
// their normalized forms are identical.
func NormalizeAirport(name string) string {
	upper := strings.ToUpper(strings.TrimSpace(name))
	words := spaceRe.Split(upper, -1)
	kept := words[:0]
	for _, w := range words {
		switch w {
		case "INTERNATIONAL", "INTL", "AIRPORT", "":
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// SameLocation reports whether two airport names normalize to the same
// location.
func SameLocation(a, b string) bool {
	return NormalizeAirport(a) == NormalizeAirport(b)
}
