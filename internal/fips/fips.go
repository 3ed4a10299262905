// Package fips normalizes Census FIPS codes and provides the combined
// state+county lookup used to attach county names to bridge records.
package fips

import (
	"strings"
)

// NormalizeState normalizes a state FIPS code to 2 digits with zero-padding.
func NormalizeState(code string) string {
	return pad(code, 2)
}

// NormalizeCounty normalizes a county FIPS code to 3 digits with zero-padding.
func NormalizeCounty(code string) string {
	return pad(code, 3)
}

// NormalizePlace normalizes a place FIPS code to 5 digits with zero-padding.
func NormalizePlace(code string) string {
	return pad(code, 5)
}

// NormalizeSubdivision normalizes a county subdivision FIPS code to 5 digits.
func NormalizeSubdivision(code string) string {
	return pad(code, 5)
}

// Combine concatenates state and county codes into a 5-digit county key.
// "6" + "37" → "06037". Returns "" if either part is blank.
func Combine(state, county string) string {
	s := NormalizeState(state)
	c := NormalizeCounty(county)
	if s == "" || c == "" {
		return ""
	}
	return s + c
}

// CombinePlace concatenates state and place codes into a 7-digit place key.
func CombinePlace(state, place string) string {
	s := NormalizeState(state)
	p := NormalizePlace(place)
	if s == "" || p == "" {
		return ""
	}
	return s + p
}

// pad trims the code, drops a spreadsheet-style ".0" suffix, and left-pads
// with zeros to width. Codes longer than width are returned unchanged.
func pad(code string, width int) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if i := strings.IndexByte(code, '.'); i > 0 && strings.Trim(code[i+1:], "0") == "" {
		code = code[:i]
	}
	if len(code) >= width {
		return code
	}
	return strings.Repeat("0", width-len(code)) + code
}
