package nbi

import (
	"math"
	"strconv"
	"strings"
)

// unquote trims whitespace and one pair of enclosing single or double
// quotes. NBI delimited files wrap text fields in single quotes.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}

// dropZeroFraction turns "12.0" into "12". Other values are returned as-is.
func dropZeroFraction(s string) string {
	if i := strings.IndexByte(s, '.'); i > 0 && isDigits(s[:i]) && strings.Trim(s[i+1:], "0") == "" {
		return s[:i]
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ParseRating parses a condition or appraisal rating. Blank, "N", any
// unparseable value and anything outside the 0-9 rating scale yield nil.
// Fractional values are floored.
func ParseRating(s string) *int {
	s = unquote(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	f = math.Floor(f)
	if f < 0 || f > 9 {
		return nil
	}
	v := int(f)
	return &v
}

// parseOptionalInt parses a passthrough integer field; nil when blank or invalid.
func parseOptionalInt(s string) *int64 {
	s = dropZeroFraction(unquote(s))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// CleanText strips apostrophes and surrounding whitespace from a free-text field.
func CleanText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "'", ""))
}

// SplitInspectionDate splits a packed MMYY inspection date. The value is
// left-padded with zeros to 4 characters first; no calendar validation is
// done, so "1307" gives month "13".
func SplitInspectionDate(s string) (month, year string) {
	s = dropZeroFraction(unquote(s))
	if s == "" {
		return "", ""
	}
	if len(s) < 4 {
		s = strings.Repeat("0", 4-len(s)) + s
	}
	return s[:2], s[len(s)-2:]
}

const (
	latitudeDegreeDigits  = 2
	longitudeDegreeDigits = 3
)

// ParseDMS converts a packed degrees-minutes-seconds coordinate (DDMMSSss
// for latitude, DDDMMSSss for longitude, seconds in hundredths) to decimal
// degrees. Blank, all-zero or out-of-range values yield nil.
func ParseDMS(s string, degreeDigits int) *float64 {
	s = dropZeroFraction(unquote(s))
	if !isDigits(s) || strings.Trim(s, "0") == "" {
		return nil
	}
	width := degreeDigits + 6
	if len(s) > width {
		return nil
	}
	if len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}

	deg, _ := strconv.Atoi(s[:degreeDigits])
	mins, _ := strconv.Atoi(s[degreeDigits : degreeDigits+2])
	hsec, _ := strconv.Atoi(s[degreeDigits+2:])
	secs := float64(hsec) / 100
	if mins >= 60 || secs >= 60 {
		return nil
	}

	v := float64(deg) + float64(mins)/60 + secs/3600
	v = math.Round(v*1e6) / 1e6
	return &v
}

// ParseLatitude decodes item 16.
func ParseLatitude(s string) *float64 {
	v := ParseDMS(s, latitudeDegreeDigits)
	if v == nil || *v > 90 {
		return nil
	}
	return v
}

// ParseLongitude decodes item 17. NBI longitudes are unsigned western
// hemisphere values, so the result is negated.
func ParseLongitude(s string) *float64 {
	v := ParseDMS(s, longitudeDegreeDigits)
	if v == nil || *v > 180 {
		return nil
	}
	neg := -*v
	return &neg
}
