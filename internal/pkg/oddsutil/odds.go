// Package oddsutil centralizes parsing of vendor line strings and the
// "empty/zero means no price" sentinel convention, so every filtering and
// resolution path treats the same input the same way.
package oddsutil

import (
	"strconv"
	"strings"
)

// LineTolerance is the maximum difference between two parsed line values
// that still counts as the same line. Quarter lines arrive both as "0.25"
// and as "0/0.5" depending on the endpoint.
const LineTolerance = 0.01

// ParseLine parses a vendor line string into its canonical decimal value.
// A line may be a single signed number or several numbers joined by "/"
// (a split handicap); the result is the arithmetic mean of the segments.
// A leading sign distributes to every segment that carries no sign of its
// own, so "-1/1.5" reads as -1 and -1.5. Returns ok=false on empty or
// unparseable input; never panics.
func ParseLine(raw string) (float64, bool) {
	cleaned := stripLineString(raw)
	if cleaned == "" {
		return 0, false
	}

	neg := false
	switch cleaned[0] {
	case '-':
		neg = true
		cleaned = cleaned[1:]
	case '+':
		cleaned = cleaned[1:]
	}
	if cleaned == "" {
		return 0, false
	}

	segments := strings.Split(cleaned, "/")
	sum := 0.0
	count := 0
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		signed := seg[0] == '-' || seg[0] == '+'
		v, err := strconv.ParseFloat(seg, 64)
		if err != nil {
			return 0, false
		}
		if neg && !signed {
			v = -v
		}
		sum += v
		count++
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

// stripLineString drops everything except digits, '.', '/', '+', '-' and
// whitespace, then trims. Vendor payloads wrap lines in markup noise often
// enough that anything else would reject legitimate lines.
func stripLineString(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '/', r == '+', r == '-', r == ' ', r == '\t':
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// SameLine reports whether two vendor line strings denote the same line.
// Parsed values within LineTolerance match; when either side does not parse,
// it falls back to exact string equality after trimming.
func SameLine(a, b string) bool {
	va, oka := ParseLine(a)
	vb, okb := ParseLine(b)
	if oka && okb {
		diff := va - vb
		if diff < 0 {
			diff = -diff
		}
		return diff < LineTolerance
	}
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}

// IsValidOdds reports whether a vendor price string carries a real price.
// The vendor uses "" and "0.00" interchangeably for "no price".
func IsValidOdds(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false
	}
	return v != 0
}
