package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reSignedDigits  = regexp.MustCompile(`^[-+]?\d+$`)
	groupingChars   = strings.NewReplacer(".", "", ",", "", " ", "", "\u00a0", "", "\u202f", "")
	currencyMarkers = strings.NewReplacer("US$", "", "R$", "", "$", "", "€", "", "£", "")
)

// ParseNumber converts a locale-ambiguous numeric string into a float.
// Both "1.234,56" and "1,234.56" yield 1234.56. Anything unparseable yields 0.
func ParseNumber(input string) float64 {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0
	}

	s = cleanNumeric(normalizeNumericToken(s))
	parsed, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return parsed
}

// ParseNumberValue is ParseNumber for cells that may already be numeric. nil
// and unsupported types yield 0.
func ParseNumberValue(value any) float64 {
	switch v := value.(type) {
	case string:
		return ParseNumber(v)
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// FormatNumber renders a parsed value back to the dot-decimal form ParseNumber reads.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// IsNumber reports whether the value is numeric once grouping characters and a
// currency marker are removed.
func IsNumber(input string) bool {
	s := strings.TrimSpace(input)
	if s == "" {
		return false
	}
	s = currencyMarkers.Replace(s)
	s = groupingChars.Replace(strings.TrimSpace(s))
	if s == "" {
		return false
	}
	return reSignedDigits.MatchString(s)
}

func IsPercentage(input string) bool {
	s := strings.TrimSpace(input)
	if !strings.HasSuffix(s, "%") {
		return false
	}
	return IsNumber(strings.TrimSuffix(s, "%"))
}

// normalizeNumericToken rewrites the decimal separator to '.' and drops
// thousands separators.
func normalizeNumericToken(token string) string {
	lastDot := strings.LastIndex(token, ".")
	lastComma := strings.LastIndex(token, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		decimalAt := lastDot
		if lastComma > lastDot {
			decimalAt = lastComma
		}
		var b strings.Builder
		for i, r := range token {
			if r == '.' || r == ',' {
				if i == decimalAt {
					b.WriteByte('.')
				}
				continue
			}
			b.WriteRune(r)
		}
		return b.String()
	case lastComma >= 0:
		return strings.Replace(token, ",", ".", 1)
	}
	return token
}

// cleanNumeric keeps digits, one '.', and a '-' only in leading position. A
// second '.' ends the number, so "1.234.567" reads as 1.234.
func cleanNumeric(s string) string {
	var b strings.Builder
	seenDot := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.':
			if seenDot {
				return b.String()
			}
			seenDot = true
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
