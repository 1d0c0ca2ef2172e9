package util

import (
	"regexp"
	"strings"
	"time"
)

type datePattern struct {
	re      *regexp.Regexp
	layouts []string
}

// Day-first readings are tried before month-first ones.
var datePatterns = []datePattern{
	{re: regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`), layouts: []string{"2006-01-02"}},
	{re: regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`), layouts: []string{"02/01/2006", "01/02/2006"}},
	{re: regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`), layouts: []string{"02-01-2006", "01-02-2006"}},
	{re: regexp.MustCompile(`^\d{4}/\d{2}/\d{2}$`), layouts: []string{"2006/01/02"}},
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"Jan 2, 2006 03:04 PM",
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 2006",
	"01-02-06",
}

// IsDate reports whether value matches one of the accepted date shapes and is a
// real calendar date.
func IsDate(value string) bool {
	_, ok := parseStrictDate(strings.TrimSpace(value))
	return ok
}

// ParseDate is the lenient variant used when normalizing records: the strict
// shapes plus common export timestamps.
func ParseDate(value string) (time.Time, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, false
	}
	if t, ok := parseStrictDate(s); ok {
		return t, true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseStrictDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, p := range datePatterns {
		if !p.re.MatchString(s) {
			continue
		}
		for _, layout := range p.layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}
	return time.Time{}, false
}
