package pipeline

import (
	"fmt"
	"strings"

	"campaignmap/internal"
)

type ValidationResult struct {
	Valid  bool
	Errors []string
}

// ValidationError carries every problem found in a mapping.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid mapping: " + strings.Join(e.Problems, "; ")
}

// ValidateMapping accumulates every failure: missing required fields, a date
// field whose column is not a date, numeric fields whose column is neither a
// number nor a percentage.
func ValidateMapping(mapping internal.Mapping, columnTypes map[string]internal.ColumnType) ValidationResult {
	errs := []string{}

	for _, field := range internal.RequiredFields {
		if strings.TrimSpace(mapping[field]) == "" {
			errs = append(errs, fmt.Sprintf("required field not mapped: %s", field))
		}
	}

	if header := mapping[internal.FieldDate]; strings.TrimSpace(header) != "" {
		if columnTypes[header] != internal.ColumnDate {
			errs = append(errs, fmt.Sprintf("column %q does not look like a date", header))
		}
	}

	for _, field := range internal.NumericFields {
		header := mapping[field]
		if strings.TrimSpace(header) == "" {
			continue
		}
		switch columnTypes[header] {
		case internal.ColumnNumber, internal.ColumnPercentage:
		default:
			errs = append(errs, fmt.Sprintf("column %q does not look numeric (%s)", header, field))
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Problems: r.Errors}
}
