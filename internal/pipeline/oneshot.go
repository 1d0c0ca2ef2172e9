package pipeline

import (
	"os"
	"path/filepath"
)

// ParseFile reads a table straight from disk.
func ParseFile(path string) (Table, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return Table{}, &ParseError{File: filepath.Base(path), Err: err}
	}
	return ParseTable(filepath.Base(path), blob)
}
