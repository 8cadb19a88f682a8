package repository

import (
	"fmt"
	"regexp"
	"strings"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// RequiredBarColumns must all be present (case-insensitive) for a table to hold bars.
var RequiredBarColumns = []string{"bar_end_datetime", "open_price", "high_price", "low_price", "close_price"}

// ValidateTableName rejects identifiers that could not be safely quoted into SQL.
func ValidateTableName(name string) error {
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidTableName, name)
	}
	return nil
}

// HasBarColumns reports whether cols contains every required bar column.
func HasBarColumns(cols []string) bool {
	set := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		set[strings.ToLower(c)] = struct{}{}
	}
	for _, req := range RequiredBarColumns {
		if _, ok := set[req]; !ok {
			return false
		}
	}
	return true
}
