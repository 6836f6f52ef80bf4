package database

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// IsAlreadyExists reports whether err is a "column/table/index already exists" failure.
func IsAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// duplicate_column, duplicate_table (indexes report as relations)
		return pqErr.Code == "42701" || pqErr.Code == "42P07"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate column name") || strings.Contains(msg, "already exists")
}

// IsUniqueViolation reports whether err is a unique constraint failure.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
