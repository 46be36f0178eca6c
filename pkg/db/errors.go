package db

import "strings"

// IsUniqueViolation reports whether err looks like a Postgres unique
// constraint failure. With a constraint name it matches that specific
// index; otherwise any duplicate-key error counts.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if constraintName != "" {
		return strings.Contains(err.Error(), constraintName)
	}
	return strings.Contains(err.Error(), "duplicate key value")
}
