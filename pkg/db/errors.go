package db

import "strings"

// IsUniqueViolation reports whether err looks like a unique-constraint
// violation. With a constraintName it matches that constraint specifically;
// otherwise it matches the generic Postgres and sqlite messages, since tests
// run on sqlite.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
