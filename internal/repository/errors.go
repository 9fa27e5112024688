// Package repository implements the data access layer for the application.
package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, pgUniqueViolation)
}

// violatedColumn guesses which of columns a unique violation refers to, from
// the Postgres constraint name or the SQLite "UNIQUE constraint failed:
// table.column" message.
func violatedColumn(err error, columns ...string) string {
	haystack := strings.ToLower(err.Error())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		haystack = strings.ToLower(pgErr.ConstraintName + " " + pgErr.Detail)
	}
	for _, c := range columns {
		if strings.Contains(haystack, c) {
			return c
		}
	}
	return ""
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// containsPattern builds a case-insensitive substring pattern for LIKE.
func containsPattern(q string) string {
	return "%" + escapeLike(strings.ToLower(q)) + "%"
}
