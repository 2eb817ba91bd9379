package database

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when an update matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateKey is matched by every *DuplicateKeyError.
	ErrDuplicateKey = errors.New("duplicate key")
)

// DuplicateKeyError reports a unique or primary key constraint violation.
type DuplicateKeyError struct {
	Table  string
	Column string
	err    error
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate value for %s.%s", e.Table, e.Column)
}

func (e *DuplicateKeyError) Is(target error) bool { return target == ErrDuplicateKey }

func (e *DuplicateKeyError) Unwrap() error { return e.err }

// classify turns driver constraint errors into *DuplicateKeyError and
// returns any other error unchanged.
func classify(table string, err error) error {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return &DuplicateKeyError{Table: table, Column: constraintColumn(sqliteErr.Error()), err: err}
	}
	return err
}

// constraintColumn extracts "email" from messages such as
// "UNIQUE constraint failed: users.email (2067)".
func constraintColumn(msg string) string {
	const marker = "constraint failed: "
	i := strings.LastIndex(msg, marker)
	if i < 0 {
		return ""
	}
	rest := msg[i+len(marker):]
	if j := strings.IndexAny(rest, " ,"); j >= 0 {
		rest = rest[:j]
	}
	if k := strings.LastIndex(rest, "."); k >= 0 {
		rest = rest[k+1:]
	}
	return rest
}
