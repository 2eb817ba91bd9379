package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// Table is a keyed table whose writes each run in their own transaction.
// Column names never come from callers directly: every name used to build
// SQL is checked against the columns given to NewTable.
type Table struct {
	db      *sql.DB
	name    string
	key     string
	columns map[string]struct{}
}

// NewTable describes the table name, its key column and its other columns.
func NewTable(db *sql.DB, name, key string, columns ...string) *Table {
	t := &Table{
		db:      db,
		name:    name,
		key:     key,
		columns: map[string]struct{}{key: {}},
	}
	for _, c := range columns {
		t.columns[c] = struct{}{}
	}
	return t
}

// Create inserts one row built from values.
func (t *Table) Create(ctx context.Context, values map[string]any) error {
	columns, err := t.sortedColumns(values)
	if err != nil {
		return err
	}
	if len(columns) == 0 {
		return fmt.Errorf("insert into %s: no values", t.name)
	}

	query := t.buildInsertRequest(columns)
	args := make([]any, 0, len(columns))
	for _, c := range columns {
		args = append(args, values[c])
	}

	return t.Transact(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", t.name, classify(t.name, err))
		}
		return nil
	})
}

// Update writes changes to the row identified by key. An empty change set
// succeeds without touching the database.
func (t *Table) Update(ctx context.Context, key any, changes map[string]any) error {
	if len(changes) == 0 {
		return nil
	}
	columns, err := t.sortedColumns(changes)
	if err != nil {
		return err
	}

	query := t.buildUpdateRequest(columns)
	args := make([]any, 0, len(columns)+1)
	for _, c := range columns {
		args = append(args, changes[c])
	}
	args = append(args, key)

	return t.Transact(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update %s: %w", t.name, classify(t.name, err))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update %s: %w", t.name, err)
		}
		if n == 0 {
			return fmt.Errorf("update %s %v: %w", t.name, key, ErrNotFound)
		}
		return nil
	})
}

// Transact runs fn inside a transaction, committing when fn succeeds and
// rolling back otherwise.
func (t *Table) Transact(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (t *Table) sortedColumns(values map[string]any) ([]string, error) {
	columns := make([]string, 0, len(values))
	for c := range values {
		if _, ok := t.columns[c]; !ok {
			return nil, fmt.Errorf("column %q does not exist in table %s", c, t.name)
		}
		columns = append(columns, c)
	}
	sort.Strings(columns)
	return columns, nil
}

func (t *Table) buildInsertRequest(columns []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return "INSERT INTO " + t.name + " (" + strings.Join(columns, ", ") + ") VALUES (" + placeholders + ")"
}

func (t *Table) buildUpdateRequest(columns []string) string {
	var b strings.Builder
	b.WriteString("UPDATE " + t.name + " SET ")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c + " = ?")
	}
	b.WriteString(" WHERE " + t.key + " = ?")
	return b.String()
}
