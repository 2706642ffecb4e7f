// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUnknownColumn is returned when a query or value names a column the table does not have.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrUnfiltered is returned by Update and Delete when the query has no conditions.
	ErrUnfiltered = errors.New("update or delete without a filter")
	// ErrNoValues is returned by Insert and Update when there is nothing to write.
	ErrNoValues = errors.New("no values to write")
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RowScanner is satisfied by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}

// Schema describes how a table maps onto T. Scan receives the columns in
// the order of Columns.
type Schema[T any] struct {
	Name    string
	Columns []string
	Scan    func(RowScanner) (T, error)
}

func (s Schema[T]) has(col string) bool {
	return slices.Contains(s.Columns, col)
}

// Values maps column names to the values to write.
type Values map[string]any

// sortedKeys keeps generated SQL stable.
func (v Values) sortedKeys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NullString stores an empty string as NULL.
func NullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type condition struct {
	column string
	op     string
	value  any
}

// Order is one ORDER BY term.
type Order struct {
	Column    string
	Ascending bool
}

// Query carries the filter, order and limit modifiers of a table operation.
// The zero value matches every row. Methods return modified copies.
type Query struct {
	conds  []condition
	orders []Order
	limit  int
}

// All returns a query matching every row.
func All() Query {
	return Query{}
}

// Where returns a query with a single equality condition.
func Where(column string, value any) Query {
	return Query{}.Eq(column, value)
}

func (q Query) with(c condition) Query {
	q.conds = append(slices.Clip(q.conds), c)
	return q
}

// Eq adds an exact-match condition.
func (q Query) Eq(column string, value any) Query {
	return q.with(condition{column, "=", value})
}

// Gte adds a column >= value condition.
func (q Query) Gte(column string, value any) Query {
	return q.with(condition{column, ">=", value})
}

// Lt adds a column < value condition.
func (q Query) Lt(column string, value any) Query {
	return q.with(condition{column, "<", value})
}

// Order appends an ordering term. Terms apply in the order they are added.
func (q Query) Order(column string, ascending bool) Query {
	q.orders = append(slices.Clip(q.orders), Order{Column: column, Ascending: ascending})
	return q
}

// Limit caps the number of rows returned. Zero means no limit.
func (q Query) Limit(n int) Query {
	q.limit = n
	return q
}

// Filtered reports whether the query has at least one condition.
func (q Query) Filtered() bool {
	return len(q.conds) > 0
}

// Table is a table-scoped client for rows of type T.
type Table[T any] struct {
	db      DBTX
	dialect Dialect
	schema  Schema[T]
	now     func() time.Time
	newID   func() string
}

// NewTable creates a table client.
func NewTable[T any](db DBTX, dialect Dialect, schema Schema[T]) *Table[T] {
	return &Table[T]{
		db:      db,
		dialect: dialect,
		schema:  schema,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.NewString() },
	}
}

// Name returns the table name.
func (t *Table[T]) Name() string {
	return t.schema.Name
}

func (t *Table[T]) checkColumn(col string) error {
	if !t.schema.has(col) {
		return fmt.Errorf("%s.%s: %w", t.schema.Name, col, ErrUnknownColumn)
	}
	return nil
}

// where renders the WHERE clause and its arguments.
func (t *Table[T]) where(q Query) (string, []any, error) {
	if len(q.conds) == 0 {
		return "", nil, nil
	}
	parts := make([]string, 0, len(q.conds))
	args := make([]any, 0, len(q.conds))
	for _, c := range q.conds {
		if err := t.checkColumn(c.column); err != nil {
			return "", nil, err
		}
		parts = append(parts, c.column+" "+c.op+" ?")
		args = append(args, c.value)
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func (t *Table[T]) selectSQL(q Query) (string, []any, error) {
	where, args, err := t.where(q)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(t.schema.Columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(t.schema.Name)
	sb.WriteString(where)

	if len(q.orders) > 0 {
		terms := make([]string, 0, len(q.orders))
		for _, o := range q.orders {
			if err := t.checkColumn(o.Column); err != nil {
				return "", nil, err
			}
			dir := "DESC"
			if o.Ascending {
				dir = "ASC"
			}
			terms = append(terms, o.Column+" "+dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(terms, ", "))
	}
	if q.limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(q.limit))
	}
	return t.dialect.Rebind(sb.String()), args, nil
}

// Select returns every row matching q.
func (t *Table[T]) Select(ctx context.Context, q Query) ([]T, error) {
	query, args, err := t.selectSQL(q)
	if err != nil {
		return nil, err
	}

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("selecting from %s: %w", t.schema.Name, err)
	}
	defer func() { _ = rows.Close() }()

	var out []T
	for rows.Next() {
		item, err := t.schema.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", t.schema.Name, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", t.schema.Name, err)
	}
	return out, nil
}

// MaybeSingle returns the first row matching q, or nil when there is none.
func (t *Table[T]) MaybeSingle(ctx context.Context, q Query) (*T, error) {
	query, args, err := t.selectSQL(q.Limit(1))
	if err != nil {
		return nil, err
	}

	item, err := t.schema.Scan(t.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("selecting from %s: %w", t.schema.Name, err)
	}
	return &item, nil
}

// Count returns the number of rows matching q. Order and limit are ignored.
func (t *Table[T]) Count(ctx context.Context, q Query) (int64, error) {
	where, args, err := t.where(q)
	if err != nil {
		return 0, err
	}
	query := t.dialect.Rebind("SELECT COUNT(*) FROM " + t.schema.Name + where)

	var n int64
	if err := t.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", t.schema.Name, err)
	}
	return n, nil
}

// Insert writes one row and returns its id. id, created_at and updated_at
// are filled in when the table has them and v does not set them.
func (t *Table[T]) Insert(ctx context.Context, v Values) (string, error) {
	if len(v) == 0 {
		return "", ErrNoValues
	}
	row := make(Values, len(v)+3)
	for k, val := range v {
		if err := t.checkColumn(k); err != nil {
			return "", err
		}
		row[k] = val
	}

	now := t.now()
	if t.schema.has("id") {
		if _, ok := row["id"]; !ok {
			row["id"] = t.newID()
		}
	}
	for _, col := range []string{"created_at", "updated_at"} {
		if _, ok := row[col]; !ok && t.schema.has(col) {
			row[col] = now
		}
	}

	keys := row.sortedKeys()
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = row[k]
	}
	query := t.dialect.Rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.schema.Name,
		strings.Join(keys, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", "),
	))

	if _, err := t.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("inserting into %s: %w", t.schema.Name, err)
	}

	id, _ := row["id"].(string)
	return id, nil
}

// Update writes v to every row matching q and returns the affected count.
// updated_at is refreshed when the table has it and v does not set it.
func (t *Table[T]) Update(ctx context.Context, v Values, q Query) (int64, error) {
	if len(v) == 0 {
		return 0, ErrNoValues
	}
	if !q.Filtered() {
		return 0, ErrUnfiltered
	}

	row := make(Values, len(v)+1)
	for k, val := range v {
		if err := t.checkColumn(k); err != nil {
			return 0, err
		}
		row[k] = val
	}
	if _, ok := row["updated_at"]; !ok && t.schema.has("updated_at") {
		row["updated_at"] = t.now()
	}

	keys := row.sortedKeys()
	sets := make([]string, len(keys))
	args := make([]any, 0, len(keys)+len(q.conds))
	for i, k := range keys {
		sets[i] = k + " = ?"
		args = append(args, row[k])
	}

	where, whereArgs, err := t.where(q)
	if err != nil {
		return 0, err
	}
	args = append(args, whereArgs...)

	query := t.dialect.Rebind("UPDATE " + t.schema.Name + " SET " + strings.Join(sets, ", ") + where)
	res, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("updating %s: %w", t.schema.Name, err)
	}
	return res.RowsAffected()
}

// Delete removes every row matching q and returns the affected count.
func (t *Table[T]) Delete(ctx context.Context, q Query) (int64, error) {
	if !q.Filtered() {
		return 0, ErrUnfiltered
	}
	where, args, err := t.where(q)
	if err != nil {
		return 0, err
	}

	res, err := t.db.ExecContext(ctx, t.dialect.Rebind("DELETE FROM "+t.schema.Name+where), args...)
	if err != nil {
		return 0, fmt.Errorf("deleting from %s: %w", t.schema.Name, err)
	}
	return res.RowsAffected()
}
