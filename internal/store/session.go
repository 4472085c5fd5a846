// Package store - Session operations
//
// The session table is an append-only log of speed-test runs. Its columns
// are derived from the db tags of measure.Record the first time a record is
// written, so adding a field to the record adds a column to new databases.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/xtxerr/speedlog/internal/errors"
	"github.com/xtxerr/speedlog/internal/logging"
	"github.com/xtxerr/speedlog/internal/measure"
)

// column is one session column derived from a struct field.
type column struct {
	name    string
	sqlType string
	index   int
	kind    reflect.Kind
}

// columnsOf derives column definitions from the db tags of struct v.
//
//	string         -> VARCHAR
//	int*, bool     -> BIGINT (bool as 0/1)
//	float*         -> DOUBLE
func columnsOf(v any) ([]column, error) {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("session record must be a struct, got %s", t.Kind())
	}

	cols := make([]column, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := f.Tag.Get("db")
		if name == "" || name == "-" {
			continue
		}

		var sqlType string
		switch f.Type.Kind() {
		case reflect.String:
			sqlType = "VARCHAR"
		case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint8, reflect.Uint16, reflect.Uint32:
			sqlType = "BIGINT"
		case reflect.Float32, reflect.Float64:
			sqlType = "DOUBLE"
		default:
			return nil, fmt.Errorf("field %s: unsupported type %s", f.Name, f.Type)
		}

		cols = append(cols, column{name: name, sqlType: sqlType, index: i, kind: f.Type.Kind()})
	}
	return cols, nil
}

// createTableSQL renders the CREATE TABLE statement for cols.
func createTableSQL(table string, cols []column) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", table)
	fmt.Fprintf(&b, "\tid BIGINT PRIMARY KEY DEFAULT nextval('%s_id_seq')", table)
	for _, c := range cols {
		fmt.Fprintf(&b, ",\n\t%-17s %s NOT NULL", quoteIdent(c.name), c.sqlType)
	}
	b.WriteString("\n)")
	return b.String()
}

// quoteIdent quotes a column name; several record columns ("timestamp")
// collide with SQL keywords.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// EnsureSessionSchema creates the session table from the shape of rec if it
// does not exist yet. It is idempotent and never touches existing rows.
func (s *Store) EnsureSessionSchema(ctx context.Context, rec *measure.Record) error {
	_, err := s.sessionColumns(ctx, rec)
	return err
}

func (s *Store) sessionColumns(ctx context.Context, rec *measure.Record) ([]column, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	if s.sessionCols != nil {
		return s.sessionCols, nil
	}

	cols, err := columnsOf(rec)
	if err != nil {
		return nil, err
	}

	stmts := []string{
		`CREATE SEQUENCE IF NOT EXISTS sessions_id_seq`,
		createTableSQL("sessions", cols),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return nil, dbError("create session schema", err)
		}
	}

	s.sessionCols = cols
	return cols, nil
}

// AppendSession inserts rec as one row in its own transaction.
func (s *Store) AppendSession(ctx context.Context, rec *measure.Record) error {
	if rec == nil {
		return fmt.Errorf("append session: nil record: %w", errors.ErrInvalidField)
	}

	cols, err := s.sessionColumns(ctx, rec)
	if err != nil {
		return err
	}

	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]any, len(cols))

	v := reflect.ValueOf(rec).Elem()
	for i, c := range cols {
		names[i] = quoteIdent(c.name)
		marks[i] = "?"
		f := v.Field(c.index)
		if c.kind == reflect.Bool {
			var n int64
			if f.Bool() {
				n = 1
			}
			args[i] = n
			continue
		}
		args[i] = f.Interface()
	}

	query := fmt.Sprintf("INSERT INTO sessions (%s) VALUES (%s)",
		strings.Join(names, ", "), strings.Join(marks, ", "))

	err = s.TransactionContext(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return dbError("insert session", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logging.WithContext(ctx).Info("session appended", "component", "store", "best", rec.Best)
	return nil
}

// SessionFilter narrows ListSessions.
type SessionFilter struct {
	// Best selects only best (true) or only random (false) runs when set.
	Best *bool

	// Limit caps the number of rows; 0 means no limit.
	Limit int
}

// ListSessions returns stored sessions, oldest first.
func (s *Store) ListSessions(ctx context.Context, filter SessionFilter) ([]measure.Record, error) {
	cols, err := s.sessionColumns(ctx, &measure.Record{})
	if err != nil {
		return nil, err
	}

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = quoteIdent(c.name)
	}

	query := fmt.Sprintf("SELECT %s FROM sessions", strings.Join(names, ", "))
	var args []any
	if filter.Best != nil {
		query += " WHERE best = ?"
		if *filter.Best {
			args = append(args, 1)
		} else {
			args = append(args, 0)
		}
	}
	query += " ORDER BY id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError("query sessions", err)
	}
	defer rows.Close()

	var out []measure.Record
	for rows.Next() {
		var rec measure.Record
		v := reflect.ValueOf(&rec).Elem()

		flags := make(map[int]*int64)
		dest := make([]any, len(cols))
		for i, c := range cols {
			if c.kind == reflect.Bool {
				flags[c.index] = new(int64)
				dest[i] = flags[c.index]
				continue
			}
			dest[i] = v.Field(c.index).Addr().Interface()
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, dbError("scan session", err)
		}
		for idx, n := range flags {
			v.Field(idx).SetBool(*n != 0)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountSessions returns the number of stored sessions.
func (s *Store) CountSessions(ctx context.Context) (int64, error) {
	if _, err := s.sessionColumns(ctx, &measure.Record{}); err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM sessions`).Scan(&n); err != nil {
		return 0, dbError("count sessions", err)
	}
	return n, nil
}
