// Package sqlite runs queries on a real embedded relational engine.
//
// Each query gets a private in-memory SQLite database (pure Go, no cgo): the
// dataset is loaded into table sensor_data, the query runs, the database is
// closed. Nothing is cached between calls, so queries stay independent of
// each other and of dataset regeneration.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/SimonWaldherr/sensorsql/internal/dataset"
	"github.com/SimonWaldherr/sensorsql/internal/engine"
)

const driverName = "sqlite"

// Engine implements engine.Prober on top of modernc.org/sqlite.
type Engine struct {
	dsn string
}

var _ engine.Prober = (*Engine)(nil)

// New returns an Engine using private in-memory databases.
func New() *Engine { return &Engine{dsn: ":memory:"} }

// Name implements engine.Engine.
func (*Engine) Name() string { return "sqlite" }

// Probe checks that the driver is registered and answers a trivial query.
func (e *Engine) Probe(ctx context.Context) error {
	db, err := e.open()
	if err != nil {
		return err
	}
	defer db.Close()
	var version string
	if err := db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version); err != nil {
		return fmt.Errorf("sqlite probe: %w", err)
	}
	return nil
}

// Version reports the embedded SQLite version.
func (e *Engine) Version(ctx context.Context) (string, error) {
	db, err := e.open()
	if err != nil {
		return "", err
	}
	defer db.Close()
	var version string
	err = db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version)
	return version, err
}

// Query implements engine.Engine. Statement kinds other than SELECT are
// rejected up front so the loaded copy is never modified by the caller.
func (e *Engine) Query(ctx context.Context, ds *dataset.Dataset, query string) (*engine.ResultSet, error) {
	if ds == nil {
		return nil, fmt.Errorf("%w: no dataset loaded", engine.ErrEvaluation)
	}
	if !isSelect(query) {
		return nil, engine.ErrUnsupportedStatement
	}
	db, err := e.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := load(ctx, db, ds); err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrEvaluation, err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func (e *Engine) open() (*sql.DB, error) {
	db, err := sql.Open(driverName, e.dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// every pooled connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	return db, nil
}

func isSelect(query string) bool {
	q := strings.TrimSpace(query)
	for strings.HasPrefix(q, "--") {
		if i := strings.IndexByte(q, '\n'); i >= 0 {
			q = strings.TrimSpace(q[i+1:])
		} else {
			return false
		}
	}
	return len(q) >= 6 && strings.EqualFold(q[:6], "select")
}

// load creates sensor_data with affinities inferred from the first row and
// inserts every row in one transaction.
func load(ctx context.Context, db *sql.DB, ds *dataset.Dataset) error {
	cols := ds.Cols
	if len(cols) == 0 {
		cols = dataset.Columns
	}
	defs := make([]string, len(cols))
	for i, c := range cols {
		var sample any
		if len(ds.Rows) > 0 {
			sample = ds.Rows[0][c]
		}
		defs[i] = quoteIdent(c) + " " + affinity(sample)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", dataset.TableName, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("%w: create table: %w", engine.ErrEvaluation, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", engine.ErrEvaluation, err)
	}
	defer tx.Rollback()

	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
		marks[i] = "?"
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		dataset.TableName, strings.Join(quoted, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("%w: %w", engine.ErrEvaluation, err)
	}
	defer stmt.Close()

	args := make([]any, len(cols))
	for _, r := range ds.Rows {
		for i, c := range cols {
			args[i] = r[c]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("%w: insert: %w", engine.ErrEvaluation, err)
		}
	}
	return tx.Commit()
}

func affinity(v any) string {
	switch v.(type) {
	case int, int64, int32:
		return "INTEGER"
	case float64, float32:
		return "REAL"
	}
	return "TEXT"
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func scanRows(rows *sql.Rows) (*engine.ResultSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrEvaluation, err)
	}
	rs := &engine.ResultSet{Cols: cols, Rows: make([]engine.Row, 0)}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%w: %w", engine.ErrEvaluation, err)
		}
		row := make(engine.Row, len(cols))
		for i, c := range cols {
			row[c] = normalize(vals[i])
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrEvaluation, err)
	}
	return rs, nil
}

// normalize maps driver values back onto the dataset's value types.
func normalize(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int64:
		return int(x)
	}
	return v
}
