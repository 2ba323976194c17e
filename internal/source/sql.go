package source

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "modernc.org/sqlite"
)

// SQL driver names understood by OpenSQL.
const (
	SQLDriverPostgres = "pgx"
	SQLDriverSQLite   = "sqlite"
)

const defaultSQLTable = "kpi_records"

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLConfig configures the sql driver. Rows live in Table with columns
// (source TEXT, seq INTEGER, doc TEXT); each doc is one JSON record and the
// reference selects rows by source.
type SQLConfig struct {
	Driver string `yaml:"driver" json:"driver"`
	DSN    string `yaml:"dsn" json:"-"`
	Table  string `yaml:"table" json:"table"`
}

// SQLFetcher assembles JSONL from rows of a records table.
type SQLFetcher struct {
	db     *sql.DB
	driver string
	query  string
}

var sqlOpen = sql.Open

// OpenSQL connects to cfg.DSN and verifies the connection.
func OpenSQL(ctx context.Context, cfg SQLConfig) (*SQLFetcher, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "postgres", "postgresql":
		driver = SQLDriverPostgres
	case "sqlite3":
		driver = SQLDriverSQLite
	}
	if driver != SQLDriverPostgres && driver != SQLDriverSQLite {
		return nil, fmt.Errorf("%w: sql driver %q", ErrUnknownDriver, cfg.Driver)
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sql dsn required")
	}
	db, err := sqlOpen(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	f, err := NewSQLFetcher(db, driver, cfg.Table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return f, nil
}

// NewSQLFetcher wraps an open handle. table defaults to kpi_records.
func NewSQLFetcher(db *sql.DB, driver, table string) (*SQLFetcher, error) {
	if table == "" {
		table = defaultSQLTable
	}
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid sql table name %q", table)
	}
	placeholder := "?"
	if driver == SQLDriverPostgres {
		placeholder = "$1"
	}
	return &SQLFetcher{
		db:     db,
		driver: driver,
		query:  fmt.Sprintf("SELECT doc FROM %s WHERE source = %s ORDER BY seq", table, placeholder),
	}, nil
}

// Fetch joins the docs stored under ref into newline-delimited JSON. A
// reference with no rows is reported as not found.
func (f *SQLFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	rows, err := f.db.QueryContext(ctx, f.query, ref)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", ref, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var buf bytes.Buffer
	n := 0
	for rows.Next() {
		var doc sql.NullString
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan %s: %w", ref, err)
		}
		buf.WriteString(doc.String)
		buf.WriteByte('\n')
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", ref, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s table rows for %s", ErrNotFound, f.driver, ref)
	}
	return buf.Bytes(), nil
}

// Close releases the database handle.
func (f *SQLFetcher) Close() error {
	if f == nil || f.db == nil {
		return nil
	}
	return f.db.Close()
}
