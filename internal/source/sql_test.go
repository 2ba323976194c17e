package source

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open(SQLDriverSQLite, filepath.Join(t.TempDir(), "records.sqlite"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Exec(`CREATE TABLE kpi_records (source TEXT NOT NULL, seq INTEGER NOT NULL, doc TEXT NOT NULL)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	rows := []struct {
		source string
		seq    int
		doc    string
	}{
		{"regulatory/approvals.jsonl", 2, `{"country":"PK","pct":80}`},
		{"regulatory/approvals.jsonl", 1, `{"country":"SK","pct":95}`},
		{"quality/labs.jsonl", 1, `{"tat":4}`},
	}
	for _, r := range rows {
		if _, err := db.Exec(`INSERT INTO kpi_records (source, seq, doc) VALUES (?, ?, ?)`, r.source, r.seq, r.doc); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	return db
}

func TestSQLFetcher(t *testing.T) {
	t.Parallel()

	f, err := NewSQLFetcher(openTestDB(t), SQLDriverSQLite, "")
	if err != nil {
		t.Fatalf("NewSQLFetcher returned error: %v", err)
	}
	data, err := f.Fetch(context.Background(), "regulatory/approvals.jsonl")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], `"SK"`) {
		t.Fatalf("rows not ordered by seq: %q", lines)
	}
	if _, err := f.Fetch(context.Background(), "quality/batches.jsonl"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestNewSQLFetcherRejectsBadTable(t *testing.T) {
	t.Parallel()

	if _, err := NewSQLFetcher(nil, SQLDriverSQLite, "records; DROP TABLE x"); err == nil {
		t.Fatalf("expected invalid table error")
	}
}

func TestOpenSQLite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "open.sqlite")
	f, closeFn, err := Open(context.Background(), Config{Driver: "sql", SQL: SQLConfig{Driver: "sqlite3", DSN: path}})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer func() { _ = closeFn() }()
	sf, ok := f.(*SQLFetcher)
	if !ok {
		t.Fatalf("fetcher = %T, want *SQLFetcher", f)
	}
	if sf.driver != SQLDriverSQLite || !strings.Contains(sf.query, "?") {
		t.Fatalf("driver = %q, query = %q", sf.driver, sf.query)
	}
}

func TestPostgresPlaceholder(t *testing.T) {
	t.Parallel()

	f, err := NewSQLFetcher(nil, SQLDriverPostgres, "pharma_records")
	if err != nil {
		t.Fatalf("NewSQLFetcher returned error: %v", err)
	}
	if want := "SELECT doc FROM pharma_records WHERE source = $1 ORDER BY seq"; f.query != want {
		t.Fatalf("query = %q, want %q", f.query, want)
	}
}
