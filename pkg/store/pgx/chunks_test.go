package pgx

import (
	"context"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/atlas/backend/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// recordingConn captures the SQL of every statement so query shapes can be
// checked without a live database.
type recordingConn struct {
	queries []string
}

func (c *recordingConn) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	c.queries = append(c.queries, sql)
	return pgconn.CommandTag{}, nil
}

func (c *recordingConn) Query(_ context.Context, sql string, _ ...any) (pgxv5.Rows, error) {
	c.queries = append(c.queries, sql)
	return emptyRows{}, nil
}

func (c *recordingConn) QueryRow(_ context.Context, sql string, _ ...any) pgxv5.Row {
	c.queries = append(c.queries, sql)
	return noRow{}
}

func (c *recordingConn) Begin(context.Context) (pgxv5.Tx, error) {
	return nil, pgxv5.ErrTxClosed
}

type emptyRows struct{}

func (emptyRows) Close()                                       {}
func (emptyRows) Err() error                                   { return nil }
func (emptyRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (emptyRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (emptyRows) Next() bool                                   { return false }
func (emptyRows) Scan(...any) error                            { return nil }
func (emptyRows) Values() ([]any, error)                       { return nil, nil }
func (emptyRows) RawValues() [][]byte                          { return nil }
func (emptyRows) Conn() *pgxv5.Conn                            { return nil }

type noRow struct{}

func (noRow) Scan(...any) error { return pgxv5.ErrNoRows }

func TestSearchStatementShape(t *testing.T) {
	conn := &recordingConn{}
	s := NewWithConnection(conn)

	if _, err := s.Search(context.Background(), []float32{1, 0}, 5, store.Filter{}); err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(conn.queries) != 1 {
		t.Fatalf("expected one query, got %d", len(conn.queries))
	}

	sql := conn.queries[0]
	if !strings.Contains(sql, "1 - (embedding <=> $1) / 2") {
		t.Fatalf("score must map cosine distance to [0, 1], got:\n%s", sql)
	}
	if !strings.Contains(sql, "ORDER BY embedding <=> $1, id") {
		t.Fatalf("equal distances must break ties on id, got:\n%s", sql)
	}
}

func TestSearchFilterConditions(t *testing.T) {
	conn := &recordingConn{}
	s := NewWithConnection(conn)

	year := 2024
	if _, err := s.Search(context.Background(), []float32{1, 0}, 5, store.Filter{
		SourceType: "paper",
		DocumentID: "doc1",
		Year:       &year,
	}); err != nil {
		t.Fatalf("search: %v", err)
	}

	sql := conn.queries[0]
	for _, cond := range []string{"source_type = $2", "document_id = $3", "year = $4"} {
		if !strings.Contains(sql, cond) {
			t.Errorf("missing filter condition %q in:\n%s", cond, sql)
		}
	}
}
