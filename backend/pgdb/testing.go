package pgdb

import (
	"context"
	"database/sql"
	"os"
	"testing"
)

// OpenTest connects to TEST_DATABASE_URL, applies the schema and empties every
// table. The test is skipped when the variable is unset.
func OpenTest(t testing.TB) *sql.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := Open(ctx, url)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	if _, err := db.ExecContext(ctx, `TRUNCATE profiles, interest_edges, reviews RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
