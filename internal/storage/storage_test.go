package storage

import (
	"testing"
)

func TestOpenSQLite(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite", DSN: "file:storagetest1?mode=memory&cache=shared"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if db.Dialect.Name() != "sqlite" {
		t.Errorf("Dialect.Name() = %q, want sqlite", db.Dialect.Name())
	}

	// Schema must be queryable immediately after Open.
	for _, table := range []string{"channels", "accounts", "tokens", "usage_logs"} {
		var count int
		if err := db.Get(&count, "SELECT COUNT(*) FROM "+table); err != nil {
			t.Errorf("query %s: %v", table, err)
		}
	}
}

func TestOpenIdempotentSchema(t *testing.T) {
	dsn := "file:storagetest2?mode=memory&cache=shared"
	db, err := Open(Config{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	defer db.Close()

	// A second Open against the same database must not fail on existing
	// tables.
	db2, err := Open(Config{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	db2.Close()
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "oracle", DSN: ""}); err == nil {
		t.Fatal("Open() with unknown driver succeeded")
	}
}
