package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// CreateInMemoryDB creates an in-memory SQLite database with the cacheKV table
func CreateInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}
	db.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS cacheKV (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		t.Fatalf("Failed to create cacheKV table: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// CreateTestDB creates a test database with a cached corpus and history
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db := CreateInMemoryDB(t)

	rows := []struct {
		key   string
		value string
	}{
		{
			key:   "repo-content-octo/hello",
			value: `{"id":"octo/hello","tree":"README.md\n","content":"README.md:\n\n` + "```md\\n# hi\\n```" + `","token_length":12,"number_of_lines":1,"languages":[],"source_version":"2024-01-01T00:00:00Z","schema_version":17}`,
		},
		{
			key:   "repo-content-octo/broken",
			value: `{"id":"octo/broken","languages":[],"source_version":"2024-01-02T00:00:00Z","schema_version":17,"error":"The zip file is too large (150.0 MB), maximum is 100.0 MB."}`,
		},
		{
			key:   "repo-chat-octo/hello",
			value: `[{"user":{"role":"user","content":"hi"},"model":{"role":"model","content":"hello"}}]`,
		},
	}

	for _, row := range rows {
		if _, err := db.Exec("INSERT INTO cacheKV (key, value) VALUES (?, ?)", row.key, row.value); err != nil {
			t.Fatalf("Failed to insert %s: %v", row.key, err)
		}
	}

	return db
}
