package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/iksnae/repo-pilot/internal"
	"github.com/iksnae/repo-pilot/internal/export"
)

func writeMarkdownExport(t *testing.T, repoURL string, entries []internal.Entry) string {
	t.Helper()
	doc := &export.Document{RepoName: "octo/hello", RepoURL: repoURL, Entries: entries}
	path := filepath.Join(t.TempDir(), "conversation.md")
	if err := os.WriteFile(path, []byte(export.RenderMarkdown(doc).Content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImportCommand_ReplacesHistory(t *testing.T) {
	dbPath := seedCache(t, internal.CreateTestEntries(3))
	file := writeMarkdownExport(t, testRepoURL, []internal.Entry{
		internal.NewPair("What is this?", "A greeting service."),
	})

	if _, err := executeCommand(t, dbPath, "import", file); err != nil {
		t.Fatalf("import error = %v", err)
	}

	entries, err := openSeeded(t, dbPath).LoadHistory(context.Background(), "octo/hello")
	if err != nil {
		t.Fatalf("LoadHistory() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("history has %d entries, want 1", len(entries))
	}
	if entries[0].User.Content != "What is this?" || entries[0].Model.Content != "A greeting service." {
		t.Errorf("imported pair = %+v / %+v", entries[0].User, entries[0].Model)
	}
}

func TestImportCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	noRepo := filepath.Join(dir, "no-repo.md")
	if err := os.WriteFile(noRepo, []byte("# notes\n\njust text\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		file string
	}{
		{"missing file", filepath.Join(dir, "missing.md")},
		{"no repo line", noRepo},
		{"repository not cached", writeMarkdownExport(t, "https://github.com/octo/other", nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbPath := seedCache(t, nil)
			if _, err := executeCommand(t, dbPath, "import", tt.file); err == nil {
				t.Error("import should fail")
			}
		})
	}
}
