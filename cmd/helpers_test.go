package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/iksnae/repo-pilot/internal"
	"github.com/iksnae/repo-pilot/internal/github"
)

const (
	testRepoURL  = "https://github.com/octo/hello"
	testPushedAt = "2024-01-01T00:00:00Z"
)

// resetFlags restores every package-level flag variable, cobra keeps them between runs
func resetFlags() {
	verbose = false
	configPath = ""
	envFile = ""
	cachePath = ""
	redisURL = ""
	format = "md"
	outputPath = ""
	limit = 0
	showTree = false
	listClearCache = false
	clearAll = false
	clearHistoryOnly = false
	ingestShowTree = false
	ingestOut = ""
	chatAsk = ""
	servePort = ""
	inspectSampleRows = 5
	healthcheckVerbose = false
}

// executeCommand runs the root command with args against an isolated cache
func executeCommand(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Setenv("REDIS_URL", "")
	t.Setenv("REPO_PILOT_CACHE", "")

	full := append([]string{}, args...)
	full = append(full, "--config", filepath.Join(t.TempDir(), "settings.yaml"), "--env-file", "", "--cache", dbPath)

	var buf bytes.Buffer
	rootCmd.SetArgs(full)
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetIn(&bytes.Buffer{})
	err := rootCmd.Execute()
	return buf.String(), err
}

// seedCache writes a corpus for testRepoURL and the given history to a fresh database
func seedCache(t *testing.T, entries []internal.Entry) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cache.db")

	store, err := internal.OpenSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("OpenSQLiteStore() error = %v", err)
	}
	defer store.Close()
	cache := internal.NewCacheManager(store)

	repo, err := github.ParseRepoURL(testRepoURL)
	if err != nil {
		t.Fatalf("ParseRepoURL() error = %v", err)
	}
	ctx := context.Background()
	if err := cache.SaveCorpus(ctx, repo.CacheKey(), internal.CreateTestCorpus(repo, testPushedAt)); err != nil {
		t.Fatalf("SaveCorpus() error = %v", err)
	}
	if entries != nil {
		if err := cache.SaveHistory(ctx, repo.CorpusID(), entries); err != nil {
			t.Fatalf("SaveHistory() error = %v", err)
		}
	}
	return dbPath
}

// openSeeded reopens a database written by seedCache
func openSeeded(t *testing.T, dbPath string) *internal.CacheManager {
	t.Helper()
	store, err := internal.OpenSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("OpenSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return internal.NewCacheManager(store)
}

// syncBuffer is a bytes.Buffer safe for concurrent writers
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
