package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/iksnae/repo-pilot/internal"
	"github.com/iksnae/repo-pilot/internal/conversation"
	"github.com/iksnae/repo-pilot/internal/corpus"
	"github.com/iksnae/repo-pilot/internal/github"
	"github.com/iksnae/repo-pilot/internal/ingest"
	"github.com/iksnae/repo-pilot/internal/llm"
	"github.com/iksnae/repo-pilot/internal/outline"
)

// openCache opens the configured cache backend. Redis wins over SQLite.
func openCache(ctx context.Context) (*internal.CacheManager, error) {
	var store internal.Store
	var err error
	if cfg.Cache.RedisURL != "" {
		internal.LogDebug("Using Redis cache at %s", cfg.Cache.RedisURL)
		store, err = internal.OpenRedisStore(ctx, cfg.Cache.RedisURL, cfg.Cache.RedisNamespace)
	} else {
		internal.LogDebug("Using SQLite cache at %s", cfg.Cache.Path)
		store, err = internal.OpenSQLiteStore(cfg.Cache.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return internal.NewCacheManager(store), nil
}

func closeCache(cache *internal.CacheManager) {
	if err := cache.Store().Close(); err != nil {
		internal.LogWarn("Failed to close cache: %v", err)
	}
}

// newOrchestrator wires GitHub, the tokenizer and the cache into an ingestion pipeline
func newOrchestrator(cache *internal.CacheManager) (*ingest.Orchestrator, error) {
	httpClient := &http.Client{Timeout: 10 * time.Minute}

	repos, err := github.NewClient(httpClient, cfg.GitHub.Token, cfg.GitHub.APIBaseURL)
	if err != nil {
		return nil, err
	}
	fetcher := github.NewDownloader(httpClient, cfg.GitHub.ArchiveBase, cfg.GitHub.Token)

	tokenizer, err := llm.NewTokenizer(cfg.OpenAI.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	opts := ingest.Options{MaxArchiveBytes: cfg.Ingest.MaxArchiveBytes}
	if cfg.Ingest.StripBodies {
		opts.Transform = outline.Transform
	}
	if cfg.Ingest.SkipUndecodable {
		opts.DecodePolicy = corpus.SkipUndecodable
	}
	return ingest.New(repos, fetcher, tokenizer, cache, opts), nil
}

// newEngine creates a conversation engine talking to the configured model
func newEngine(cache *internal.CacheManager) (*conversation.Engine, error) {
	streamer, err := llm.NewOpenAI(llm.Config{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.OpenAI.Model,
		MaxRetries: 2,
	})
	if err != nil {
		return nil, err
	}
	return conversation.NewEngine(streamer, cache, conversation.Options{
		Window:          cfg.Chat.HistoryWindow,
		MaxOutputTokens: cfg.Chat.MaxOutputTokens,
		Temperature:     cfg.Chat.Temperature,
	}), nil
}

// loadCachedCorpus looks up the corpus of a repository URL without
// touching the network. A missing or failed corpus is an error.
func loadCachedCorpus(ctx context.Context, cache *internal.CacheManager, rawURL string) (internal.RepoIdentity, *internal.SourceCorpus, error) {
	repo, err := github.ParseRepoURL(rawURL)
	if err != nil {
		return internal.RepoIdentity{}, nil, err
	}
	cached, err := cache.LoadCorpus(ctx, repo.CacheKey())
	if err != nil {
		return repo, nil, err
	}
	if cached == nil {
		return repo, nil, fmt.Errorf("%s is not cached, run `repo-pilot ingest %s` first", repo.CorpusID(), rawURL)
	}
	if cached.Failed() {
		return repo, nil, fmt.Errorf("%s failed to ingest: %s", repo.CorpusID(), cached.Error)
	}
	return repo, cached, nil
}

// writeOutput writes data to path, or stdout when path is "-"
func writeOutput(path string, write func(f *os.File) error) error {
	if path == "-" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
