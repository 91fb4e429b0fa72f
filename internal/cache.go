package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// CacheManager handles caching of corpora and conversation histories
type CacheManager struct {
	store Store
}

// CorpusIndexEntry summarizes one cached corpus
type CorpusIndexEntry struct {
	Key           string `json:"key" yaml:"key"`
	ID            string `json:"id" yaml:"id"`
	TokenLength   int    `json:"token_length" yaml:"token_length"`
	NumberOfLines int    `json:"number_of_lines" yaml:"number_of_lines"`
	SourceVersion string `json:"source_version" yaml:"source_version"`
	SchemaVersion int    `json:"schema_version" yaml:"schema_version"`
	Error         string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewCacheManager creates a new cache manager
func NewCacheManager(store Store) *CacheManager {
	return &CacheManager{
		store: store,
	}
}

// Store returns the underlying store
func (cm *CacheManager) Store() Store {
	return cm.store
}

// HistoryKey returns the cache key of a corpus' conversation history
func HistoryKey(corpusID string) string {
	return HistoryKeyPrefix + corpusID
}

// LoadCorpus loads a cached corpus. A missing key returns nil without error.
func (cm *CacheManager) LoadCorpus(ctx context.Context, key string) (*SourceCorpus, error) {
	data, err := cm.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var corpus SourceCorpus
	if err := json.Unmarshal(data, &corpus); err != nil {
		return nil, fmt.Errorf("failed to unmarshal corpus %s: %w", key, err)
	}
	return &corpus, nil
}

// FreshCorpus returns the cached corpus under key if its schema version is
// current and its source version equals pushedAt. Stale or unreadable
// entries are evicted and nil is returned.
func (cm *CacheManager) FreshCorpus(ctx context.Context, key, pushedAt string) (*SourceCorpus, error) {
	cached, err := cm.LoadCorpus(ctx, key)
	if err != nil {
		var storageErr *StorageError
		if errors.As(err, &storageErr) {
			return nil, err
		}
		LogWarn("Discarding unreadable cache entry %s: %v", key, err)
		cached = nil
	}

	if cached.IsFresh(pushedAt) {
		LogDebug("Cache hit for %s (source version %s)", key, pushedAt)
		return cached, nil
	}

	if err := cm.store.Delete(ctx, key); err != nil {
		return nil, err
	}
	if cached != nil {
		LogInfo("Evicted stale cache entry %s (schema %d, source %s)", key, cached.SchemaVersion, cached.SourceVersion)
	}
	return nil, nil
}

// SaveCorpus replaces the cached corpus under key
func (cm *CacheManager) SaveCorpus(ctx context.Context, key string, corpus *SourceCorpus) error {
	data, err := json.Marshal(corpus)
	if err != nil {
		return fmt.Errorf("failed to marshal corpus: %w", err)
	}
	return cm.store.Put(ctx, key, data)
}

// EvictCorpus removes the cached corpus under key
func (cm *CacheManager) EvictCorpus(ctx context.Context, key string) error {
	return cm.store.Delete(ctx, key)
}

// LoadHistory loads the conversation history of a corpus. A missing key
// returns an empty history.
func (cm *CacheManager) LoadHistory(ctx context.Context, corpusID string) ([]Entry, error) {
	data, err := cm.store.Get(ctx, HistoryKey(corpusID))
	if errors.Is(err, ErrNotFound) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history %s: %w", corpusID, err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// SaveHistory replaces the conversation history of a corpus
func (cm *CacheManager) SaveHistory(ctx context.Context, corpusID string, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	return cm.store.Put(ctx, HistoryKey(corpusID), data)
}

// DeleteHistory removes the conversation history of a corpus
func (cm *CacheManager) DeleteHistory(ctx context.Context, corpusID string) error {
	return cm.store.Delete(ctx, HistoryKey(corpusID))
}

// ListCorpora summarizes all cached corpora, skipping unreadable entries
func (cm *CacheManager) ListCorpora(ctx context.Context) ([]CorpusIndexEntry, error) {
	pairs, err := cm.store.List(ctx, CorpusKeyPrefix)
	if err != nil {
		return nil, err
	}

	entries := make([]CorpusIndexEntry, 0, len(pairs))
	for _, pair := range pairs {
		var corpus SourceCorpus
		if err := json.Unmarshal([]byte(pair.Value), &corpus); err != nil {
			LogWarn("Skipping unreadable cache entry %s: %v", pair.Key, err)
			continue
		}
		entries = append(entries, CorpusIndexEntry{
			Key:           pair.Key,
			ID:            corpus.ID,
			TokenLength:   corpus.TokenLength,
			NumberOfLines: corpus.NumberOfLines,
			SourceVersion: corpus.SourceVersion,
			SchemaVersion: corpus.SchemaVersion,
			Error:         corpus.Error,
		})
	}
	return entries, nil
}

// ClearCache removes every cached corpus and conversation history
func (cm *CacheManager) ClearCache(ctx context.Context) error {
	for _, prefix := range []string{CorpusKeyPrefix, HistoryKeyPrefix} {
		pairs, err := cm.store.List(ctx, prefix)
		if err != nil {
			return err
		}
		for _, pair := range pairs {
			if err := cm.store.Delete(ctx, pair.Key); err != nil {
				return err
			}
		}
	}
	return nil
}
