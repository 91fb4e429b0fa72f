package internal

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// CorpusSchemaVersion is stored on every cached corpus. Bumping it invalidates
// all previously cached corpora regardless of their source version.
const CorpusSchemaVersion = 17

// Cache key prefixes
const (
	CorpusKeyPrefix  = "repo-content-"
	HistoryKeyPrefix = "repo-chat-"
)

// RepoIdentity identifies a repository, an optional branch and an optional
// subtree. It is derived once from a GitHub URL and never mutated.
type RepoIdentity struct {
	Owner     string `json:"owner" yaml:"owner"`
	Name      string `json:"name" yaml:"name"`
	Branch    string `json:"branch,omitempty" yaml:"branch,omitempty"`
	ScopePath string `json:"scope_path,omitempty" yaml:"scope_path,omitempty"`
}

// ID returns the owner/name form of the identity
func (r RepoIdentity) ID() string {
	return r.Owner + "/" + r.Name
}

// CorpusID returns the corpus identifier, suffixed by the scope path if any
func (r RepoIdentity) CorpusID() string {
	if r.ScopePath == "" {
		return r.ID()
	}
	return r.ID() + "-" + r.ScopePath
}

// CacheKey returns the persisted cache key of the corpus for this identity
func (r RepoIdentity) CacheKey() string {
	return CorpusKeyPrefix + r.CorpusID()
}

// URL returns the browsable GitHub URL of the identity
func (r RepoIdentity) URL() string {
	u := "https://github.com/" + r.ID()
	if r.Branch != "" {
		u += "/tree/" + r.Branch
		if r.ScopePath != "" {
			u += "/" + r.ScopePath
		}
	}
	return u
}

// ScopeName returns the last segment of the scope path
func (r RepoIdentity) ScopeName() string {
	if r.ScopePath == "" {
		return ""
	}
	parts := strings.Split(strings.Trim(r.ScopePath, "/"), "/")
	return parts[len(parts)-1]
}

// RepoInfo is the repository metadata reported by GitHub
type RepoInfo struct {
	FullName       string `json:"full_name" yaml:"full_name"`
	Name           string `json:"name" yaml:"name"`
	DefaultBranch  string `json:"default_branch" yaml:"default_branch"`
	PushedAt       string `json:"pushed_at" yaml:"pushed_at"` // version token for cache freshness
	OwnerLogin     string `json:"owner_login,omitempty" yaml:"owner_login,omitempty"`
	OwnerAvatarURL string `json:"owner_avatar_url,omitempty" yaml:"owner_avatar_url,omitempty"`
}

// Language is one entry of a repository's language breakdown
type Language struct {
	Name       string  `json:"name" yaml:"name"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
}

// NewLanguageBreakdown converts per-language byte counts into percentages,
// sorted by percentage descending (ties by name).
func NewLanguageBreakdown(bytes map[string]int) []Language {
	total := 0
	for _, n := range bytes {
		total += n
	}
	languages := make([]Language, 0, len(bytes))
	if total == 0 {
		return languages
	}
	for name, n := range bytes {
		languages = append(languages, Language{Name: name, Percentage: float64(n) / float64(total)})
	}
	sort.Slice(languages, func(i, j int) bool {
		if languages[i].Percentage == languages[j].Percentage {
			return languages[i].Name < languages[j].Name
		}
		return languages[i].Percentage > languages[j].Percentage
	})
	return languages
}

// SourceCorpus is the LLM-ready text representation of a repository.
// A corpus is either fully populated or carries only an Error.
type SourceCorpus struct {
	ID            string     `json:"id"`
	Tree          string     `json:"tree"`
	Content       string     `json:"content"`
	TokenLength   int        `json:"token_length"`
	NumberOfLines int        `json:"number_of_lines"`
	Languages     []Language `json:"languages"`
	SourceVersion string     `json:"source_version"`
	SchemaVersion int        `json:"schema_version"`
	Error         string     `json:"error,omitempty"`
}

// NewFailedCorpus builds an error placeholder for the given corpus id
func NewFailedCorpus(id, sourceVersion string, err error) *SourceCorpus {
	return &SourceCorpus{
		ID:            id,
		Languages:     []Language{},
		SourceVersion: sourceVersion,
		SchemaVersion: CorpusSchemaVersion,
		Error:         err.Error(),
	}
}

// Failed reports whether the corpus is an error placeholder
func (c *SourceCorpus) Failed() bool {
	return c != nil && c.Error != ""
}

// IsFresh reports whether a cached corpus may be served for the given push time
func (c *SourceCorpus) IsFresh(pushedAt string) bool {
	return c != nil && c.SchemaVersion == CorpusSchemaVersion && c.SourceVersion == pushedAt
}

// Validate checks the error/content exclusivity invariant
func (c *SourceCorpus) Validate() error {
	if c == nil {
		return errors.New("corpus is nil")
	}
	if c.ID == "" {
		return errors.New("corpus has no id")
	}
	if c.Error != "" {
		if c.Tree != "" || c.Content != "" || c.TokenLength != 0 || c.NumberOfLines != 0 {
			return fmt.Errorf("corpus %s has both an error and content", c.ID)
		}
		return nil
	}
	if c.Content == "" {
		return fmt.Errorf("corpus %s has no content", c.ID)
	}
	return nil
}
