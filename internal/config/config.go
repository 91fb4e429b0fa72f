// Package config loads repo-pilot settings. Later sources override earlier
// ones: built-in defaults, the YAML settings file, a .env file, then the
// process environment. Command line flags are applied by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultMaxArchiveBytes caps the size of a downloaded branch archive
	DefaultMaxArchiveBytes int64 = 100 * 1024 * 1024

	// DefaultContextWindow is assumed for models missing from contextWindows
	DefaultContextWindow = 128_000

	// ConversationReserve is the part of the context window kept free for
	// the system instruction, the history window and the reply
	ConversationReserve = 10_000
)

// contextWindows maps model name prefixes to their context size in tokens
var contextWindows = map[string]int{
	"gpt-4o":        128_000,
	"gpt-4o-mini":   128_000,
	"gpt-4-turbo":   128_000,
	"gpt-4.1":       1_047_576,
	"gpt-4.1-mini":  1_047_576,
	"gpt-4.1-nano":  1_047_576,
	"gpt-5":         400_000,
	"o1":            200_000,
	"o3":            200_000,
	"o3-mini":       200_000,
	"o4-mini":       200_000,
	"gpt-3.5-turbo": 16_385,
}

// ContextWindow returns the context size of model, matched on the longest
// known name prefix so dated snapshots resolve to their family
func ContextWindow(model string) int {
	best, window := 0, DefaultContextWindow
	for prefix, size := range contextWindows {
		if strings.HasPrefix(model, prefix) && len(prefix) > best {
			best, window = len(prefix), size
		}
	}
	return window
}

// Config holds all settings
type Config struct {
	GitHub   GitHubConfig `yaml:"github"`
	OpenAI   OpenAIConfig `yaml:"openai"`
	Chat     ChatConfig   `yaml:"chat"`
	Ingest   IngestConfig `yaml:"ingest"`
	Cache    CacheConfig  `yaml:"cache"`
	Server   ServerConfig `yaml:"server"`
	LogLevel string       `yaml:"log_level"`
}

// GitHubConfig configures the GitHub REST API and archive host
type GitHubConfig struct {
	Token       string `yaml:"token"`
	APIBaseURL  string `yaml:"api_base_url"` // empty means api.github.com
	ArchiveBase string `yaml:"archive_base"`
}

// OpenAIConfig configures the chat completion provider
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// ChatConfig configures the conversation engine
type ChatConfig struct {
	HistoryWindow   int      `yaml:"history_window"`
	MaxOutputTokens int      `yaml:"max_output_tokens"`
	Temperature     *float64 `yaml:"temperature,omitempty"` // nil leaves the provider default
}

// IngestConfig configures repository ingestion
type IngestConfig struct {
	MaxArchiveBytes int64 `yaml:"max_archive_bytes"`
	MaxCorpusTokens int   `yaml:"max_corpus_tokens"` // 0 derives the limit from the model
	StripBodies     bool  `yaml:"strip_bodies"`
	SkipUndecodable bool  `yaml:"skip_undecodable"`
}

// CacheConfig selects the persisted cache backend
type CacheConfig struct {
	Path           string `yaml:"path"`      // sqlite database file
	RedisURL       string `yaml:"redis_url"` // takes precedence over Path when set
	RedisNamespace string `yaml:"redis_namespace"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Port string `yaml:"port"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		GitHub: GitHubConfig{
			ArchiveBase: "https://github.com",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Chat: ChatConfig{
			HistoryWindow:   10,
			MaxOutputTokens: 2000,
		},
		Ingest: IngestConfig{
			MaxArchiveBytes: DefaultMaxArchiveBytes,
		},
		Cache: CacheConfig{
			Path:           filepath.Join(Dir(), "cache.db"),
			RedisNamespace: "repo-pilot:",
		},
		Server: ServerConfig{
			Port: "3001",
		},
		LogLevel: "info",
	}
}

// Dir returns the settings directory, ~/.repo-pilot
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".repo-pilot"
	}
	return filepath.Join(home, ".repo-pilot")
}

// DefaultPath returns the default settings file path
func DefaultPath() string {
	return filepath.Join(Dir(), "settings.yaml")
}

// Load builds the configuration. A missing settings file or .env file is
// not an error; an unreadable or malformed one is.
func Load(settingsPath, envFile string) (Config, error) {
	cfg := Default()

	if settingsPath != "" {
		if err := cfg.loadFile(settingsPath); err != nil {
			return Config{}, err
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read settings %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.GitHub.Token = getEnv("GITHUB_TOKEN", c.GitHub.Token)
	c.GitHub.APIBaseURL = getEnv("GITHUB_API_URL", c.GitHub.APIBaseURL)
	c.GitHub.ArchiveBase = getEnv("GITHUB_ARCHIVE_BASE", c.GitHub.ArchiveBase)
	c.OpenAI.APIKey = getEnv("OPENAI_API_KEY", c.OpenAI.APIKey)
	c.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", c.OpenAI.BaseURL)
	c.OpenAI.Model = getEnv("REPO_PILOT_MODEL", c.OpenAI.Model)
	c.Cache.Path = getEnv("REPO_PILOT_CACHE", c.Cache.Path)
	c.Cache.RedisURL = getEnv("REDIS_URL", c.Cache.RedisURL)
	c.Server.Port = getEnv("REPO_PILOT_PORT", c.Server.Port)
	c.LogLevel = getEnv("REPO_PILOT_LOG_LEVEL", c.LogLevel)

	var err error
	if c.Chat.HistoryWindow, err = getEnvInt("REPO_PILOT_HISTORY_WINDOW", c.Chat.HistoryWindow); err != nil {
		return err
	}
	if c.Ingest.MaxArchiveBytes, err = getEnvInt64("REPO_PILOT_MAX_ARCHIVE_BYTES", c.Ingest.MaxArchiveBytes); err != nil {
		return err
	}
	if c.Ingest.MaxCorpusTokens, err = getEnvInt("REPO_PILOT_MAX_CORPUS_TOKENS", c.Ingest.MaxCorpusTokens); err != nil {
		return err
	}
	if c.Ingest.StripBodies, err = getEnvBool("REPO_PILOT_STRIP_BODIES", c.Ingest.StripBodies); err != nil {
		return err
	}
	return nil
}

// Save writes the settings file, creating its directory
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	// the file may hold API keys
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings %s: %w", path, err)
	}
	return nil
}

// Validate checks the settings needed by every command
func (c Config) Validate() error {
	if c.Chat.HistoryWindow < 0 {
		return errors.New("history window must be >= 0")
	}
	if c.Chat.MaxOutputTokens <= 0 {
		return errors.New("max output tokens must be > 0")
	}
	if c.Ingest.MaxArchiveBytes <= 0 {
		return errors.New("max archive bytes must be > 0")
	}
	if c.Ingest.MaxCorpusTokens < 0 {
		return errors.New("max corpus tokens must be >= 0")
	}
	if c.Cache.Path == "" && c.Cache.RedisURL == "" {
		return errors.New("missing cache path")
	}
	if !strings.HasPrefix(c.GitHub.ArchiveBase, "http://") && !strings.HasPrefix(c.GitHub.ArchiveBase, "https://") {
		return fmt.Errorf("invalid archive base %q", c.GitHub.ArchiveBase)
	}
	return nil
}

// CorpusTokenBudget returns the largest corpus, in tokens, that chat accepts.
// An explicit max_corpus_tokens wins over the model's context window.
func (c Config) CorpusTokenBudget() int {
	if c.Ingest.MaxCorpusTokens > 0 {
		return c.Ingest.MaxCorpusTokens
	}
	return ContextWindow(c.OpenAI.Model) - ConversationReserve
}

// ValidateChat checks the settings needed to talk to the model
func (c Config) ValidateChat() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.OpenAI.APIKey == "" {
		return errors.New("missing OpenAI API key (set OPENAI_API_KEY or openai.api_key)")
	}
	if c.OpenAI.Model == "" {
		return errors.New("missing model")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
