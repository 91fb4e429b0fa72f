// Package server exposes ingestion over HTTP.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/iksnae/repo-pilot/internal"
	"github.com/iksnae/repo-pilot/internal/controller"
	"github.com/iksnae/repo-pilot/internal/github"
	"github.com/iksnae/repo-pilot/internal/ingest"
)

const (
	// DefaultIngestTimeout bounds a streamed ingestion
	DefaultIngestTimeout = 10 * time.Minute

	// ProgressChunkBytes is the least download growth reported by one
	// progress chunk
	ProgressChunkBytes = 64 * 1024
)

// Server serves the HTTP API
type Server struct {
	app      *fiber.App
	ingester controller.Ingester
	cache    *internal.CacheManager
	timeout  time.Duration
}

// New creates a server. cache may be nil, which disables the cache listing.
func New(ingester controller.Ingester, cache *internal.CacheManager) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			AppName: "Repo Pilot API",
		}),
		ingester: ingester,
		cache:    cache,
		timeout:  DefaultIngestTimeout,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "repo-pilot",
		})
	})

	api := s.app.Group("/api")
	api.Get("/repos/ingest", s.ingest)
	api.Get("/cache", s.listCache)
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called
func (s *Server) Listen(addr string) error {
	internal.LogInfo("Starting Repo Pilot API on %s", addr)
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// chunk is one streamed message. Exactly one field is set.
type chunk struct {
	Error     string                 `json:"error,omitempty"`
	Info      *internal.RepoInfo     `json:"info,omitempty"`
	ZipLoaded int64                  `json:"zipLoaded,omitempty"`
	Corpus    *internal.SourceCorpus `json:"corpus,omitempty"`
}

// ingest streams JSON chunks separated by a blank line: the repo info,
// download progress, then the corpus or an error.
func (s *Server) ingest(c fiber.Ctx) error {
	raw := c.Query("url")
	if raw == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "url is required"})
	}
	repo, err := github.ParseRepoURL(raw)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	return c.SendStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		send := func(msg chunk) {
			data, err := json.Marshal(msg)
			if err != nil {
				internal.LogError("Failed to encode chunk: %v", err)
				return
			}
			_, _ = w.Write(data)
			_, _ = w.WriteString("\n\n")
			if err := w.Flush(); err != nil {
				// client went away
				cancel()
			}
		}

		// observer callbacks run on this goroutine
		var received, reported int64
		obs := ingest.ObserverFuncs{
			Info: func(info *internal.RepoInfo) { send(chunk{Info: info}) },
			Progress: func(n int64) {
				received = n
				if received-reported >= ProgressChunkBytes {
					reported = received
					send(chunk{ZipLoaded: received})
				}
			},
		}
		result, err := s.ingester.Run(ctx, repo, obs)
		if err == nil && received > reported {
			send(chunk{ZipLoaded: received})
		}
		switch {
		case err != nil && errors.Is(err, context.DeadlineExceeded):
			send(chunk{Error: "ingestion timed out"})
		case err != nil:
			internal.LogDebug("Streamed ingestion of %s ended: %v", repo.CorpusID(), err)
		case result.Failed():
			send(chunk{Error: result.Error})
		default:
			send(chunk{Corpus: result})
		}
	})
}

func (s *Server) listCache(c fiber.Ctx) error {
	if s.cache == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "cache is not available"})
	}
	entries, err := s.cache.ListCorpora(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(entries)
}
