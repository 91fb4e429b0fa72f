// Package controller wires repository selection, ingestion and the
// conversation engine together for a single user session.
package controller

import (
	"context"
	"fmt"
	"sync"

	"github.com/iksnae/repo-pilot/internal"
	"github.com/iksnae/repo-pilot/internal/conversation"
	"github.com/iksnae/repo-pilot/internal/export"
	"github.com/iksnae/repo-pilot/internal/github"
	"github.com/iksnae/repo-pilot/internal/ingest"
)

// Ingester runs ingestions
type Ingester interface {
	Run(ctx context.Context, repo internal.RepoIdentity, obs ingest.Observer) (*internal.SourceCorpus, error)
}

// Options configures a Controller
type Options struct {
	// MaxCorpusTokens rejects corpora that do not fit the model's context
	MaxCorpusTokens int
}

// Status is a snapshot of the current repository selection
type Status struct {
	Repo     *internal.RepoIdentity
	Info     *internal.RepoInfo
	State    ingest.State
	Received int64
	Corpus   *internal.SourceCorpus
}

// Controller owns the selected repository. Selecting a new repository
// cancels the previous ingestion; results of superseded ingestions are
// dropped.
type Controller struct {
	ingester Ingester
	engine   *conversation.Engine
	opts     Options

	// bindMu orders engine binds with generation changes
	bindMu     sync.Mutex
	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
	status     Status
	onStatus   func(Status)
	queue      []string
	draining   bool
}

// New creates a controller with no repository selected
func New(ingester Ingester, engine *conversation.Engine, opts Options) *Controller {
	return &Controller{
		ingester: ingester,
		engine:   engine,
		opts:     opts,
	}
}

// Engine returns the conversation engine
func (c *Controller) Engine() *conversation.Engine {
	return c.engine
}

// OnStatus registers fn to receive status updates of the current ingestion
func (c *Controller) OnStatus(fn func(Status)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStatus = fn
}

// Status returns the current selection
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Progress returns the bytes received by the current download
func (c *Controller) Progress() int64 { return c.Status().Received }

// Info returns the metadata of the selected repository, once resolved
func (c *Controller) Info() *internal.RepoInfo { return c.Status().Info }

// Corpus returns the corpus of the selected repository, once ingested
func (c *Controller) Corpus() *internal.SourceCorpus { return c.Status().Corpus }

// SetURL selects the repository at raw and starts ingesting it in the
// background. Use Wait to block until the corpus is available.
func (c *Controller) SetURL(ctx context.Context, raw string) error {
	repo, err := github.ParseRepoURL(raw)
	if err != nil {
		return err
	}

	c.bindMu.Lock()
	defer c.bindMu.Unlock()

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.generation++
	gen := c.generation
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	done := make(chan struct{})
	c.done = done
	c.status = Status{Repo: &repo, State: ingest.Idle}
	c.queue = nil
	c.mu.Unlock()

	// drop the previous conversation before anything of the new repo arrives
	if err := c.engine.Bind(ctx, nil); err != nil {
		internal.LogWarn("Failed to unbind conversation: %v", err)
	}
	c.publish(gen)

	go c.ingest(runCtx, gen, repo, done)
	return nil
}

func (c *Controller) ingest(ctx context.Context, gen uint64, repo internal.RepoIdentity, done chan struct{}) {
	defer close(done)

	obs := ingest.ObserverFuncs{
		State: func(s ingest.State) {
			c.update(gen, func(st *Status) { st.State = s })
		},
		Info: func(info *internal.RepoInfo) {
			c.update(gen, func(st *Status) { st.Info = info })
		},
		Progress: func(received int64) {
			c.update(gen, func(st *Status) { st.Received = received })
		},
	}

	result, err := c.ingester.Run(ctx, repo, obs)
	if err != nil {
		internal.LogDebug("Ingestion of %s abandoned: %v", repo.CorpusID(), err)
		return
	}
	result = c.checkSize(result)

	c.bindMu.Lock()
	defer c.bindMu.Unlock()
	c.mu.Lock()
	current := c.generation == gen
	c.mu.Unlock()
	if !current {
		return
	}
	if err := c.engine.Bind(ctx, result); err != nil {
		internal.LogWarn("%v", err)
	}
	c.update(gen, func(st *Status) { st.Corpus = result })
}

// checkSize turns corpora above the token limit into failures. The limit is
// a property of the model in use, so the cached corpus is left as is.
func (c *Controller) checkSize(corpus *internal.SourceCorpus) *internal.SourceCorpus {
	if c.opts.MaxCorpusTokens <= 0 || corpus.Failed() || corpus.TokenLength <= c.opts.MaxCorpusTokens {
		return corpus
	}
	err := fmt.Errorf("Source code is too large (%s tokens / %s lines)",
		internal.FormatCount(corpus.TokenLength), internal.FormatCount(corpus.NumberOfLines))
	failed := internal.NewFailedCorpus(corpus.ID, corpus.SourceVersion, err)
	failed.Languages = corpus.Languages
	return failed
}

func (c *Controller) update(gen uint64, fn func(*Status)) {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}
	fn(&c.status)
	c.mu.Unlock()
	c.publish(gen)
}

func (c *Controller) publish(gen uint64) {
	c.mu.Lock()
	if c.generation != gen || c.onStatus == nil {
		c.mu.Unlock()
		return
	}
	fn, status := c.onStatus, c.status
	c.mu.Unlock()
	fn(status)
}

// Wait blocks until the current ingestion ends and returns its corpus
func (c *Controller) Wait(ctx context.Context) (*internal.SourceCorpus, error) {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil, fmt.Errorf("no repository selected")
	}

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	status := c.Status()
	if status.Corpus == nil {
		return nil, fmt.Errorf("ingestion was superseded or cancelled")
	}
	return status.Corpus, nil
}

// Send submits text to the conversation. While an exchange sent through the
// controller is in flight, text is queued and sent once the engine is idle,
// in submission order; queued reports whether that happened.
func (c *Controller) Send(ctx context.Context, text string) (queued bool, err error) {
	c.mu.Lock()
	if c.draining {
		c.queue = append(c.queue, text)
		c.mu.Unlock()
		return true, nil
	}
	c.draining = true
	c.mu.Unlock()

	err = c.engine.Submit(ctx, text)
	for {
		c.mu.Lock()
		if len(c.queue) == 0 || ctx.Err() != nil {
			c.queue = nil
			c.draining = false
			c.mu.Unlock()
			return false, err
		}
		next := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()

		if qerr := c.engine.Submit(ctx, next); qerr != nil {
			internal.LogWarn("Dropping queued message: %v", qerr)
		}
	}
}

// Pending returns the messages waiting for the engine
func (c *Controller) Pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.queue...)
}

// ImportMarkdown loads a conversation document. If it belongs to another
// repository, that repository is selected and ingested first.
func (c *Controller) ImportMarkdown(ctx context.Context, text string) (*export.Imported, error) {
	imported, err := export.ParseMarkdown(text)
	if err != nil {
		return nil, err
	}
	repo, err := github.ParseRepoURL(imported.RepoURL)
	if err != nil {
		return nil, &internal.ImportError{Reason: err.Error()}
	}

	status := c.Status()
	if status.Repo == nil || status.Repo.CorpusID() != repo.CorpusID() {
		if err := c.SetURL(ctx, imported.RepoURL); err != nil {
			return nil, err
		}
	}

	corpus, err := c.Wait(ctx)
	if err != nil {
		return nil, err
	}
	if corpus.Failed() {
		return nil, fmt.Errorf("cannot import into %s: %s", corpus.ID, corpus.Error)
	}
	if err := c.engine.Replace(ctx, imported.Entries); err != nil {
		return nil, err
	}
	internal.LogInfo("Imported %d pairs into %s", len(imported.Entries), corpus.ID)
	return imported, nil
}

// Document builds an export document of the current conversation
func (c *Controller) Document() (*export.Document, error) {
	status := c.Status()
	if status.Repo == nil || status.Corpus == nil || status.Corpus.Failed() {
		return nil, internal.ErrNotReady
	}
	return export.NewDocument(*status.Repo, status.Corpus, c.engine.Snapshot().Entries), nil
}

// Close cancels the current ingestion
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
