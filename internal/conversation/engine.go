// Package conversation runs the multi-turn exchange between a user and the
// model over a bound source corpus.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/iksnae/repo-pilot/internal"
	"github.com/iksnae/repo-pilot/internal/llm"
)

// DefaultWindow is the number of settled pairs sent with each exchange
const DefaultWindow = 10

// ErrEmptyMessage is returned when a blank message is submitted
var ErrEmptyMessage = errors.New("message is empty")

// errEmptyReply rolls back exchanges that finish without any text
var errEmptyReply = errors.New("the model returned an empty reply")

// HistoryStore persists conversation histories by corpus id
type HistoryStore interface {
	LoadHistory(ctx context.Context, corpusID string) ([]internal.Entry, error)
	SaveHistory(ctx context.Context, corpusID string, entries []internal.Entry) error
	DeleteHistory(ctx context.Context, corpusID string) error
}

// Options configures an Engine
type Options struct {
	Window          int
	Persona         string
	MaxOutputTokens int
	Temperature     *float64
}

// Snapshot is a copy of the engine state
type Snapshot struct {
	CorpusID string
	// Entries holds the settled history followed by the in-flight pair, if any
	Entries            []internal.Entry
	PendingForResponse bool
	PendingForReply    bool
	Ready              bool
}

// Engine owns one conversation history. At most one exchange is in flight
// at a time; the in-flight pair is held apart from the settled history and
// only committed once the stream ends successfully.
type Engine struct {
	streamer llm.Streamer
	store    HistoryStore
	opts     Options

	mu                 sync.Mutex
	corpus             *internal.SourceCorpus
	generation         uint64
	history            []internal.Entry
	open               *internal.Entry
	pendingForResponse bool
	pendingForReply    bool
	cancel             context.CancelFunc
	onChange           func(Snapshot)
}

// NewEngine creates an unbound engine
func NewEngine(streamer llm.Streamer, store HistoryStore, opts Options) *Engine {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	return &Engine{
		streamer: streamer,
		store:    store,
		opts:     opts,
		history:  []internal.Entry{},
	}
}

// OnChange registers fn to receive a snapshot after every state change.
// fn is called without the engine lock held.
func (e *Engine) OnChange(fn func(Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = fn
}

// Snapshot returns a copy of the current state
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	entries := make([]internal.Entry, 0, len(e.history)+1)
	for _, entry := range e.history {
		entries = append(entries, entry.Clone())
	}
	if e.open != nil {
		entries = append(entries, e.open.Clone())
	}
	s := Snapshot{
		Entries:            entries,
		PendingForResponse: e.pendingForResponse,
		PendingForReply:    e.pendingForReply,
		Ready:              e.corpus != nil,
	}
	if e.corpus != nil {
		s.CorpusID = e.corpus.ID
	}
	return s
}

// notify must be called without the lock held
func (e *Engine) notify(s Snapshot) {
	e.mu.Lock()
	fn := e.onChange
	e.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

// Bind attaches the engine to corpus and loads its persisted history. A nil
// or failed corpus leaves the engine unready. Any in-flight exchange of the
// previous corpus is cancelled and its outcome discarded. If loading fails
// the engine is bound with an empty history and the error is returned.
func (e *Engine) Bind(ctx context.Context, corpus *internal.SourceCorpus) error {
	e.mu.Lock()
	e.generation++
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.open = nil
	e.pendingForResponse = false
	e.pendingForReply = false
	e.history = []internal.Entry{}
	e.corpus = nil
	if corpus != nil && !corpus.Failed() {
		e.corpus = corpus
	}
	bound := e.corpus
	gen := e.generation
	e.mu.Unlock()

	var loadErr error
	if bound != nil {
		entries, err := e.store.LoadHistory(ctx, bound.ID)
		if err != nil {
			loadErr = fmt.Errorf("failed to load history of %s: %w", bound.ID, err)
			internal.LogWarn("%v", loadErr)
		} else {
			e.mu.Lock()
			if e.generation == gen {
				e.history = entries
			}
			e.mu.Unlock()
			internal.LogDebug("Loaded %d history entries for %s", len(entries), bound.ID)
		}
	}

	e.notify(e.Snapshot())
	return loadErr
}

// Submit sends text to the model and blocks until the exchange ends. The
// user turn is visible in snapshots immediately. Stream failures roll the
// pair back and append a system note; they are not returned.
func (e *Engine) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)

	e.mu.Lock()
	if e.corpus == nil {
		e.mu.Unlock()
		return internal.ErrNotReady
	}
	if e.pendingForReply {
		e.mu.Unlock()
		return internal.ErrBusy
	}
	if text == "" {
		e.mu.Unlock()
		return ErrEmptyMessage
	}

	exCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.pendingForResponse = true
	e.pendingForReply = true
	e.open = &internal.Entry{User: &internal.Turn{Role: internal.RoleUser, Content: text}}
	gen := e.generation
	corpus := e.corpus
	exchange := llm.Exchange{
		SystemInstruction: SystemInstruction(e.opts.Persona, corpus.Content),
		Turns:             append(windowTurns(e.history, e.opts.Window), *e.open.User),
		MaxOutputTokens:   e.opts.MaxOutputTokens,
		Temperature:       e.opts.Temperature,
	}
	started := e.snapshotLocked()
	e.mu.Unlock()
	e.notify(started)

	defer cancel()
	err := e.stream(exCtx, gen, exchange)
	e.finish(context.WithoutCancel(ctx), gen, corpus.ID, err)
	return nil
}

// stream applies chunks to the open pair in the order they arrive
func (e *Engine) stream(ctx context.Context, gen uint64, ex llm.Exchange) error {
	s, err := e.streamer.StartExchange(ctx, ex)
	if err != nil {
		return err
	}
	defer s.Close()

	var acc strings.Builder
	var usage *internal.Usage
	for s.Next() {
		chunk := s.Chunk()
		acc.WriteString(chunk.TextDelta)
		if chunk.Usage != nil {
			u := *chunk.Usage
			usage = &u
		}

		e.mu.Lock()
		if e.generation != gen || e.open == nil {
			e.mu.Unlock()
			return context.Canceled
		}
		e.pendingForResponse = false
		if e.open.Model == nil {
			e.open.Model = &internal.Turn{Role: internal.RoleModel}
		}
		e.open.Model.Content = acc.String()
		e.open.Model.Usage = usage
		snap := e.snapshotLocked()
		e.mu.Unlock()
		e.notify(snap)
	}
	if err := s.Err(); err != nil {
		return err
	}
	if acc.Len() == 0 {
		return errEmptyReply
	}
	return nil
}

// finish commits or rolls back the open pair, clears both pending flags and
// persists the settled history.
func (e *Engine) finish(ctx context.Context, gen uint64, corpusID string, streamErr error) {
	e.mu.Lock()
	if e.generation != gen {
		// rebound while streaming, the outcome belongs to nobody
		e.mu.Unlock()
		return
	}
	if streamErr != nil {
		internal.LogWarn("Exchange failed for %s: %v", corpusID, streamErr)
		e.history = append(e.history, internal.NewNote("Error: "+streamErr.Error()))
	} else if e.open != nil {
		e.history = append(e.history, *e.open)
	}
	e.open = nil
	e.cancel = nil
	e.pendingForResponse = false
	e.pendingForReply = false
	entries := cloneEntries(e.history)
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.persist(ctx, corpusID, entries)
	e.notify(snap)
}

// Stop cancels the in-flight exchange, if any
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// DeletePair removes the pair at entry index i. Indexes that are out of
// range or point at a system note are ignored.
func (e *Engine) DeletePair(ctx context.Context, i int) error {
	e.mu.Lock()
	if e.corpus == nil {
		e.mu.Unlock()
		return internal.ErrNotReady
	}
	if e.pendingForReply {
		e.mu.Unlock()
		return internal.ErrBusy
	}
	if i < 0 || i >= len(e.history) || !e.history[i].IsPair() {
		e.mu.Unlock()
		return nil
	}
	history := make([]internal.Entry, 0, len(e.history)-1)
	history = append(history, e.history[:i]...)
	e.history = append(history, e.history[i+1:]...)
	corpusID := e.corpus.ID
	entries := cloneEntries(e.history)
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.persist(ctx, corpusID, entries)
	e.notify(snap)
	return nil
}

// Clear empties the history and removes its persisted copy
func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()
	if e.corpus == nil {
		e.mu.Unlock()
		return internal.ErrNotReady
	}
	if e.pendingForReply {
		e.mu.Unlock()
		return internal.ErrBusy
	}
	e.history = []internal.Entry{}
	corpusID := e.corpus.ID
	snap := e.snapshotLocked()
	e.mu.Unlock()

	err := e.store.DeleteHistory(ctx, corpusID)
	e.notify(snap)
	if err != nil {
		return fmt.Errorf("failed to delete history of %s: %w", corpusID, err)
	}
	return nil
}

// Replace installs entries as the settled history, e.g. after an import
func (e *Engine) Replace(ctx context.Context, entries []internal.Entry) error {
	e.mu.Lock()
	if e.corpus == nil {
		e.mu.Unlock()
		return internal.ErrNotReady
	}
	if e.pendingForReply {
		e.mu.Unlock()
		return internal.ErrBusy
	}
	e.history = cloneEntries(entries)
	corpusID := e.corpus.ID
	saved := cloneEntries(e.history)
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.persist(ctx, corpusID, saved)
	e.notify(snap)
	return nil
}

func (e *Engine) persist(ctx context.Context, corpusID string, entries []internal.Entry) {
	if err := e.store.SaveHistory(ctx, corpusID, entries); err != nil {
		internal.LogWarn("Failed to save history of %s: %v", corpusID, err)
	}
}

// windowTurns returns the turns of the last n settled pairs
func windowTurns(history []internal.Entry, n int) []internal.Turn {
	pairs := make([]internal.Entry, 0, len(history))
	for _, entry := range history {
		if entry.IsPair() && entry.Model != nil {
			pairs = append(pairs, entry)
		}
	}
	if len(pairs) > n {
		pairs = pairs[len(pairs)-n:]
	}
	return internal.Turns(pairs)
}

func cloneEntries(entries []internal.Entry) []internal.Entry {
	out := make([]internal.Entry, len(entries))
	for i, entry := range entries {
		out[i] = entry.Clone()
	}
	return out
}
