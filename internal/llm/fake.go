package llm

import (
	"context"
	"strings"
	"sync"
)

// FakeReply scripts one exchange of a FakeStreamer
type FakeReply struct {
	Chunks []Chunk
	// Err is reported by the stream after all chunks were delivered
	Err error
	// StartErr fails StartExchange itself
	StartErr error
	// Hold blocks the stream before the first chunk until it is closed
	Hold <-chan struct{}
}

// FakeStreamer replays scripted replies in order and records every exchange.
// It is meant for tests of code that drives a Streamer.
type FakeStreamer struct {
	mu        sync.Mutex
	replies   []FakeReply
	exchanges []Exchange
}

// NewFakeStreamer creates a streamer that answers with replies in order
func NewFakeStreamer(replies ...FakeReply) *FakeStreamer {
	return &FakeStreamer{replies: replies}
}

// Push appends replies to the script
func (f *FakeStreamer) Push(replies ...FakeReply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, replies...)
}

// Exchanges returns the exchanges started so far
func (f *FakeStreamer) Exchanges() []Exchange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Exchange(nil), f.exchanges...)
}

// StartExchange implements Streamer. An unscripted exchange yields an
// empty successful stream.
func (f *FakeStreamer) StartExchange(ctx context.Context, ex Exchange) (Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanges = append(f.exchanges, ex)

	var reply FakeReply
	if len(f.replies) > 0 {
		reply = f.replies[0]
		f.replies = f.replies[1:]
	}
	if reply.StartErr != nil {
		return nil, reply.StartErr
	}
	return &fakeStream{ctx: ctx, reply: reply, pos: -1}, nil
}

type fakeStream struct {
	ctx   context.Context
	reply FakeReply
	pos   int
	err   error
}

func (s *fakeStream) Next() bool {
	if s.err != nil {
		return false
	}
	if s.pos == -1 && s.reply.Hold != nil {
		select {
		case <-s.reply.Hold:
		case <-s.ctx.Done():
			s.err = s.ctx.Err()
			return false
		}
	}
	if err := s.ctx.Err(); err != nil {
		s.err = err
		return false
	}
	s.pos++
	if s.pos < len(s.reply.Chunks) {
		return true
	}
	s.err = s.reply.Err
	return false
}

func (s *fakeStream) Chunk() Chunk {
	if s.pos < 0 || s.pos >= len(s.reply.Chunks) {
		return Chunk{}
	}
	return s.reply.Chunks[s.pos]
}

func (s *fakeStream) Err() error   { return s.err }
func (s *fakeStream) Close() error { return nil }

// TextChunks builds chunks carrying only text deltas
func TextChunks(deltas ...string) []Chunk {
	chunks := make([]Chunk, len(deltas))
	for i, d := range deltas {
		chunks[i] = Chunk{TextDelta: d}
	}
	return chunks
}

// FakeCounter counts whitespace separated words, or fails with Err
type FakeCounter struct {
	Err error

	mu    sync.Mutex
	calls int
}

// CountTokens implements TokenCounter
func (c *FakeCounter) CountTokens(ctx context.Context, text string) (int, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.Err != nil {
		return 0, c.Err
	}
	return len(strings.Fields(text)), nil
}

// Calls returns how many times CountTokens was called
func (c *FakeCounter) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
