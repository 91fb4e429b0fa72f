// Package llm is the boundary to the language model provider.
package llm

import (
	"context"

	"github.com/iksnae/repo-pilot/internal"
)

// Exchange is one request to the model: the system instruction, the
// conversation so far and the new user turn as the last element of Turns.
type Exchange struct {
	SystemInstruction string
	Turns             []internal.Turn
	MaxOutputTokens   int
	// Temperature is left out of the request when nil
	Temperature       *float64
}

// Chunk is one increment of a streamed reply. Usage is only set on the
// chunks where the provider reports it.
type Chunk struct {
	TextDelta string
	Usage     *internal.Usage
}

// Stream yields chunks in the order the provider sent them
type Stream interface {
	Next() bool
	Chunk() Chunk
	Err() error
	Close() error
}

// Streamer opens streaming exchanges
type Streamer interface {
	StartExchange(ctx context.Context, ex Exchange) (Stream, error)
}

// TokenCounter counts the tokens of a text as the model would see it
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}
