package llm

import (
	"context"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/iksnae/repo-pilot/internal"
)

const fallbackEncoding = "cl100k_base"

var loaderOnce sync.Once

// Tokenizer counts tokens locally with the BPE ranks bundled in the binary
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTokenizer picks the encoding of model, falling back to cl100k_base
// for models the bundled ranks do not cover.
func NewTokenizer(model string) (*Tokenizer, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		internal.LogDebug("No encoding for model %s (%v), using %s", model, err, fallbackEncoding)
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, err
		}
	}
	return &Tokenizer{enc: enc}, nil
}

// CountTokens implements TokenCounter. Special token markers in source
// files are counted as plain text.
func (t *Tokenizer) CountTokens(ctx context.Context, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return len(t.enc.EncodeOrdinary(text)), nil
}
