package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/iksnae/repo-pilot/internal"
)

// Config configures the OpenAI client
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	MaxRetries int
}

// OpenAI streams chat completions
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates a streamer for the configured model
func NewOpenAI(cfg Config) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// Model returns the model name
func (o *OpenAI) Model() string {
	return o.model
}

// StartExchange opens a completion stream. Request failures surface through
// the returned stream's Err.
func (o *OpenAI) StartExchange(ctx context.Context, ex Exchange) (Stream, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(ex.Turns)+1)
	if ex.SystemInstruction != "" {
		messages = append(messages, openai.SystemMessage(ex.SystemInstruction))
	}
	for _, turn := range ex.Turns {
		switch turn.Role {
		case internal.RoleUser:
			messages = append(messages, openai.UserMessage(turn.Content))
		case internal.RoleModel:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			return nil, fmt.Errorf("unknown role %q", turn.Role)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    o.model,
		Messages: messages,
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}
	if ex.Temperature != nil {
		params.Temperature = openai.Float(*ex.Temperature)
	}
	if ex.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(ex.MaxOutputTokens))
	}

	internal.LogDebug("Starting exchange with %s: %d turns", o.model, len(ex.Turns))
	return &openAIStream{s: o.client.Chat.Completions.NewStreaming(ctx, params)}, nil
}

type openAIStream struct {
	s   *ssestream.Stream[openai.ChatCompletionChunk]
	cur Chunk
}

func (s *openAIStream) Next() bool {
	for s.s.Next() {
		chunk := s.s.Current()
		var c Chunk
		for _, choice := range chunk.Choices {
			c.TextDelta += choice.Delta.Content
		}
		if chunk.JSON.Usage.Valid() {
			c.Usage = &internal.Usage{
				PromptTokens:     int(chunk.Usage.PromptTokens),
				CompletionTokens: int(chunk.Usage.CompletionTokens),
			}
		}
		if c.TextDelta == "" && c.Usage == nil {
			continue
		}
		s.cur = c
		return true
	}
	return false
}

func (s *openAIStream) Chunk() Chunk { return s.cur }
func (s *openAIStream) Err() error   { return s.s.Err() }
func (s *openAIStream) Close() error { return s.s.Close() }
