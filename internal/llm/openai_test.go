package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iksnae/repo-pilot/internal"
)

func sseServer(t *testing.T, events []string, captured *map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		if captured != nil {
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, captured))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, e := range events {
			fmt.Fprintf(w, "data: %s\n\n", e)
			w.(http.Flusher).Flush()
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func chunkJSON(content string) string {
	return fmt.Sprintf(`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"content":%q},"finish_reason":null}]}`, content)
}

func drain(t *testing.T, s Stream) ([]Chunk, error) {
	t.Helper()
	defer s.Close()
	var chunks []Chunk
	for s.Next() {
		chunks = append(chunks, s.Chunk())
	}
	return chunks, s.Err()
}

func TestOpenAI_StartExchange(t *testing.T) {
	var body map[string]any
	server := sseServer(t, []string{
		chunkJSON("It "),
		chunkJSON("does Y."),
		`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[],"usage":{"prompt_tokens":120,"completion_tokens":4,"total_tokens":124}}`,
		"[DONE]",
	}, &body)

	client, err := NewOpenAI(Config{APIKey: "k", BaseURL: server.URL, Model: "test-model"})
	require.NoError(t, err)

	stream, err := client.StartExchange(context.Background(), Exchange{
		SystemInstruction: "You are a helpful assistant.",
		Turns: []internal.Turn{
			{Role: internal.RoleUser, Content: "hi"},
			{Role: internal.RoleModel, Content: "hello"},
			{Role: internal.RoleUser, Content: "What does X do?"},
		},
		MaxOutputTokens: 2000,
	})
	require.NoError(t, err)

	chunks, err := drain(t, stream)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "It ", chunks[0].TextDelta)
	assert.Nil(t, chunks[0].Usage)
	assert.Equal(t, "does Y.", chunks[1].TextDelta)
	assert.Equal(t, &internal.Usage{PromptTokens: 120, CompletionTokens: 4}, chunks[2].Usage)

	assert.Equal(t, "test-model", body["model"])
	assert.Equal(t, true, body["stream"])
	assert.NotContains(t, body, "temperature")
	messages := body["messages"].([]any)
	require.Len(t, messages, 4)
	roles := make([]string, len(messages))
	for i, m := range messages {
		roles[i] = m.(map[string]any)["role"].(string)
	}
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles)
}

func TestOpenAI_Temperature(t *testing.T) {
	var body map[string]any
	server := sseServer(t, []string{chunkJSON("ok"), "[DONE]"}, &body)

	client, err := NewOpenAI(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	temperature := 0.0
	stream, err := client.StartExchange(context.Background(), Exchange{
		Turns:       []internal.Turn{{Role: internal.RoleUser, Content: "q"}},
		Temperature: &temperature,
	})
	require.NoError(t, err)
	_, err = drain(t, stream)
	require.NoError(t, err)

	require.Contains(t, body, "temperature")
	assert.Equal(t, 0.0, body["temperature"])
}

func TestOpenAI_StreamError(t *testing.T) {
	server := sseServer(t, []string{
		chunkJSON("partial"),
		`{"error":{"message":"overloaded"}}`,
	}, nil)

	client, err := NewOpenAI(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	stream, err := client.StartExchange(context.Background(), Exchange{
		Turns: []internal.Turn{{Role: internal.RoleUser, Content: "q"}},
	})
	require.NoError(t, err)

	chunks, err := drain(t, stream)
	require.Len(t, chunks, 1)
	assert.ErrorContains(t, err, "overloaded")
}

func TestOpenAI_RequestError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	client, err := NewOpenAI(Config{APIKey: "bad", BaseURL: server.URL})
	require.NoError(t, err)

	stream, err := client.StartExchange(context.Background(), Exchange{
		Turns: []internal.Turn{{Role: internal.RoleUser, Content: "q"}},
	})
	require.NoError(t, err)

	chunks, err := drain(t, stream)
	assert.Empty(t, chunks)
	assert.Error(t, err)
}

func TestNewOpenAI_RequiresKey(t *testing.T) {
	_, err := NewOpenAI(Config{})
	assert.Error(t, err)
}

func TestOpenAI_UnknownRole(t *testing.T) {
	client, err := NewOpenAI(Config{APIKey: "k", BaseURL: "http://127.0.0.1:0"})
	require.NoError(t, err)
	_, err = client.StartExchange(context.Background(), Exchange{
		Turns: []internal.Turn{{Role: "system", Content: "x"}},
	})
	assert.Error(t, err)
}
