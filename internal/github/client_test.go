package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iksnae/repo-pilot/internal"
)

func newTestAPI(t *testing.T) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"name": "hello",
			"full_name": "octo/hello",
			"default_branch": "main",
			"pushed_at": "2024-03-01T10:20:30Z",
			"owner": {"login": "octo", "avatar_url": "https://avatars.example/octo.png"}
		}`)
	})
	mux.HandleFunc("/repos/octo/hello/languages", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"TypeScript": 300, "Go": 700}`)
	})
	mux.HandleFunc("/repos/octo/private", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	})
	mux.HandleFunc("/repos/octo/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message": "Resource not accessible by integration"}`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewClient(server.Client(), "secret", server.URL)
	require.NoError(t, err)
	return client
}

func TestClient_Info(t *testing.T) {
	client := newTestAPI(t)

	info, err := client.Info(context.Background(), "octo", "hello")
	require.NoError(t, err)
	assert.Equal(t, &internal.RepoInfo{
		FullName:       "octo/hello",
		Name:           "hello",
		DefaultBranch:  "main",
		PushedAt:       "2024-03-01T10:20:30Z",
		OwnerLogin:     "octo",
		OwnerAvatarURL: "https://avatars.example/octo.png",
	}, info)
}

func TestClient_InfoErrors(t *testing.T) {
	client := newTestAPI(t)

	_, err := client.Info(context.Background(), "octo", "private")
	assert.ErrorIs(t, err, internal.ErrRepoNotFound)

	_, err = client.Info(context.Background(), "octo", "broken")
	assert.EqualError(t, err, "Resource not accessible by integration")
}

func TestClient_Languages(t *testing.T) {
	client := newTestAPI(t)

	langs, err := client.Languages(context.Background(), "octo", "hello")
	require.NoError(t, err)
	require.Len(t, langs, 2)
	assert.Equal(t, "Go", langs[0].Name)
	assert.InDelta(t, 0.7, langs[0].Percentage, 1e-9)
	assert.Equal(t, "TypeScript", langs[1].Name)
}
