package github

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iksnae/repo-pilot/internal"
)

func TestDownloader_ArchiveURL(t *testing.T) {
	d := NewDownloader(nil, "https://github.com/", "")
	assert.Equal(t, "https://github.com/octo/hello/archive/refs/heads/main.zip", d.ArchiveURL("octo", "hello", "main"))
}

func TestDownloader_Download(t *testing.T) {
	payload := bytes.Repeat([]byte("z"), 100_000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	var progress []int64
	d := NewDownloader(server.Client(), server.URL, "")
	data, err := d.Download(context.Background(), server.URL+"/a.zip", 1<<20, func(n int64) {
		progress = append(progress, n)
	})
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	require.NotEmpty(t, progress)
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1], "progress must be non-decreasing")
	}
	assert.Equal(t, int64(len(payload)), progress[len(progress)-1])
}

func TestDownloader_ContentLengthOverLimit(t *testing.T) {
	const limit = 100 * 1024 * 1024
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(150*1024*1024))
		w.WriteHeader(http.StatusOK)
		// the client hangs up after reading the headers
		_, _ = w.Write(make([]byte, 32*1024))
	}))
	defer server.Close()

	called := false
	d := NewDownloader(server.Client(), server.URL, "")
	_, err := d.Download(context.Background(), server.URL+"/big.zip", limit, func(int64) { called = true })

	var sizeErr *internal.SizeLimitError
	require.True(t, errors.As(err, &sizeErr), "want *internal.SizeLimitError, got %v", err)
	assert.Contains(t, err.Error(), "too large (150.0 MB)")
	assert.False(t, called, "no content must be read beyond the size check")
}

func TestDownloader_UnknownLengthOverLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for i := 0; i < 4; i++ {
			_, _ = w.Write(make([]byte, 1024))
			flusher.Flush()
		}
	}))
	defer server.Close()

	d := NewDownloader(server.Client(), server.URL, "")
	_, err := d.Download(context.Background(), server.URL+"/a.zip", 2048, nil)

	var sizeErr *internal.SizeLimitError
	require.True(t, errors.As(err, &sizeErr), "want *internal.SizeLimitError, got %v", err)
	assert.Equal(t, int64(2048), sizeErr.Limit)
	assert.Greater(t, sizeErr.Size, int64(2048))
}

func TestDownloader_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such branch", http.StatusNotFound)
	}))
	defer server.Close()

	d := NewDownloader(server.Client(), server.URL, "")
	_, err := d.Download(context.Background(), server.URL+"/a.zip", 1024, nil)
	assert.ErrorContains(t, err, "status 404: no such branch")
}
