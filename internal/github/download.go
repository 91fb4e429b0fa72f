package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/iksnae/repo-pilot/internal"
)

// ProgressFunc receives the cumulative number of bytes read
type ProgressFunc func(received int64)

// Downloader fetches branch archives
type Downloader struct {
	httpClient  *http.Client
	archiveBase string
	token       string
}

// NewDownloader creates a downloader for archives hosted under archiveBase
func NewDownloader(httpClient *http.Client, archiveBase, token string) *Downloader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Downloader{
		httpClient:  httpClient,
		archiveBase: strings.TrimSuffix(archiveBase, "/"),
		token:       token,
	}
}

// ArchiveURL returns the zip URL of a branch
func (d *Downloader) ArchiveURL(owner, name, branch string) string {
	return fmt.Sprintf("%s/%s/%s/archive/refs/heads/%s.zip", d.archiveBase, owner, name, branch)
}

// Download reads the archive at url into memory. It fails with
// *internal.SizeLimitError as soon as the advertised or the measured size
// exceeds limit; an oversized Content-Length is rejected before the body is
// read. onProgress is called in order with non-decreasing byte counts.
func (d *Downloader) Download(ctx context.Context, url string, limit int64, onProgress ProgressFunc) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download archive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("archive download returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if resp.ContentLength > limit {
		return nil, &internal.SizeLimitError{Size: resp.ContentLength, Limit: limit}
	}

	pr := &progressReader{r: io.LimitReader(resp.Body, limit+1), onProgress: onProgress}
	data, err := io.ReadAll(pr)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	if int64(len(data)) > limit {
		// the rest of the body is not read, report what is known
		size := resp.ContentLength
		if size < int64(len(data)) {
			size = int64(len(data))
		}
		return nil, &internal.SizeLimitError{Size: size, Limit: limit}
	}
	return data, nil
}

type progressReader struct {
	r          io.Reader
	received   int64
	onProgress ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.received += int64(n)
		if p.onProgress != nil {
			p.onProgress(p.received)
		}
	}
	return n, err
}
