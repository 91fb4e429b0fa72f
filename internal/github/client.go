package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v61/github"

	"github.com/iksnae/repo-pilot/internal"
)

// Client fetches repository metadata
type Client struct {
	gh *gh.Client
}

// NewClient creates a client. An empty token means unauthenticated requests
// and an empty apiBase means api.github.com.
func NewClient(httpClient *http.Client, token, apiBase string) (*Client, error) {
	c := gh.NewClient(httpClient)
	if token != "" {
		c = c.WithAuthToken(token)
	}
	if apiBase != "" {
		if !strings.HasSuffix(apiBase, "/") {
			apiBase += "/"
		}
		base, err := url.Parse(apiBase)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API url %q: %w", apiBase, err)
		}
		c.BaseURL = base
	}
	return &Client{gh: c}, nil
}

// Info fetches the repository metadata. A 404 is internal.ErrRepoNotFound.
func (c *Client) Info(ctx context.Context, owner, name string) (*internal.RepoInfo, error) {
	repo, resp, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, apiError(resp, err)
	}

	info := &internal.RepoInfo{
		FullName:      repo.GetFullName(),
		Name:          repo.GetName(),
		DefaultBranch: repo.GetDefaultBranch(),
	}
	if repo.PushedAt != nil {
		info.PushedAt = repo.PushedAt.UTC().Format(time.RFC3339)
	}
	if owner := repo.GetOwner(); owner != nil {
		info.OwnerLogin = owner.GetLogin()
		info.OwnerAvatarURL = owner.GetAvatarURL()
	}
	return info, nil
}

// Languages fetches the language breakdown of the repository
func (c *Client) Languages(ctx context.Context, owner, name string) ([]internal.Language, error) {
	bytes, resp, err := c.gh.Repositories.ListLanguages(ctx, owner, name)
	if err != nil {
		return nil, apiError(resp, err)
	}
	return internal.NewLanguageBreakdown(bytes), nil
}

func apiError(resp *gh.Response, err error) error {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return internal.ErrRepoNotFound
	}
	var errResp *gh.ErrorResponse
	if errors.As(err, &errResp) && errResp.Message != "" {
		return errors.New(errResp.Message)
	}
	return err
}
