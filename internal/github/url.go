// Package github talks to the GitHub REST API and archive host.
package github

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/iksnae/repo-pilot/internal"
)

const urlPrefix = "https://github.com/"

// ParseRepoURL parses https://github.com/{owner}/{name}[/tree/{branch}[/{scope...}]]
func ParseRepoURL(raw string) (internal.RepoIdentity, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, urlPrefix) {
		return internal.RepoIdentity{}, fmt.Errorf("invalid GitHub repo url %q: must start with %s", raw, urlPrefix)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return internal.RepoIdentity{}, fmt.Errorf("invalid GitHub repo url %q: %w", raw, err)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return internal.RepoIdentity{}, fmt.Errorf("invalid GitHub repo url %q: missing owner or repository name", raw)
	}

	identity := internal.RepoIdentity{
		Owner: segments[0],
		Name:  strings.TrimSuffix(segments[1], ".git"),
	}
	if len(segments) >= 4 && segments[2] == "tree" {
		identity.Branch = segments[3]
		identity.ScopePath = strings.Join(segments[4:], "/")
	}
	return identity, nil
}
