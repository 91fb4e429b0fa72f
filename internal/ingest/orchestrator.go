// Package ingest turns a repository identity into a cached source corpus.
package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/iksnae/repo-pilot/internal"
	"github.com/iksnae/repo-pilot/internal/archive"
	"github.com/iksnae/repo-pilot/internal/corpus"
	"github.com/iksnae/repo-pilot/internal/github"
	"github.com/iksnae/repo-pilot/internal/llm"
)

// RepoAPI resolves repository metadata
type RepoAPI interface {
	Info(ctx context.Context, owner, name string) (*internal.RepoInfo, error)
	Languages(ctx context.Context, owner, name string) ([]internal.Language, error)
}

// Fetcher downloads branch archives
type Fetcher interface {
	ArchiveURL(owner, name, branch string) string
	Download(ctx context.Context, url string, limit int64, onProgress github.ProgressFunc) ([]byte, error)
}

// Options configures an Orchestrator
type Options struct {
	MaxArchiveBytes int64
	// Rules supplies Include and Exclude; Root and ScopePrefix are set per run
	Rules        archive.Rules
	Transform    func(ctx context.Context, path, ext, text string) string
	DecodePolicy corpus.DecodePolicy
}

// Orchestrator drives ingestion runs. It holds no per-run state, so
// concurrent runs for different identities do not share anything but the
// cache.
type Orchestrator struct {
	repos   RepoAPI
	fetcher Fetcher
	counter llm.TokenCounter
	cache   *internal.CacheManager
	opts    Options
}

// New creates an orchestrator
func New(repos RepoAPI, fetcher Fetcher, counter llm.TokenCounter, cache *internal.CacheManager, opts Options) *Orchestrator {
	if opts.MaxArchiveBytes <= 0 {
		opts.MaxArchiveBytes = 100 * 1024 * 1024
	}
	if opts.Rules.Include == nil && opts.Rules.Exclude == nil {
		opts.Rules = archive.DefaultRules()
	}
	return &Orchestrator{
		repos:   repos,
		fetcher: fetcher,
		counter: counter,
		cache:   cache,
		opts:    opts,
	}
}

type run struct {
	*Orchestrator
	id    string
	repo  internal.RepoIdentity
	obs   Observer
	state State
}

func (r *run) enter(state State) {
	r.state = state
	internal.LogDebug("[%s] %s: %s", r.id, r.repo.CorpusID(), state)
	r.obs.OnState(state)
}

// Run ingests repo and returns its corpus. Ingestion failures are carried by
// the corpus Error field; the returned error is only set when ctx is done, in
// which case no result must be applied.
func (o *Orchestrator) Run(ctx context.Context, repo internal.RepoIdentity, obs Observer) (*internal.SourceCorpus, error) {
	if obs == nil {
		obs = ObserverFuncs{}
	}
	r := &run{Orchestrator: o, id: uuid.NewString(), repo: repo, obs: obs}
	internal.LogInfo("[%s] Ingesting %s", r.id, repo.URL())

	result, err := r.ingest(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		internal.LogDebug("[%s] Abandoned in state %s", r.id, r.state)
		return nil, ctxErr
	}
	if err != nil {
		return nil, err
	}

	if result.Failed() {
		if r.state != NotFound {
			r.enter(Failed)
		}
		internal.LogWarn("[%s] Ingestion of %s failed: %s", r.id, repo.CorpusID(), result.Error)
	} else {
		r.enter(Ready)
		internal.LogInfo("[%s] %s ready: %d lines, %d tokens", r.id, repo.CorpusID(), result.NumberOfLines, result.TokenLength)
	}
	return result, nil
}

func (r *run) ingest(ctx context.Context) (*internal.SourceCorpus, error) {
	corpusID := r.repo.CorpusID()

	r.enter(ResolvingInfo)
	info, err := r.repos.Info(ctx, r.repo.Owner, r.repo.Name)
	if errors.Is(err, internal.ErrRepoNotFound) {
		r.enter(NotFound)
		return internal.NewFailedCorpus(corpusID, "", err), nil
	}
	if err != nil {
		return internal.NewFailedCorpus(corpusID, "", err), nil
	}
	r.obs.OnInfo(info)

	r.enter(FetchingLanguages)
	languages, err := r.repos.Languages(ctx, r.repo.Owner, r.repo.Name)
	if err != nil {
		return internal.NewFailedCorpus(corpusID, info.PushedAt, err), nil
	}

	key := r.repo.CacheKey()
	cached, err := r.cache.FreshCorpus(ctx, key, info.PushedAt)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		internal.LogWarn("[%s] Cache lookup failed, ingesting anyway: %v", r.id, err)
	}
	if cached != nil {
		internal.LogInfo("[%s] Serving cached corpus %s", r.id, key)
		return cached, nil
	}

	branch := r.repo.Branch
	if branch == "" {
		branch = info.DefaultBranch
	}

	r.enter(DownloadingArchive)
	data, err := r.fetcher.Download(ctx, r.fetcher.ArchiveURL(r.repo.Owner, r.repo.Name, branch), r.opts.MaxArchiveBytes, r.obs.OnProgress)
	if err != nil {
		var sizeErr *internal.SizeLimitError
		if errors.As(err, &sizeErr) {
			return r.cacheFailure(ctx, internal.NewFailedCorpus(corpusID, info.PushedAt, err)), nil
		}
		return internal.NewFailedCorpus(corpusID, info.PushedAt, err), nil
	}

	r.enter(Extracting)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return internal.NewFailedCorpus(corpusID, info.PushedAt, fmt.Errorf("failed to read archive: %w", err)), nil
	}
	entries := archive.FromZip(zr)
	root := archive.RootFolder(entries)
	if root == "" {
		root = r.repo.Name + "-" + branch
	}

	rules := r.opts.Rules
	rules.Root = root
	if r.repo.ScopePath != "" {
		rules.ScopePrefix = root + "/" + strings.Trim(r.repo.ScopePath, "/") + "/"
	}
	files := archive.Filter(entries, rules)
	internal.LogDebug("[%s] %d of %d archive entries selected", r.id, len(files), len(entries))

	blobPrefix := fmt.Sprintf("%s/%s/blob/%s/", r.repo.Owner, r.repo.Name, branch)
	built, err := corpus.Build(ctx, files, corpus.Options{
		ProcessFileName: func(name string) string {
			return blobPrefix + strings.TrimPrefix(name, root+"/")
		},
		Transform:     r.opts.Transform,
		OnDecodeError: r.opts.DecodePolicy,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var decodeErr *internal.DecodeError
		if errors.As(err, &decodeErr) {
			return r.cacheFailure(ctx, internal.NewFailedCorpus(corpusID, info.PushedAt, err)), nil
		}
		return internal.NewFailedCorpus(corpusID, info.PushedAt, err), nil
	}

	content := corpus.Compose(corpus.Header{
		Project: r.repo.ID(),
		URL:     r.repo.URL(),
		Branch:  branch,
		Tree:    built.Tree,
	}, built.Combined)

	r.enter(CountingTokens)
	tokens, err := r.counter.CountTokens(ctx, content)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return r.cacheFailure(ctx, internal.NewFailedCorpus(corpusID, info.PushedAt, &internal.TokenizeError{Err: err})), nil
	}

	result := &internal.SourceCorpus{
		ID:            corpusID,
		Tree:          built.Tree,
		Content:       content,
		TokenLength:   tokens,
		NumberOfLines: built.TotalLines,
		Languages:     languages,
		SourceVersion: info.PushedAt,
		SchemaVersion: internal.CorpusSchemaVersion,
	}
	if err := r.cache.SaveCorpus(ctx, key, result); err != nil {
		internal.LogWarn("[%s] Failed to cache corpus %s: %v", r.id, key, err)
	}
	return result, nil
}

// cacheFailure persists a terminal failure so retries do not repeat the work
// until the repository changes.
func (r *run) cacheFailure(ctx context.Context, failed *internal.SourceCorpus) *internal.SourceCorpus {
	if err := r.cache.SaveCorpus(ctx, r.repo.CacheKey(), failed); err != nil {
		internal.LogWarn("[%s] Failed to cache failure for %s: %v", r.id, r.repo.CacheKey(), err)
	}
	return failed
}
