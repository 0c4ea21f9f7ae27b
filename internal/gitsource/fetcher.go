// File: internal/gitsource/fetcher.go
package gitsource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/google/go-github/v58/github"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/nodelib/internal/config"
)

var (
	validName     = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	unsafeRefChar = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// Fetcher materializes GitHub repositories into a local cache, one checkout per
// owner/repo/ref, reusing and refreshing existing checkouts.
type Fetcher struct {
	baseDir  string
	depth    int
	token    string
	client   *github.Client
	limiter  *rate.Limiter
	cloneURL func(owner, repo string) string
	locks    sync.Map // checkout dir -> *sync.Mutex
	logger   *zap.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient replaces the GitHub API client, e.g. to point at an enterprise host.
func WithClient(client *github.Client) Option {
	return func(f *Fetcher) { f.client = client }
}

// WithCloneURL overrides how clone URLs are built.
func WithCloneURL(fn func(owner, repo string) string) Option {
	return func(f *Fetcher) { f.cloneURL = fn }
}

// NewFetcher creates a fetcher caching checkouts under <dataDir>/github.
func NewFetcher(cfg config.GitHubConfig, dataDir string, logger *zap.Logger, opts ...Option) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if cfg.APIRateLimit > 0 {
		limit = rate.Limit(cfg.APIRateLimit)
	}

	client := github.NewClient(nil)
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}

	f := &Fetcher{
		baseDir: filepath.Join(dataDir, "github"),
		depth:   cfg.CloneDepth,
		token:   cfg.Token,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		cloneURL: func(owner, repo string) string {
			return fmt.Sprintf("https://github.com/%s/%s.git", owner, repo)
		},
		logger: logger.Named("gitsource"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CheckoutDir is where owner/repo at ref is cached.
func (f *Fetcher) CheckoutDir(owner, repo, ref string) string {
	safeRef := strings.Trim(unsafeRefChar.ReplaceAllString(ref, "_"), "_.")
	if safeRef == "" {
		safeRef = "_"
	}
	return filepath.Join(f.baseDir, owner, repo, safeRef)
}

// Fetch returns a local checkout of owner/repo at ref. An empty ref resolves to
// the repository's default branch through the GitHub API.
func (f *Fetcher) Fetch(ctx context.Context, owner, repo, ref string) (string, error) {
	if !validName.MatchString(owner) || !validName.MatchString(repo) || owner == ".." || repo == ".." {
		return "", fmt.Errorf("invalid repository %q/%q", owner, repo)
	}

	if ref == "" {
		branch, err := f.defaultBranch(ctx, owner, repo)
		if err != nil {
			return "", err
		}
		ref = branch
	}

	dir := f.CheckoutDir(owner, repo, ref)
	unlock := f.lock(dir)
	defer unlock()

	logger := f.logger.With(zap.String("repo", owner+"/"+repo), zap.String("ref", ref))
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		logger.Debug("Refreshing cached checkout.", zap.String("dir", dir))
		if err := f.refresh(ctx, dir, ref); err != nil {
			return "", fmt.Errorf("failed to refresh %s/%s@%s: %w", owner, repo, ref, err)
		}
		return dir, nil
	}

	logger.Info("Cloning library repository.", zap.String("dir", dir))
	if err := f.clone(ctx, dir, f.cloneURL(owner, repo), ref); err != nil {
		return "", fmt.Errorf("failed to clone %s/%s@%s: %w", owner, repo, ref, err)
	}
	return dir, nil
}

func (f *Fetcher) defaultBranch(ctx context.Context, owner, repo string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}
	info, _, err := f.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return "", fmt.Errorf("failed to look up %s/%s: %w", owner, repo, err)
	}
	branch := info.GetDefaultBranch()
	if branch == "" {
		return "", fmt.Errorf("repository %s/%s reports no default branch", owner, repo)
	}
	f.logger.Debug("Resolved default branch.", zap.String("repo", owner+"/"+repo), zap.String("branch", branch))
	return branch, nil
}

func (f *Fetcher) auth() transport.AuthMethod {
	if f.token == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: "x-access-token", Password: f.token}
}

// clone tries ref as a branch, then as a tag, then as a commit hash.
func (f *Fetcher) clone(ctx context.Context, dir, url, ref string) error {
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return err
	}

	var errs []error
	for _, name := range []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(ref),
		plumbing.NewTagReferenceName(ref),
	} {
		_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
			URL:           url,
			Auth:          f.auth(),
			ReferenceName: name,
			SingleBranch:  true,
			Depth:         f.depth,
		})
		if err == nil {
			return nil
		}
		errs = append(errs, err)
		_ = os.RemoveAll(dir)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if !plumbing.IsHash(ref) {
		return errors.Join(errs...)
	}
	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{URL: url, Auth: f.auth()})
	if err != nil {
		_ = os.RemoveAll(dir)
		return errors.Join(append(errs, err)...)
	}
	return checkout(repo, plumbing.NewHash(ref))
}

// refresh fetches the latest state of ref into an existing checkout and moves the
// worktree to it.
func (f *Fetcher) refresh(ctx context.Context, dir, ref string) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return err
	}
	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: git.DefaultRemoteName,
		Auth:       f.auth(),
		Depth:      f.depth,
		Force:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return err
	}

	for _, rev := range []string{
		plumbing.NewRemoteReferenceName(git.DefaultRemoteName, ref).String(),
		plumbing.NewTagReferenceName(ref).String(),
		ref,
	} {
		hash, err := repo.ResolveRevision(plumbing.Revision(rev))
		if err == nil {
			return checkout(repo, *hash)
		}
	}
	return fmt.Errorf("ref %q not found in cached checkout", ref)
}

func checkout(repo *git.Repository, hash plumbing.Hash) error {
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	return wt.Checkout(&git.CheckoutOptions{Hash: hash, Force: true})
}

func (f *Fetcher) lock(dir string) func() {
	m, _ := f.locks.LoadOrStore(dir, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
