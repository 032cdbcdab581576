package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// MirrorOptions configures a local checkout of the repository.
type MirrorOptions struct {
	// Path is where the checkout lives.
	Path     string
	CloneURL string
	// Branch is optional; the remote HEAD is checked out when empty.
	Branch string
	// Token authenticates HTTPS clones.
	Token string
	// Depth limits history; 0 fetches everything.
	Depth int
	// WebURL is the repository's browsable URL, used for blob links.
	WebURL string
}

// Mirror keeps a working copy of the repository up to date. Syncs are
// serialized; reads of the tracked file list happen against the last
// successful sync.
type Mirror struct {
	opts MirrorOptions

	mu     sync.Mutex
	branch string
}

// NewMirror creates a Mirror. Nothing touches disk until Sync.
func NewMirror(opts MirrorOptions) *Mirror {
	return &Mirror{opts: opts, branch: opts.Branch}
}

// Path returns the checkout directory.
func (m *Mirror) Path() string { return m.opts.Path }

// Exists reports whether a checkout is present on disk.
func (m *Mirror) Exists() bool {
	_, err := os.Stat(filepath.Join(m.opts.Path, ".git"))
	return err == nil
}

// Sync clones the repository when absent and fast-forwards it otherwise.
// A checkout that can no longer be fast-forwarded is discarded and cloned
// again.
func (m *Mirror) Sync(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.Exists() {
		return m.clone(ctx)
	}

	err := m.pull(ctx)
	if err == nil {
		return nil
	}
	slog.Warn("Mirror pull failed, cloning again", "path", m.opts.Path, "error", err)
	if rmErr := os.RemoveAll(m.opts.Path); rmErr != nil {
		return fmt.Errorf("removing stale mirror: %w", rmErr)
	}
	return m.clone(ctx)
}

func (m *Mirror) clone(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(m.opts.Path), 0o755); err != nil {
		return fmt.Errorf("creating mirror parent: %w", err)
	}

	cloneOpts := &gogit.CloneOptions{
		URL:   m.opts.CloneURL,
		Depth: m.opts.Depth,
		Auth:  m.auth(),
	}
	if m.opts.Branch != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(m.opts.Branch)
		cloneOpts.SingleBranch = true
	}

	slog.Info("Cloning repository", "url", redact(m.opts.CloneURL), "branch", m.opts.Branch, "dest", m.opts.Path)

	repo, err := gogit.PlainCloneContext(ctx, m.opts.Path, false, cloneOpts)
	if err != nil {
		os.RemoveAll(m.opts.Path)
		return fmt.Errorf("cloning %s: %w", redact(m.opts.CloneURL), err)
	}
	return m.recordBranch(repo)
}

func (m *Mirror) pull(ctx context.Context) error {
	repo, err := gogit.PlainOpen(m.opts.Path)
	if err != nil {
		return fmt.Errorf("opening mirror: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree: %w", err)
	}

	pullOpts := &gogit.PullOptions{
		RemoteName: "origin",
		Depth:      m.opts.Depth,
		Auth:       m.auth(),
	}
	if m.opts.Branch != "" {
		pullOpts.ReferenceName = plumbing.NewBranchReferenceName(m.opts.Branch)
		pullOpts.SingleBranch = true
	}

	err = wt.PullContext(ctx, pullOpts)
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("pulling: %w", err)
	}
	slog.Debug("Mirror up to date", "path", m.opts.Path)
	return m.recordBranch(repo)
}

func (m *Mirror) recordBranch(repo *gogit.Repository) error {
	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("resolving HEAD: %w", err)
	}
	if head.Name().IsBranch() {
		m.branch = head.Name().Short()
	}
	return nil
}

// TrackedFiles lists every file path in the checked out HEAD commit,
// slash separated and relative to the repository root.
func (m *Mirror) TrackedFiles() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	repo, err := gogit.PlainOpen(m.opts.Path)
	if err != nil {
		return nil, fmt.Errorf("opening mirror: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("loading HEAD commit: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("loading HEAD tree: %w", err)
	}

	var paths []string
	err = tree.Files().ForEach(func(f *object.File) error {
		paths = append(paths, f.Name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking HEAD tree: %w", err)
	}
	return paths, nil
}

// BlobURL links to path on the mirrored branch, anchored at line when it is
// positive.
func (m *Mirror) BlobURL(path string, line int) string {
	m.mu.Lock()
	branch := m.branch
	m.mu.Unlock()
	if branch == "" {
		branch = "HEAD"
	}

	u := fmt.Sprintf("%s/blob/%s/%s", strings.TrimSuffix(m.opts.WebURL, "/"), branch, strings.ReplaceAll(path, `\`, "/"))
	if line > 0 {
		u += fmt.Sprintf("#L%d", line)
	}
	return u
}

func (m *Mirror) auth() transport.AuthMethod {
	if m.opts.Token == "" || !strings.HasPrefix(m.opts.CloneURL, "https://") {
		return nil
	}
	return &githttp.BasicAuth{
		Username: "x-access-token",
		Password: m.opts.Token,
	}
}

// redact strips credentials embedded in a clone URL before it is logged.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.User("redacted")
	return u.String()
}
