package storage_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GitProviderOptions configures NewGitFileProvider.
type GitProviderOptions struct {
	Path          string
	AuthorName    string
	AuthorEmail   string
	InitIfMissing bool
}

// GitFileProvider keeps documents in a git working tree and commits every change,
// giving the knowledge cache and engine state a browsable history.
type GitFileProvider struct {
	mu     sync.Mutex
	root   string
	repo   *git.Repository
	author object.Signature
	now    func() time.Time
}

func NewGitFileProvider(opts GitProviderOptions) (*GitFileProvider, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("repository path is required")
	}
	if opts.AuthorName == "" {
		opts.AuthorName = "rota"
	}
	if opts.AuthorEmail == "" {
		opts.AuthorEmail = "rota@localhost"
	}

	repo, err := git.PlainOpen(opts.Path)
	if errors.Is(err, git.ErrRepositoryNotExists) && opts.InitIfMissing {
		if err = os.MkdirAll(opts.Path, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create repository directory: %w", err)
		}
		repo, err = git.PlainInit(opts.Path, false)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository %s: %w", opts.Path, err)
	}

	return &GitFileProvider{
		root: opts.Path,
		repo: repo,
		author: object.Signature{
			Name:  opts.AuthorName,
			Email: opts.AuthorEmail,
		},
		now: time.Now,
	}, nil
}

func (p *GitFileProvider) Read(_ context.Context, path string) ([]byte, error) {
	return readFile(filepath.Join(p.root, path))
}

// Write replaces the file and commits it. Rewriting identical content makes no commit.
func (p *GitFileProvider) Write(_ context.Context, path string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := writeFile(filepath.Join(p.root, path), data); err != nil {
		return err
	}
	wt, err := p.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := wt.Add(filepath.ToSlash(path)); err != nil {
		return fmt.Errorf("failed to stage %s: %w", path, err)
	}
	return p.commit(wt, "[auto] Write "+path)
}

func (p *GitFileProvider) Exists(_ context.Context, path string) (bool, error) {
	return fileExists(filepath.Join(p.root, path))
}

// Delete removes the file and commits the removal. Missing files are a no-op.
func (p *GitFileProvider) Delete(_ context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	full := filepath.Join(p.root, path)
	if ok, err := fileExists(full); err != nil || !ok {
		return err
	}
	wt, err := p.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := wt.Remove(filepath.ToSlash(path)); err != nil {
		// untracked file
		if rmErr := os.Remove(full); rmErr != nil {
			return fmt.Errorf("failed to delete %s: %w", path, rmErr)
		}
		return nil
	}
	return p.commit(wt, "[auto] Delete "+path)
}

func (p *GitFileProvider) List(_ context.Context, prefix string) ([]string, error) {
	return walkFiles(p.root, prefix)
}

// Ping checks the worktree is readable without creating a commit.
func (p *GitFileProvider) Ping(_ context.Context) error {
	wt, err := p.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := wt.Status(); err != nil {
		return fmt.Errorf("failed to read worktree status: %w", err)
	}
	return nil
}

// History returns the commit messages touching the repository, newest first, up to limit.
func (p *GitFileProvider) History(limit int) ([]string, error) {
	iter, err := p.repo.Log(&git.LogOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	defer iter.Close()

	var msgs []string
	for len(msgs) < limit {
		c, err := iter.Next()
		if err != nil {
			break
		}
		msgs = append(msgs, c.Message)
	}
	return msgs, nil
}

func (p *GitFileProvider) commit(wt *git.Worktree, msg string) error {
	sig := p.author
	sig.When = p.now()
	_, err := wt.Commit(msg, &git.CommitOptions{Author: &sig})
	if errors.Is(err, git.ErrEmptyCommit) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}
