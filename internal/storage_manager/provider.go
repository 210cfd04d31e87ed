// Package storage_manager persists the bot's JSON documents (engine state, Q&A cache)
// behind one FileProvider interface with local, S3, git and Redis backends.
package storage_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned (possibly wrapped) by Read when the document does not exist.
var ErrNotFound = errors.New("object not found")

// FileProvider stores whole documents by path.
type FileProvider interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
	// List returns the paths under prefix, relative to the provider root.
	List(ctx context.Context, prefix string) ([]string, error)
}

// PrefixedFileProvider scopes another provider to a namespace.
type PrefixedFileProvider struct {
	provider FileProvider
	prefix   string
}

func NewPrefixedFileProvider(provider FileProvider, prefix string) *PrefixedFileProvider {
	return &PrefixedFileProvider{provider: provider, prefix: strings.Trim(prefix, "/")}
}

func (p *PrefixedFileProvider) Read(ctx context.Context, path string) ([]byte, error) {
	return p.provider.Read(ctx, p.join(path))
}

func (p *PrefixedFileProvider) Write(ctx context.Context, path string, data []byte) error {
	return p.provider.Write(ctx, p.join(path), data)
}

func (p *PrefixedFileProvider) Exists(ctx context.Context, path string) (bool, error) {
	return p.provider.Exists(ctx, p.join(path))
}

func (p *PrefixedFileProvider) Delete(ctx context.Context, path string) error {
	return p.provider.Delete(ctx, p.join(path))
}

func (p *PrefixedFileProvider) List(ctx context.Context, prefix string) ([]string, error) {
	files, err := p.provider.List(ctx, p.join(prefix))
	if err != nil {
		return nil, err
	}
	root := p.join("")
	out := make([]string, 0, len(files))
	for _, f := range files {
		if strings.HasPrefix(f, root) {
			out = append(out, f[len(root):])
		}
	}
	return out, nil
}

func (p *PrefixedFileProvider) join(path string) string {
	if p.prefix == "" {
		return path
	}
	return p.prefix + "/" + path
}
