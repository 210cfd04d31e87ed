package storage_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalFileProvider keeps documents under a base directory.
type LocalFileProvider struct {
	baseDir string
}

func NewLocalFileProvider(baseDir string) *LocalFileProvider {
	return &LocalFileProvider{baseDir: baseDir}
}

func (p *LocalFileProvider) Read(_ context.Context, path string) ([]byte, error) {
	return readFile(filepath.Join(p.baseDir, path))
}

// Write creates parent directories as needed and replaces the file.
func (p *LocalFileProvider) Write(_ context.Context, path string, data []byte) error {
	return writeFile(filepath.Join(p.baseDir, path), data)
}

func (p *LocalFileProvider) Exists(_ context.Context, path string) (bool, error) {
	return fileExists(filepath.Join(p.baseDir, path))
}

// Delete is a no-op for missing files.
func (p *LocalFileProvider) Delete(_ context.Context, path string) error {
	err := os.Remove(filepath.Join(p.baseDir, path))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

func (p *LocalFileProvider) List(_ context.Context, prefix string) ([]string, error) {
	return walkFiles(p.baseDir, prefix)
}

func readFile(full string) ([]byte, error) {
	data, err := os.ReadFile(full) //nolint:gosec // G304: path is rooted at a configured directory
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, full)
	}
	return data, err
}

func writeFile(full string, data []byte) error {
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := os.WriteFile(full, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", full, err)
	}
	return nil
}

func fileExists(full string) (bool, error) {
	_, err := os.Stat(full)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// walkFiles lists regular files below root/prefix as slash separated paths relative
// to root. A .git directory is never descended into.
func walkFiles(root, prefix string) ([]string, error) {
	result := []string{}
	err := filepath.WalkDir(filepath.Join(root, prefix), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		result = append(result, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	return result, nil
}
