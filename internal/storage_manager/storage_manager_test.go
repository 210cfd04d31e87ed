package storage_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseProvider(t *testing.T, p FileProvider) {
	t.Helper()
	ctx := context.Background()

	_, err := p.Read(ctx, "qa_data.json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound), "missing read should be ErrNotFound, got %v", err)

	ok, err := p.Exists(ctx, "qa_data.json")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, p.Write(ctx, "qa_data.json", []byte(`[]`)))
	require.NoError(t, p.Write(ctx, "state/memory.json", []byte(`{"mood":"neutral"}`)))

	data, err := p.Read(ctx, "qa_data.json")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	ok, err = p.Exists(ctx, "state/memory.json")
	require.NoError(t, err)
	assert.True(t, ok)

	files, err := p.List(ctx, "state")
	require.NoError(t, err)
	assert.Equal(t, []string{"state/memory.json"}, files)

	require.NoError(t, p.Delete(ctx, "qa_data.json"))
	require.NoError(t, p.Delete(ctx, "qa_data.json"), "second delete is a no-op")
	ok, err = p.Exists(ctx, "qa_data.json")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalFileProvider(t *testing.T) {
	exerciseProvider(t, NewLocalFileProvider(t.TempDir()))
}

func TestPrefixedFileProvider(t *testing.T) {
	dir := t.TempDir()
	root := NewLocalFileProvider(dir)
	p := NewPrefixedFileProvider(root, "bot")
	exerciseProvider(t, p)

	require.NoError(t, p.Write(context.Background(), "x.json", []byte("1")))
	data, err := root.Read(context.Background(), "bot/x.json")
	require.NoError(t, err)
	assert.Equal(t, "1", string(data))
}

func TestGitFileProvider(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "repo")
	p, err := NewGitFileProvider(GitProviderOptions{Path: dir, InitIfMissing: true})
	require.NoError(t, err)
	p.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	exerciseProvider(t, p)

	// identical rewrite creates no commit
	require.NoError(t, p.Write(context.Background(), "state/memory.json", []byte(`{"mood":"neutral"}`)))

	history, err := p.History(10)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"[auto] Delete qa_data.json",
		"[auto] Write state/memory.json",
		"[auto] Write qa_data.json",
	}, history)

	require.NoError(t, p.Ping(context.Background()))
}

func TestGitFileProvider_RequiresRepo(t *testing.T) {
	_, err := NewGitFileProvider(GitProviderOptions{})
	require.Error(t, err)

	_, err = NewGitFileProvider(GitProviderOptions{Path: t.TempDir()})
	require.Error(t, err, "no repo and InitIfMissing unset")
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) GetObject(_ context.Context, bucket, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

func (f *fakeS3) PutObject(_ context.Context, bucket, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[bucket+"/"+key] = data
	return nil
}

func (f *fakeS3) HeadObject(_ context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[bucket+"/"+key]; !ok {
		return ErrNotFound
	}
	return nil
}

func (f *fakeS3) DeleteObject(_ context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, bucket+"/"+key)
	return nil
}

func (f *fakeS3) ListObjects(_ context.Context, bucket, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		key := strings.TrimPrefix(k, bucket+"/")
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func TestS3FileProvider(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	exerciseProvider(t, NewS3FileProvider("bucket", "rota", fake))
}

type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (f *fakeRedis) Scan(_ context.Context, _ uint64, match string, _ int64) *redis.ScanCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(match, "*")
	var keys []string
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return redis.NewScanCmdResult(keys, 0, nil)
}

func TestRedisFileProvider(t *testing.T) {
	exerciseProvider(t, NewRedisFileProvider(&fakeRedis{data: map[string]string{}}, "rota:"))
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	m, err := New(ctx, Config{Backend: BackendLocal, LocalDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, m.Backend())
	require.NoError(t, m.Ping(ctx))

	_, err = New(ctx, Config{Backend: BackendLocal})
	assert.Error(t, err)

	_, err = New(ctx, Config{Backend: BackendS3})
	assert.Error(t, err)

	m, err = New(ctx, Config{Backend: BackendS3, S3Bucket: "b", S3Client: &fakeS3{objects: map[string][]byte{}}})
	require.NoError(t, err)
	require.NoError(t, m.Ping(ctx))

	_, err = New(ctx, Config{Backend: BackendRedis})
	assert.Error(t, err)

	m, err = New(ctx, Config{Backend: BackendGit, Git: GitProviderOptions{Path: filepath.Join(t.TempDir(), "g")}})
	require.NoError(t, err)
	require.NoError(t, m.Ping(ctx))

	_, err = New(ctx, Config{Backend: "ftp"})
	assert.Error(t, err)
}
