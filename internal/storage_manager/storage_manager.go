package storage_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// BackendType names a storage backend.
type BackendType string

const (
	BackendLocal BackendType = "local"
	BackendS3    BackendType = "s3"
	BackendGit   BackendType = "git"
	BackendRedis BackendType = "redis"
)

// Config selects a backend and carries its settings. Only the selected backend's
// section is read.
type Config struct {
	Backend BackendType

	LocalDir string

	S3Bucket  string
	S3Prefix  string
	S3Region  string
	S3Profile string
	// S3Client overrides the client built from the default AWS credential chain.
	S3Client S3Client

	Git GitProviderOptions

	Redis          RedisKV
	RedisKeyPrefix string
}

// StorageManager hands out namespaced providers over one backend.
type StorageManager struct {
	backend  BackendType
	provider FileProvider
}

// New builds the provider for cfg.Backend.
func New(ctx context.Context, cfg Config) (*StorageManager, error) {
	var provider FileProvider

	switch cfg.Backend {
	case BackendLocal, "":
		if cfg.LocalDir == "" {
			return nil, fmt.Errorf("base directory is required for local backend")
		}
		cfg.Backend = BackendLocal
		provider = NewLocalFileProvider(cfg.LocalDir)

	case BackendS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("bucket is required for s3 backend")
		}
		client := cfg.S3Client
		if client == nil {
			c, err := newAWSClient(ctx, cfg.S3Region, cfg.S3Profile)
			if err != nil {
				return nil, err
			}
			client = c
		}
		provider = NewS3FileProvider(cfg.S3Bucket, cfg.S3Prefix, client)

	case BackendGit:
		opts := cfg.Git
		opts.InitIfMissing = true
		p, err := NewGitFileProvider(opts)
		if err != nil {
			return nil, err
		}
		provider = p

	case BackendRedis:
		if cfg.Redis == nil {
			return nil, fmt.Errorf("redis client is required for redis backend")
		}
		provider = NewRedisFileProvider(cfg.Redis, cfg.RedisKeyPrefix)

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Backend)
	}

	return &StorageManager{backend: cfg.Backend, provider: provider}, nil
}

// NewWithProvider wraps an existing provider, mostly for tests.
func NewWithProvider(provider FileProvider) *StorageManager {
	return &StorageManager{backend: "custom", provider: provider}
}

func newAWSClient(ctx context.Context, region, profile string) (*AWSS3Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewAWSS3Client(s3.NewFromConfig(awsCfg)), nil
}

// GetProvider returns a provider scoped to namespace, or the root provider when empty.
func (m *StorageManager) GetProvider(namespace string) FileProvider {
	if namespace == "" {
		return m.provider
	}
	return NewPrefixedFileProvider(m.provider, namespace)
}

func (m *StorageManager) Backend() BackendType {
	return m.backend
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks the backend. Providers with their own Ping are asked directly; the
// rest get a write, read back and delete of a probe document.
func (m *StorageManager) Ping(ctx context.Context) error {
	if p, ok := m.provider.(pinger); ok {
		return p.Ping(ctx)
	}
	const probe = ".healthcheck"
	payload := []byte("ok")
	if err := m.provider.Write(ctx, probe, payload); err != nil {
		return fmt.Errorf("storage write probe: %w", err)
	}
	got, err := m.provider.Read(ctx, probe)
	if err != nil {
		return fmt.Errorf("storage read probe: %w", err)
	}
	if string(got) != string(payload) {
		return fmt.Errorf("storage probe mismatch: %q", got)
	}
	if err := m.provider.Delete(ctx, probe); err != nil {
		return fmt.Errorf("storage delete probe: %w", err)
	}
	return nil
}
