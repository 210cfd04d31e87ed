package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lewisedginton/rota/internal/storage_manager"
)

// RecordStore loads and replaces the whole record list.
type RecordStore interface {
	Load(ctx context.Context) ([]QARecord, error)
	Save(ctx context.Context, records []QARecord) error
}

// FileStore keeps the records as a JSON array in one document.
type FileStore struct {
	provider storage_manager.FileProvider
	path     string
}

func NewFileStore(provider storage_manager.FileProvider, path string) *FileStore {
	return &FileStore{provider: provider, path: path}
}

// Load returns an empty list for a missing document.
func (s *FileStore) Load(ctx context.Context) ([]QARecord, error) {
	data, err := s.provider.Read(ctx, s.path)
	if errors.Is(err, storage_manager.ErrNotFound) {
		return []QARecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	var records []QARecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	if records == nil {
		records = []QARecord{}
	}
	return records, nil
}

func (s *FileStore) Save(ctx context.Context, records []QARecord) error {
	if records == nil {
		records = []QARecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	if err := s.provider.Write(ctx, s.path, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}
