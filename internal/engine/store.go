package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lewisedginton/rota/internal/storage_manager"
	"github.com/lewisedginton/rota/pkg/logger"
)

// StateStore reads and writes the engine State as one JSON document.
type StateStore struct {
	provider storage_manager.FileProvider
	path     string
	log      logger.Logger
}

func NewStateStore(provider storage_manager.FileProvider, path string, log logger.Logger) *StateStore {
	return &StateStore{provider: provider, path: path, log: log}
}

// Load returns the stored state, or DefaultState when the document is missing or
// unreadable. Failures other than a missing document are logged.
func (s *StateStore) Load(ctx context.Context) State {
	data, err := s.provider.Read(ctx, s.path)
	if err != nil {
		if !errors.Is(err, storage_manager.ErrNotFound) {
			s.log.Warn("Failed to read engine state, starting fresh",
				logger.StringField("path", s.path), logger.ErrorField(err))
		}
		return DefaultState()
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		s.log.Warn("Engine state is not valid JSON, starting fresh",
			logger.StringField("path", s.path), logger.ErrorField(err))
		return DefaultState()
	}
	if st.Mood == "" {
		st.Mood = DefaultState().Mood
	}
	if st.Memory == nil {
		st.Memory = []MemoryEntry{}
	}
	return st
}

// Save overwrites the stored document.
func (s *StateStore) Save(ctx context.Context, st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode engine state: %w", err)
	}
	if err := s.provider.Write(ctx, s.path, data); err != nil {
		return fmt.Errorf("failed to write engine state: %w", err)
	}
	return nil
}
