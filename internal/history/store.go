// Package history persists conversation turns as a single JSON blob on disk.
// Every operation reads or rewrites the whole file; a store-wide mutex
// serializes the load-mutate-save cycle so concurrent requests cannot lose
// each other's writes.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/studyhub-ai/assistant-api/internal/model"
)

// Store is a file-backed conversation history store.
type Store struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewStore creates a store persisting to path. The file is created lazily on
// the first save.
func NewStore(path string, log *zap.Logger) *Store {
	return &Store{path: path, logger: log}
}

// Load reads and deserializes the whole history blob. A missing or corrupt
// file yields an empty history, never an error: the store is best-effort
// durable and must not take chat down with it.
func (s *Store) Load() (model.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save serializes and overwrites the whole history blob.
func (s *Store) Save(h model.History) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(h)
}

// Get returns the ordered turns for one conversation. A conversation that
// has never been written is an empty sequence, not an error.
func (s *Store) Get(conversationID string) ([]model.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.load()
	if err != nil {
		return nil, err
	}
	return h[conversationID], nil
}

// Append appends turns to one conversation under the store lock and persists
// the result. It returns the conversation's full turn sequence after the
// append.
func (s *Store) Append(conversationID string, turns ...model.Turn) ([]model.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.load()
	if err != nil {
		return nil, err
	}
	h[conversationID] = append(h[conversationID], turns...)
	if err := s.save(h); err != nil {
		return nil, err
	}
	return h[conversationID], nil
}

// Clear removes a conversation's entire turn sequence. Clearing an unknown
// conversation is a no-op.
func (s *Store) Clear(conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := h[conversationID]; !ok {
		return nil
	}
	delete(h, conversationID)
	return s.save(h)
}

func (s *Store) load() (model.History, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return model.History{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history file: %w", err)
	}

	var h model.History
	if err := json.Unmarshal(data, &h); err != nil {
		s.logger.Warn("history file corrupt, starting empty",
			zap.String("path", s.path),
			zap.Error(err),
		)
		return model.History{}, nil
	}
	if h == nil {
		h = model.History{}
	}
	return h, nil
}

func (s *Store) save(h model.History) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write history file: %w", err)
	}
	return nil
}
