package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Shivanand-hulikatti/eventhub/internal/config"
)

// FileStore keeps the session in a YAML file readable only by its owner.
type FileStore struct {
	Path string
}

// Load implements Store.
func (f FileStore) Load() (*Session, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Path, err)
	}
	return &s, nil
}

// Save implements Store.
func (f FileStore) Save(s *Session) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return config.WriteFileAtomic(f.Path, data)
}

// Clear implements Store.
func (f FileStore) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// MemoryStore keeps the session in memory.
type MemoryStore struct {
	mu sync.Mutex
	s  *Session
}

// NewMemoryStore returns a store holding s, which may be nil.
func NewMemoryStore(s *Session) *MemoryStore {
	return &MemoryStore{s: s}
}

// Load implements Store.
func (m *MemoryStore) Load() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s == nil {
		return nil, nil
	}
	cp := *m.s
	return &cp, nil
}

// Save implements Store.
func (m *MemoryStore) Save(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.s = &cp
	return nil
}

// Clear implements Store.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = nil
	return nil
}
