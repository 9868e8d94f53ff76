package dictionary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// FileStore persists the dictionary as a sorted JSON array of words in a
// local file. Every Add rewrites the whole file; the word set is small
// enough that this is cheaper than being clever.
//
// Thread-safe for concurrent use.
type FileStore struct {
	mu    sync.RWMutex
	path  string
	words map[string]struct{}
}

// NewFileStore creates a FileStore backed by the file at path. The file is
// created on first Add if it does not exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:  path,
		words: make(map[string]struct{}),
	}
}

// Load implements [Store].
func (s *FileStore) Load(_ context.Context) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("dictionary: read %q: %w", s.path, err)
	}

	var words []string
	if err := json.Unmarshal(data, &words); err != nil {
		return fmt.Errorf("dictionary: parse %q: %w", s.path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.words = make(map[string]struct{}, len(words))
	for _, w := range words {
		s.words[strings.ToLower(w)] = struct{}{}
	}
	return nil
}

// Contains implements [Store].
func (s *FileStore) Contains(word string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.words[strings.ToLower(word)]
	return ok
}

// Add implements [Store]. The complete set is written atomically via a
// temp-file rename so a crash mid-write cannot corrupt the dictionary.
func (s *FileStore) Add(_ context.Context, word string) error {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.words[word]; ok {
		return nil
	}
	s.words[word] = struct{}{}

	words := make([]string, 0, len(s.words))
	for w := range s.words {
		words = append(words, w)
	}
	sort.Strings(words)

	data, err := json.MarshalIndent(words, "", "  ")
	if err != nil {
		return fmt.Errorf("dictionary: marshal: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("dictionary: mkdir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("dictionary: write %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("dictionary: rename %q: %w", s.path, err)
	}
	return nil
}

// Len returns the number of words currently in the dictionary.
func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.words)
}
