package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/victor-ca/marksense/internal/dictionary"
)

// ErrBackendNotRegistered is returned by [Registry.CreateDictionary] when no
// factory has been registered under the requested backend name.
var ErrBackendNotRegistered = errors.New("config: dictionary backend not registered")

// DictionaryFactory builds a dictionary store from its config block.
type DictionaryFactory func(DictionaryConfig) (dictionary.Store, error)

// Registry maps dictionary backend names to their constructor functions.
// It is safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	dictionaries map[DictionaryBackend]DictionaryFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		dictionaries: make(map[DictionaryBackend]DictionaryFactory),
	}
}

// RegisterDictionary registers a dictionary store factory under backend.
// Subsequent calls with the same backend overwrite the previous registration.
func (r *Registry) RegisterDictionary(backend DictionaryBackend, factory DictionaryFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dictionaries[backend] = factory
}

// CreateDictionary builds the dictionary store selected by cfg.Backend.
func (r *Registry) CreateDictionary(cfg DictionaryConfig) (dictionary.Store, error) {
	r.mu.RLock()
	factory, ok := r.dictionaries[cfg.Backend]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotRegistered, cfg.Backend)
	}
	return factory(cfg)
}
