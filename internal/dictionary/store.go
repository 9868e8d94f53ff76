// Package dictionary implements the user's "never correct" word list.
//
// The dictionary is a process-wide set of lowercase words consulted
// synchronously before any correction is surfaced or applied. Implementations
// keep the full set in memory for lookup and persist the complete set on
// every mutation, so a word added mid-flight suppresses responses still in
// transit when they land.
package dictionary

import "context"

// Store is the dictionary contract the engine holds a reference to. It is
// injected explicitly; there is no package-level singleton.
type Store interface {
	// Load reads the persisted word set into memory. Call once at startup;
	// a missing backing store is not an error (the set starts empty).
	Load(ctx context.Context) error

	// Contains reports whether word is in the dictionary. The check is
	// case-insensitive and safe to call from response handlers.
	Contains(word string) bool

	// Add lowercases word, inserts it, and persists the full set
	// immediately. Adding a word that is already present is a no-op.
	Add(ctx context.Context, word string) error
}
