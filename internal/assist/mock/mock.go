// Package mock provides a scripted assist client double for tests.
package mock

import (
	"context"
	"sync"

	"github.com/victor-ca/marksense/internal/assist"
)

// Client is a scripted test double for the assist HTTP client. Configure
// the response fields (or the hook funcs for per-call behaviour) before use.
// The zero value returns empty responses and nil errors.
//
// Thread-safe; call counters can be read while requests are in flight.
type Client struct {
	mu sync.Mutex

	// Scripted responses. The hook funcs take precedence when non-nil.
	WordResponse       *assist.WordCorrection
	WordErr            error
	GrammarResponse    []assist.GrammarMatch
	GrammarErr         error
	CompletionResponse *assist.Completion
	CompletionErr      error

	WordFunc       func(ctx context.Context, text string) (*assist.WordCorrection, error)
	GrammarFunc    func(ctx context.Context, sentence, fullText string) ([]assist.GrammarMatch, error)
	CompletionFunc func(ctx context.Context, text string) (*assist.Completion, error)

	// Call records.
	WordCalls       []string
	GrammarCalls    []string
	CompletionCalls []string
}

// CorrectFinalWord implements the engine's assistant contract.
func (c *Client) CorrectFinalWord(ctx context.Context, text string) (*assist.WordCorrection, error) {
	c.mu.Lock()
	c.WordCalls = append(c.WordCalls, text)
	fn, resp, err := c.WordFunc, c.WordResponse, c.WordErr
	c.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return resp, err
}

// CheckGrammar implements the engine's assistant contract.
func (c *Client) CheckGrammar(ctx context.Context, sentence, fullText string) ([]assist.GrammarMatch, error) {
	c.mu.Lock()
	c.GrammarCalls = append(c.GrammarCalls, sentence)
	fn, resp, err := c.GrammarFunc, c.GrammarResponse, c.GrammarErr
	c.mu.Unlock()

	if fn != nil {
		return fn(ctx, sentence, fullText)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return resp, err
}

// CompleteSentence implements the engine's assistant contract.
func (c *Client) CompleteSentence(ctx context.Context, text string) (*assist.Completion, error) {
	c.mu.Lock()
	c.CompletionCalls = append(c.CompletionCalls, text)
	fn, resp, err := c.CompletionFunc, c.CompletionResponse, c.CompletionErr
	c.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return resp, err
}

// Counts returns how many calls of each kind have been made.
func (c *Client) Counts() (word, grammar, completion int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.WordCalls), len(c.GrammarCalls), len(c.CompletionCalls)
}
