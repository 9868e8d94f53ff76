// Package assist is the HTTP client for the remote writing-assistant
// service: final-word spelling correction, whole-text grammar checking, and
// sentence completion.
//
// All three calls are plain JSON POSTs. Responses are decoded tolerantly —
// the grammar endpoint in particular has shipped two generations of field
// names and both are accepted (see [GrammarMatch]). The client carries no
// retry logic: callers treat a failed request as a dropped request and wait
// for the next natural trigger.
package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	finalWordPath  = "/correction/final_word"
	grammarPath    = "/grammar_correction/whole_text_grammar_correction"
	completionPath = "/completion/sentence_complete"

	defaultTimeout = 10 * time.Second
)

// ErrAborted is returned when a request's context was cancelled before or
// during the call. Callers discard the response unconditionally.
var ErrAborted = errors.New("assist: request aborted")

// Option is a functional option for configuring a [Client].
type Option func(*Client)

// WithAPIKey sets a bearer token sent on every request. When empty (the
// default) no Authorization header is sent.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithLanguages sets the language hints included in every request body.
// Default: ["en"].
func WithLanguages(langs []string) Option {
	return func(c *Client) {
		if len(langs) > 0 {
			c.languages = langs
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client, e.g. to tune the
// transport or inject a test round-tripper.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// Client talks to the writing-assistant service. It is safe for concurrent
// use; the three endpoints are independent and may be in flight
// simultaneously.
type Client struct {
	baseURL    string
	apiKey     string
	languages  []string
	httpClient *http.Client
}

// New creates a Client for the service at baseURL (scheme and host, no
// trailing slash required).
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("assist: baseURL must not be empty")
	}
	c := &Client{
		baseURL:    baseURL,
		languages:  []string{"en"},
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// CorrectFinalWord submits the text of the current block up to the word
// boundary the user just typed and returns the service's verdict on the
// final word.
func (c *Client) CorrectFinalWord(ctx context.Context, text string) (*WordCorrection, error) {
	body := struct {
		Text      string   `json:"text"`
		Languages []string `json:"languages"`
	}{Text: text, Languages: c.languages}

	var out WordCorrection
	if err := c.post(ctx, finalWordPath, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckGrammar submits a sentence plus its full document context and returns
// the grammar matches found within the sentence. Offsets in the result are
// relative to the submitted sentence text.
func (c *Client) CheckGrammar(ctx context.Context, sentence, fullText string) ([]GrammarMatch, error) {
	body := struct {
		Text      string   `json:"text"`
		Languages []string `json:"languages"`
		FullText  string   `json:"full_text"`
	}{Text: sentence, Languages: c.languages, FullText: fullText}

	var out struct {
		Matches []GrammarMatch `json:"matches"`
	}
	if err := c.post(ctx, grammarPath, body, &out); err != nil {
		return nil, err
	}
	return out.Matches, nil
}

// CompleteSentence submits the text before the cursor and returns completion
// candidates.
func (c *Client) CompleteSentence(ctx context.Context, text string) (*Completion, error) {
	body := struct {
		Text      string   `json:"text"`
		Languages []string `json:"languages"`
	}{Text: text, Languages: c.languages}

	var out Completion
	if err := c.post(ctx, completionPath, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ping reports whether the service is reachable. Any HTTP response below
// 500 counts as reachable; the endpoints themselves are POST-only.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return fmt.Errorf("assist: build ping request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("assist: ping: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("assist: ping: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// post performs one JSON POST round-trip. Context cancellation is surfaced
// as [ErrAborted] so callers can distinguish a superseded request from a
// transport failure.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrAborted, err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("assist: marshal %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("assist: build request %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrAborted, ctx.Err())
		}
		return fmt.Errorf("assist: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read a little of the body for the log line; the caller drops the
		// request either way.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("assist: %s: unexpected status %d: %s", path, resp.StatusCode, snippet)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("assist: %s: decode response: %w", path, err)
	}
	return nil
}
