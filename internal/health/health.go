// Package health exposes the marksense server's liveness and readiness
// endpoints.
//
//   - /healthz — liveness; a process that can serve HTTP is alive.
//   - /readyz  — readiness; checks the engine's external dependencies (the
//     assist service and the dictionary store) and returns 503 while any of
//     them fails, keeping traffic away from an instance that cannot serve
//     corrections.
//
// Responses carry a top-level "status" ("ready" or "degraded") and a
// per-component result list with check latency.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// checkTimeout bounds a single readiness check. An assist service slower
// than this is indistinguishable from an outage for typing purposes.
const checkTimeout = 2 * time.Second

// Checker verifies one dependency. Check must return nil when the
// component can serve and must respect context cancellation.
type Checker struct {
	Component string
	Check     func(ctx context.Context) error
}

// Assist returns the readiness checker for the assist service, backed by
// its reachability ping.
func Assist(ping func(ctx context.Context) error) Checker {
	return Checker{Component: "assist", Check: ping}
}

// Dictionary returns the readiness checker for the dictionary store. load
// should be the store's Load; a store that can re-read its backing set can
// also persist to it.
func Dictionary(load func(ctx context.Context) error) Checker {
	return Checker{Component: "dictionary", Check: load}
}

// checkResult is one component's outcome in the readiness response.
type checkResult struct {
	Component string `json:"component"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

type report struct {
	Status string        `json:"status"`
	Checks []checkResult `json:"checks,omitempty"`
}

// Handler serves /healthz and /readyz. Safe for concurrent use; the checker
// list is fixed at construction time.
type Handler struct {
	checkers []Checker
}

// New creates a Handler that runs the given checkers, in order, on each
// /readyz request.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz always reports ready: liveness is the ability to answer at all.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, report{Status: "ready"})
}

// Readyz runs every checker under a per-check deadline derived from the
// request context and reports 503 when any check fails.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	res := report{Status: "ready", Checks: make([]checkResult, 0, len(h.checkers))}
	status := http.StatusOK

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		start := time.Now()
		err := c.Check(ctx)
		elapsed := time.Since(start)
		cancel()

		cr := checkResult{Component: c.Component, OK: err == nil, ElapsedMS: elapsed.Milliseconds()}
		if err != nil {
			cr.Error = err.Error()
			res.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
		res.Checks = append(res.Checks, cr)
	}

	writeJSON(w, status, res)
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// writeJSON encodes v with the given status code. On encoding failure it
// falls back to a plain-text 500 response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
