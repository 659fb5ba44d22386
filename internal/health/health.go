// Package health exposes liveness and readiness probes for the Argus
// process. /healthz answers 200 whenever the HTTP server is up; /readyz
// answers 200 only when every registered dependency check passes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// probeTimeout bounds each individual readiness check.
const probeTimeout = 5 * time.Second

// Check probes one dependency. A nil return means healthy.
type Check func(ctx context.Context) error

// Checker is a named readiness check.
type Checker struct {
	Name  string
	Check Check
}

// Pinger is the subset of *pgxpool.Pool used by [DatabaseChecker].
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseChecker reports whether the face database answers a ping.
func DatabaseChecker(db Pinger) Checker {
	return Checker{
		Name:  "database",
		Check: func(ctx context.Context) error { return db.Ping(ctx) },
	}
}

type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the probe endpoints. The checker list is fixed at
// construction time, so it is safe for concurrent use.
type Handler struct {
	checkers []Checker
}

// New creates a Handler evaluating the given checkers in order on each
// /readyz request.
func New(checkers ...Checker) *Handler {
	return &Handler{checkers: append([]Checker(nil), checkers...)}
}

// Register adds the probe routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// Healthz always answers 200. A process that can serve HTTP is alive.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, report{Status: "ok"})
}

// Readyz answers 200 only when every checker passes. Each check runs with a
// deadline derived from the request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.checkers))
	ok := true

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			ok = false
			continue
		}
		checks[c.Name] = "ok"
	}

	res := report{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !ok {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
