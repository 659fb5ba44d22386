// Package syncer keeps the local face_notes table aligned with a remote
// server. A background worker pulls remote edits on a fixed interval, and an
// Uploader pushes freshly committed registrations. Neither direction is
// durable: a failed pull is retried on the worker's own timer and a failed
// upload is only logged.
package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/argus-ar/argus/internal/observe"
)

const (
	// DefaultInterval is the pause between successful sync checks.
	DefaultInterval = 60 * time.Second
	// DefaultRetryInterval is the pause after a failed sync check.
	DefaultRetryInterval = 10 * time.Second
)

// Editor applies a remote update to the local store. *notestore.PostgresStore
// and *notestore.MemoryStore satisfy this interface.
type Editor interface {
	Edit(ctx context.Context, id int64, name, notes, category string) error
}

// Entry is one remote record in the sync check response.
type Entry struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Notes    string `json:"notes"`
	Category string `json:"category"`
}

// Worker periodically pulls pending updates from the sync server and applies
// them to the local store.
type Worker struct {
	baseURL       string
	store         Editor
	client        *http.Client
	interval      time.Duration
	retryInterval time.Duration
	metrics       *observe.Metrics
	log           *slog.Logger
}

// Option configures a [Worker].
type Option func(*Worker)

// WithInterval overrides [DefaultInterval].
func WithInterval(d time.Duration) Option {
	return func(w *Worker) { w.interval = d }
}

// WithRetryInterval overrides [DefaultRetryInterval].
func WithRetryInterval(d time.Duration) Option {
	return func(w *Worker) { w.retryInterval = d }
}

// WithHTTPClient overrides the HTTP client used for sync requests.
func WithHTTPClient(c *http.Client) Option {
	return func(w *Worker) { w.client = c }
}

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(w *Worker) { w.log = log }
}

// WithMetrics overrides the package-default metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

// NewWorker creates a sync worker for the server at baseURL.
func NewWorker(baseURL string, store Editor, opts ...Option) (*Worker, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("syncer: base URL must not be empty")
	}
	w := &Worker{
		baseURL:       strings.TrimRight(baseURL, "/"),
		store:         store,
		client:        &http.Client{Timeout: 30 * time.Second},
		interval:      DefaultInterval,
		retryInterval: DefaultRetryInterval,
		metrics:       observe.DefaultMetrics(),
		log:           slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run polls the sync server until ctx is cancelled. A failed check shortens
// the pause to the retry interval; it never stops the worker.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("sync worker started", "base_url", w.baseURL, "interval", w.interval)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		wait := w.interval
		if err := w.checkOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.log.Warn("sync check failed", "error", err)
			w.metrics.RecordSyncFailure(ctx, observe.DirectionPull)
			wait = w.retryInterval
		}
		timer.Reset(wait)
	}
}

// checkOnce fetches pending updates and applies each one to the local store.
func (w *Worker) checkOnce(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"/api/sync/check", nil)
	if err != nil {
		return fmt.Errorf("syncer: build check request: %w", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("syncer: sync check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("syncer: sync check returned status %d: %s", resp.StatusCode, string(body))
	}

	var entries []Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return fmt.Errorf("syncer: decode sync response: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	w.log.Info("received updates from server", "count", len(entries))
	for _, e := range entries {
		if err := w.store.Edit(ctx, e.ID, e.Name, e.Notes, e.Category); err != nil {
			// Keep applying the remaining entries; this one comes back
			// on the next check.
			w.log.Warn("failed to apply remote update", "id", e.ID, "name", e.Name, "error", err)
			continue
		}
		w.log.Debug("applied remote update", "id", e.ID, "name", e.Name)
	}
	return nil
}

// Uploader pushes newly registered faces to the sync server.
type Uploader struct {
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

// UploaderOption configures an [Uploader].
type UploaderOption func(*Uploader)

// WithUploaderHTTPClient overrides the HTTP client used for uploads.
func WithUploaderHTTPClient(c *http.Client) UploaderOption {
	return func(u *Uploader) { u.client = c }
}

// WithUploaderLogger overrides the default logger.
func WithUploaderLogger(log *slog.Logger) UploaderOption {
	return func(u *Uploader) { u.log = log }
}

// NewUploader creates an uploader for the server at baseURL.
func NewUploader(baseURL string, opts ...UploaderOption) (*Uploader, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("syncer: base URL must not be empty")
	}
	u := &Uploader{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

// Upload sends a committed registration to the server and returns the remote
// record ID. Callers treat failures as best effort.
func (u *Uploader) Upload(ctx context.Context, name, notes, category string) (int64, error) {
	payload, err := json.Marshal(map[string]string{
		"name":     name,
		"notes":    notes,
		"category": category,
	})
	if err != nil {
		return 0, fmt.Errorf("syncer: marshal upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/api/sync/add", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("syncer: build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("syncer: upload %q: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("syncer: upload %q returned status %d: %s", name, resp.StatusCode, string(body))
	}

	var result struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("syncer: decode upload response: %w", err)
	}

	u.log.Info("uploaded new face to server", "name", name, "remote_id", result.ID)
	return result.ID, nil
}
