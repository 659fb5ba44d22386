package httprec

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCamera_Capture(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/frame" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff, 0xe0})
	}))
	t.Cleanup(srv.Close)

	cam, err := NewCamera(srv.URL)
	if err != nil {
		t.Fatalf("NewCamera: %v", err)
	}
	frame, err := cam.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if len(frame) != 4 || frame[0] != 0xff {
		t.Errorf("frame = %v, want JPEG magic bytes", frame)
	}
}

func TestCamera_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "camera busy", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	cam, err := NewCamera(srv.URL)
	if err != nil {
		t.Fatalf("NewCamera: %v", err)
	}
	if _, err := cam.Capture(context.Background()); err == nil {
		t.Fatal("Capture should fail on HTTP 503")
	}
}

func TestCamera_EmptyFrame(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	cam, err := NewCamera(srv.URL)
	if err != nil {
		t.Fatalf("NewCamera: %v", err)
	}
	if _, err := cam.Capture(context.Background()); err == nil {
		t.Fatal("an empty body should be an error")
	}
}

func TestNewCamera_EmptyURL(t *testing.T) {
	t.Parallel()

	if _, err := NewCamera(""); err == nil {
		t.Fatal("empty server URL should be rejected")
	}
}
