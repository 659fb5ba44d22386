package httprec

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/argus-ar/argus/pkg/provider/facerec"
)

// Camera is a facerec.Camera that pulls JPEG snapshots from the recognition
// server's /frame endpoint. The server owns the physical video device; Argus
// only ever sees encoded frames.
type Camera struct {
	serverURL string
	client    *http.Client
}

// Compile-time assertion that Camera implements facerec.Camera.
var _ facerec.Camera = (*Camera)(nil)

// CameraOption configures a [Camera].
type CameraOption func(*Camera)

// WithCameraHTTPClient overrides the HTTP client used for snapshot requests.
func WithCameraHTTPClient(c *http.Client) CameraOption {
	return func(cam *Camera) { cam.client = c }
}

// NewCamera creates a snapshot camera for the recognition server at
// serverURL.
func NewCamera(serverURL string, opts ...CameraOption) (*Camera, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("httprec: server URL must not be empty")
	}
	cam := &Camera{
		serverURL: serverURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(cam)
	}
	return cam, nil
}

// Capture fetches the next snapshot from the server.
func (c *Camera) Capture(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/frame", nil)
	if err != nil {
		return nil, fmt.Errorf("httprec: build frame request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httprec: fetch frame: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("httprec: frame request returned status %d: %s", resp.StatusCode, string(body))
	}

	frame, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httprec: read frame: %w", err)
	}
	if len(frame) == 0 {
		return nil, fmt.Errorf("httprec: server returned an empty frame")
	}
	return frame, nil
}

// Close is a no-op; the video device lives on the server side.
func (c *Camera) Close() error { return nil }
