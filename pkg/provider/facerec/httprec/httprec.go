// Package httprec provides a facerec.Recognizer backed by a face-recognition
// HTTP service.
//
// The service contract is a single endpoint, POST /recognize, accepting a
// multipart form with the frame under the "frame" field and responding with:
//
//	{"faces": [{"box": {...}, "name": "...", "encoding": [...]}]}
package httprec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/argus-ar/argus/pkg/provider/facerec"
)

// Compile-time assertion that Recognizer implements facerec.Recognizer.
var _ facerec.Recognizer = (*Recognizer)(nil)

// Option is a functional option for configuring a Recognizer.
type Option func(*Recognizer)

// WithHTTPClient overrides the HTTP client used for recognition requests.
// Mainly useful for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Recognizer) { r.httpClient = c }
}

// Recognizer implements facerec.Recognizer against a recognition HTTP
// service. It is safe for concurrent use; each Recognize call is an
// independent request.
type Recognizer struct {
	serverURL  string
	httpClient *http.Client
}

// New creates a Recognizer that connects to the recognition service at
// serverURL (e.g., "http://localhost:5001"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Recognizer, error) {
	if serverURL == "" {
		return nil, errors.New("httprec: serverURL must not be empty")
	}
	r := &Recognizer{
		serverURL:  serverURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Recognize uploads the frame and decodes the detections.
func (r *Recognizer) Recognize(ctx context.Context, frame []byte) ([]facerec.Detection, error) {
	if len(frame) == 0 {
		return nil, errors.New("httprec: frame must not be empty")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("frame", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("httprec: create form file: %w", err)
	}
	if _, err := fw.Write(frame); err != nil {
		return nil, fmt.Errorf("httprec: write frame data: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("httprec: close multipart writer: %w", err)
	}

	endpoint := r.serverURL + "/recognize"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("httprec: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httprec: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httprec: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httprec: read response body: %w", err)
	}

	var result struct {
		Faces []facerec.Detection `json:"faces"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("httprec: parse JSON response: %w", err)
	}
	return result.Faces, nil
}
