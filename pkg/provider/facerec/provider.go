// Package facerec defines the interfaces for camera capture and face
// recognition backends.
//
// Recognition is frame-oriented: a Camera produces encoded still frames, and
// a Recognizer analyses one frame at a time, returning every face it found
// together with the identity match (if any) and the face embedding. The
// embedding is what gets persisted when a new person is registered, so
// Recognizer implementations must return it even for unknown faces.
//
// Implementations must be safe for concurrent use.
package facerec

import "context"

// Unknown is the name reported for a detected face that matched no enrolled
// identity.
const Unknown = "Unknown"

// Box is a face bounding box in pixel coordinates (top-left origin).
type Box struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// Detection is one face found in a frame.
type Detection struct {
	// Box locates the face within the frame.
	Box Box `json:"box"`

	// Name is the matched identity, or [Unknown] when no enrolled face was
	// close enough.
	Name string `json:"name"`

	// Encoding is the face embedding computed for this detection. Always
	// populated, including for unknown faces.
	Encoding []float32 `json:"encoding"`

	// Notes and Category are filled in from the local store for known
	// faces before the detection reaches the display. Recognizer
	// implementations leave them empty.
	Notes    string `json:"notes,omitempty"`
	Category string `json:"category,omitempty"`
}

// IsKnown reports whether the detection matched an enrolled identity.
func (d Detection) IsKnown() bool {
	return d.Name != "" && d.Name != Unknown
}

// Camera produces encoded still frames from a video source.
type Camera interface {
	// Capture grabs the next frame as an encoded image (JPEG). It blocks
	// until a frame is available or ctx is cancelled.
	Capture(ctx context.Context) ([]byte, error)

	// Close releases the video source.
	Close() error
}

// Recognizer analyses one frame and returns the faces found in it. An empty
// slice with a nil error means the frame contained no faces.
type Recognizer interface {
	Recognize(ctx context.Context, frame []byte) ([]Detection, error)
}
