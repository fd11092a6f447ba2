// Package detector talks to the external face-detection server. The
// server receives an image and returns one bounding box plus embedding
// vector per detected face; this package treats it as an opaque
// collaborator.
package detector

import (
	"context"
	"errors"
)

// ErrDetectionFailed means the image was unreadable or the detector
// crashed on it. Retrying with the same image will fail the same way,
// so callers report the failure instead of retrying.
var ErrDetectionFailed = errors.New("face detection failed")

// BBox is a face bounding box in pixel coordinates.
type BBox struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// Area returns the box area in square pixels.
func (b BBox) Area() int {
	w := b.Right - b.Left
	h := b.Bottom - b.Top
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Detection is one detected face. Transient: it lives only within a
// single recognition call.
type Detection struct {
	BBox      BBox
	Embedding []float64
	Score     float64
}

// Detector extracts face detections from raw image bytes. An image with
// zero faces is not an error and yields an empty slice.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]Detection, error)
}
