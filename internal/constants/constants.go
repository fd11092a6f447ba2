// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Matching constants
const (
	// DefaultDistanceThreshold is the default maximum Euclidean distance for a
	// face match. Lower values = stricter matching.
	DefaultDistanceThreshold = 0.6

	// DefaultEmbeddingDim is the embedding dimensionality produced by the
	// default detector model.
	DefaultEmbeddingDim = 128

	// DefaultANNCutoff is the enrolled-vector count above which an approximate
	// index is built instead of scanning every embedding.
	DefaultANNCutoff = 256
)

// Attendance constants
const (
	// DefaultCooldownMinutes is how long a user's repeat sightings are
	// collapsed into the first logged event.
	DefaultCooldownMinutes = 5
)

// File upload constants
const (
	// MaxUploadSize is the maximum image upload size in bytes (20MB)
	MaxUploadSize = 20 << 20
)

// Image processing constants
const (
	// MaxImageSize is the maximum dimension (width or height) sent to the
	// detector; larger images are downscaled first
	MaxImageSize = 1600
)
