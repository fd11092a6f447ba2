package handlers

import (
	"context"

	"github.com/kozaktomas/face-attendance/internal/recognizer"
	"github.com/kozaktomas/face-attendance/internal/store"
)

// RecognizerService is the slice of the recognition pipeline the HTTP
// handlers need. *recognizer.Service satisfies it.
type RecognizerService interface {
	RecognizeAndLog(ctx context.Context, image []byte, source string) ([]recognizer.MatchResult, error)
	Enroll(ctx context.Context, userID string, image []byte) (recognizer.EnrollResult, error)
	Users(ctx context.Context) ([]store.EnrolledUser, error)
	RemoveUser(ctx context.Context, userID string) error
	Records(ctx context.Context, filter store.RecordFilter) ([]store.Event, error)
	EnrolledCount(ctx context.Context) (int, error)
}
