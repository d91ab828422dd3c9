package notequiz

import "errors"

var (
	// ErrCapabilityUnavailable means the generation service is not configured or not reachable.
	ErrCapabilityUnavailable = errors.New("quiz generation capability unavailable")

	// ErrInsufficientContent means the generation budget ran out before the pool reached the requested size.
	ErrInsufficientContent = errors.New("insufficient quiz content")
)

// Session state errors
var (
	ErrNoteResolved      = errors.New("note load status already resolved")
	ErrNoteNotLoaded     = errors.New("note is not loaded")
	ErrSessionStarted    = errors.New("session already started")
	ErrSessionNotStarted = errors.New("session not started")
	ErrSessionFinished   = errors.New("session finished")
	ErrAlreadyAnswered   = errors.New("quiz already answered")
	ErrNotCurrentQuiz    = errors.New("not the current quiz")
)
