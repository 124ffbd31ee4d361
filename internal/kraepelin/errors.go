package kraepelin

import "errors"

var (
	// ErrInvalidConfiguration is returned for dimensions, timers or difficulties outside the allowed bounds.
	ErrInvalidConfiguration = errors.New("invalid kraepelin configuration")

	// ErrOutOfRangeDigit is returned for submitted answers outside [0,9].
	ErrOutOfRangeDigit = errors.New("answer digit out of range")

	// ErrMalformedMatrix is returned when a stimulus matrix is not rectangular or holds non-digits.
	ErrMalformedMatrix = errors.New("malformed stimulus matrix")

	// ErrMalformedAnswers is returned when an answer grid does not fit its matrix.
	ErrMalformedAnswers = errors.New("malformed answer grid")

	// Session lifecycle errors
	ErrSessionNotStarted      = errors.New("session not started")
	ErrSessionAlreadyStarted  = errors.New("session already started")
	ErrSessionAlreadyFinished = errors.New("session already finished")
	ErrColumnClosed           = errors.New("column already closed")
)
