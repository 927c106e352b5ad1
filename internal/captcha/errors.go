package captcha

import (
	"errors"
	"fmt"
)

// ErrParseFailure indicates the OCR text did not contain two numeric tokens.
var ErrParseFailure = errors.New("captcha parse failure")

// ErrUnsupportedOperator indicates no recognized operator was found.
var ErrUnsupportedOperator = errors.New("captcha operator unsupported")

// ErrRejectedByPortal is raised by the login driver when the portal reports
// the submitted answer as wrong. Unlike the two errors above it requires a
// fresh login attempt, not another OCR pass over the same challenge.
var ErrRejectedByPortal = errors.New("captcha rejected by portal")

// ErrExhausted matches any *ExhaustedError via errors.Is.
var ErrExhausted = errors.New("captcha attempts exhausted")

// ErrCancelled is returned when the run context ends mid-solve.
var ErrCancelled = errors.New("captcha solving cancelled")

// ExhaustedError reports that every local attempt failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("captcha unsolved after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}
