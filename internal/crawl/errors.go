package crawl

import (
	"errors"
	"fmt"
	"time"
)

// InvalidInputError reports a raw URL that cannot be turned into a fetchable
// target. Not retryable; the caller must fix the input.
type InvalidInputError struct {
	Input string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid crawl input %q", e.Input)
}

// LaunchError reports that the browser engine could not be started or a tab
// could not be acquired. Retryable as a fresh attempt.
type LaunchError struct {
	URL string
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("browser launch failed for %s: %v", e.URL, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// NavigationTimeoutError reports that a page did not reach its ready
// condition within the attempt deadline. Retryable with backoff.
type NavigationTimeoutError struct {
	URL     string
	Timeout time.Duration
	Err     error
}

func (e *NavigationTimeoutError) Error() string {
	return fmt.Sprintf("navigation to %s not ready within %s: %v", e.URL, e.Timeout, e.Err)
}

func (e *NavigationTimeoutError) Unwrap() error { return e.Err }

// ExtractionError reports that a loaded page does not match the expected
// platform structure. Not retryable at the orchestrator level.
type ExtractionError struct {
	URL      string
	Platform Platform
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s adapter on %s: %v", e.Platform, e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// PersistenceError reports a storage failure after a successful crawl. It is
// surfaced separately from crawl success so callers can retry storage alone.
type PersistenceError struct {
	URL string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist crawl result for %s: %v", e.URL, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// KindOf maps an error from the taxonomy above to its ErrorKind.
func KindOf(err error) ErrorKind {
	var (
		invalid *InvalidInputError
		launch  *LaunchError
		nav     *NavigationTimeoutError
		ext     *ExtractionError
		persist *PersistenceError
	)
	switch {
	case errors.As(err, &invalid):
		return ErrKindInvalidInput
	case errors.As(err, &launch):
		return ErrKindLaunch
	case errors.As(err, &nav):
		return ErrKindNavigationTimeout
	case errors.As(err, &ext):
		return ErrKindExtraction
	case errors.As(err, &persist):
		return ErrKindPersistence
	}
	return ErrKindUnknown
}
