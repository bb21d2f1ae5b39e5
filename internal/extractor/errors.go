package extractor

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a rendered extraction failed.
type FailureKind string

// Failure kinds reported by RenderError.
const (
	FailureTimeout    FailureKind = "timeout"
	FailureLaunch     FailureKind = "launch"
	FailureNavigation FailureKind = "navigation"
	FailureParse      FailureKind = "parse"
	FailureStore      FailureKind = "store"
)

// RenderError is returned by Service.Render. The store is left untouched for
// every kind except FailureStore, where the write itself failed.
type RenderError struct {
	Kind FailureKind
	URL  string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendered scrape of %s failed (%s): %v", e.URL, e.Kind, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// StatusError reports a direct fetch that completed with a non-200 status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Failed to scrape. Status code: %d", e.Code)
}

// AsRenderError extracts a *RenderError from err.
func AsRenderError(err error) (*RenderError, bool) {
	var re *RenderError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// AsStatusError extracts a *StatusError from err.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
