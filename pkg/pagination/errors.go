package pagination

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCursor is returned when the last item of a full page has no
	// usable cursor field, so the next page cannot be requested.
	ErrMissingCursor = errors.New("cursor field missing from last item")

	// ErrInvalidPage is returned when a page body is not a JSON array.
	ErrInvalidPage = errors.New("page is not a JSON array")
)

// PageError wraps a failure to fetch or decode one page.
type PageError struct {
	Endpoint string
	Page     int
	Err      error
}

// Error implements the error interface.
func (e *PageError) Error() string {
	return fmt.Sprintf("fetch page %d of %s: %v", e.Page, e.Endpoint, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *PageError) Unwrap() error {
	return e.Err
}

// panicError reports a panic raised inside a fetch function.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("fetch panicked: %v", e.value)
}
