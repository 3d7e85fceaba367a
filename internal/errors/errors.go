// Package errors defines the domain errors shared across packages.
// Match them with the standard errors.Is and errors.As.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks malformed user input, such as a command
	// argument of the wrong shape.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCatalogUnavailable marks a catalog search that could not be fetched
	// or parsed. Users see the generic catalog error and nothing is retried.
	ErrCatalogUnavailable = errors.New("course catalog unavailable")

	// ErrNoMatch is the log reason for a command that matched no pattern.
	ErrNoMatch = errors.New("no command matched")

	// ErrInvalidNavigation marks a page move outside the stored results, or
	// any move when nothing is stored. It is treated as a no-op.
	ErrInvalidNavigation = errors.New("invalid page navigation")
)

// ValidationError reports which field of the input was rejected.
// It matches ErrInvalidInput.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError returns a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// ScraperError is a failed page fetch. StatusCode is zero when no response
// was received.
type ScraperError struct {
	URL        string
	StatusCode int
	Err        error
}

// NewScraperError returns a ScraperError wrapping err.
func NewScraperError(url string, statusCode int, err error) *ScraperError {
	return &ScraperError{URL: url, StatusCode: statusCode, Err: err}
}

func (e *ScraperError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("scraper error (url=%s): %v", e.URL, e.Err)
	}
	return fmt.Sprintf("scraper error (url=%s, status=%d): %v", e.URL, e.StatusCode, e.Err)
}

func (e *ScraperError) Unwrap() error { return e.Err }

// CatalogError is a failed catalog search for one academic term.
// It matches ErrCatalogUnavailable and unwraps to its cause.
type CatalogError struct {
	Term string
	Err  error
}

// NewCatalogError returns a CatalogError for term wrapping err.
func NewCatalogError(term string, err error) *CatalogError {
	return &CatalogError{Term: term, Err: err}
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog search failed (term=%s): %v", e.Term, e.Err)
}

func (e *CatalogError) Unwrap() error { return e.Err }

func (e *CatalogError) Is(target error) bool { return target == ErrCatalogUnavailable }
