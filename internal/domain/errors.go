package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedResponse is returned when the catalog source answers with a
	// shape that cannot be parsed
	ErrMalformedResponse = errors.New("malformed catalog response")

	// ErrThrottled is returned when the catalog source asks the caller to slow down
	ErrThrottled = errors.New("catalog source throttled")

	// ErrCancelled is returned when the caller's context ends during a scan
	ErrCancelled = errors.New("scan cancelled")

	// ErrPersistenceFailure marks a failed group, statistics or backup write
	ErrPersistenceFailure = errors.New("persistence failure")

	// ErrGroupingFault is returned when a matching rule violates a data-model invariant
	ErrGroupingFault = errors.New("grouping fault")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrNotFound is returned when a scope, statistic or item is unknown
	ErrNotFound = errors.New("not found")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCatalogAPIFailure is returned when the catalog HTTP request fails
	ErrCatalogAPIFailure = errors.New("catalog API request failed")
)

// IngestionError is a fatal fetch failure. Page is the 1-based page being
// requested when it happened.
type IngestionError struct {
	Page   int
	Cursor string
	Err    error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion failed on page %d (cursor %q): %v", e.Page, e.Cursor, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}
