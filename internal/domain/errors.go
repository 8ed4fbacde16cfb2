package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidConfig marks bad chunking or retrieval parameters. These are
// rejected before any work starts.
var ErrInvalidConfig = errors.New("invalid config")

// ErrBackendUnavailable marks a vector backend that is unreachable at query
// time. It is absorbed by lexical degradation and only surfaces when no
// fallback path succeeds.
var ErrBackendUnavailable = errors.New("backend unavailable")

// FetchError reports a source document that could not be fetched, with the
// origin status code when one was received.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DimensionMismatchError reports an embedding whose dimension disagrees with
// the collection. Fatal for the ingest task, never retried.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: collection expects %d, got %d", e.Want, e.Got)
}

// InsertError reports a batch insert that failed after its one retry.
// Committed counts the chunks successfully inserted by prior batches, so
// partial corpus ingestion is reported rather than hidden.
type InsertError struct {
	Committed int
	Err       error
}

func (e *InsertError) Error() string {
	return fmt.Sprintf("batch insert failed after retry (%d chunks committed): %v", e.Committed, e.Err)
}

func (e *InsertError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a deadline expiry at a suspension point.
// A vector-leg timeout is treated like ErrBackendUnavailable by callers.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
