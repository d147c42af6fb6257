package core

import (
	"errors"
	"fmt"
)

// AuthError indicates the remote credentials are invalid or expired. It is
// fatal and aborts the whole run.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NewAuthError wraps err as a fatal authentication failure
func NewAuthError(err error) error {
	return &AuthError{Err: err}
}

// TransientFetchError indicates a fetch failed in a retryable way (rate
// limit, timeout, 5xx). It never surfaces past the collector.
type TransientFetchError struct {
	ID  string
	Err error
}

func (e *TransientFetchError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("transient fetch failure: %v", e.Err)
	}
	return fmt.Sprintf("transient fetch failure for %s: %v", e.ID, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// NewTransientFetchError wraps err as a retryable fetch failure
func NewTransientFetchError(id string, err error) error {
	return &TransientFetchError{ID: id, Err: err}
}

// PermanentFetchError indicates a fetch failed in a non-retryable way (gone,
// forbidden). The id is recorded and skipped; the run continues.
type PermanentFetchError struct {
	ID  string
	Err error
}

func (e *PermanentFetchError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("permanent fetch failure: %v", e.Err)
	}
	return fmt.Sprintf("permanent fetch failure for %s: %v", e.ID, e.Err)
}

func (e *PermanentFetchError) Unwrap() error { return e.Err }

// NewPermanentFetchError wraps err as a non-retryable fetch failure
func NewPermanentFetchError(id string, err error) error {
	return &PermanentFetchError{ID: id, Err: err}
}

// CacheIOError indicates the cache document could not be read or written
type CacheIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *CacheIOError) Error() string {
	return fmt.Sprintf("cache %s failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *CacheIOError) Unwrap() error { return e.Err }

// NewCacheIOError wraps err as a cache I/O failure
func NewCacheIOError(op, path string, err error) error {
	return &CacheIOError{Op: op, Path: path, Err: err}
}

// InsufficientDataError indicates an analysis stage was given too little
// input to produce a meaningful result. It is reported, never silently
// defaulted.
type InsufficientDataError struct {
	Op   string
	Need int
	Got  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s needs at least %d senders, got %d", e.Op, e.Need, e.Got)
}

// NewInsufficientDataError reports too little input for an analysis stage
func NewInsufficientDataError(op string, need, got int) error {
	return &InsufficientDataError{Op: op, Need: need, Got: got}
}

// DataIntegrityError records a violation of a dataset invariant, such as an
// opened count above the message count. Violations are logged and clamped;
// the run continues.
type DataIntegrityError struct {
	Sender string
	Field  string
	Value  int
	Limit  int
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("integrity violation for %s: %s=%d exceeds %d", e.Sender, e.Field, e.Value, e.Limit)
}

// IsAuthError reports whether err wraps an AuthError
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsTransient reports whether err wraps a TransientFetchError
func IsTransient(err error) bool {
	var transientErr *TransientFetchError
	return errors.As(err, &transientErr)
}

// IsPermanent reports whether err wraps a PermanentFetchError
func IsPermanent(err error) bool {
	var permanentErr *PermanentFetchError
	return errors.As(err, &permanentErr)
}

// IsInsufficientData reports whether err wraps an InsufficientDataError
func IsInsufficientData(err error) bool {
	var insufficientErr *InsufficientDataError
	return errors.As(err, &insufficientErr)
}
