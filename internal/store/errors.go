package store

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the sync core. Permission and validation
// failures are resolved before any remote write is attempted.
var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrBroadcastSent    = errors.New("broadcast already sent")
)

// ConflictError reports a stale-version update. Current carries the
// authoritative record so the caller can decide whether to retry.
type ConflictError struct {
	Entity  string
	ID      string
	Current any
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q: version conflict", e.Entity, e.ID)
}

// AsConflict unwraps err into a ConflictError, if it is one.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// ValidationItem describes a single invalid field.
type ValidationItem struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError rejects malformed input before it reaches the database.
type ValidationError struct {
	Entity string
	Items  []ValidationItem
}

func (e *ValidationError) Error() string {
	if len(e.Items) == 1 {
		return fmt.Sprintf("invalid %s: %s: %s", e.Entity, e.Items[0].Path, e.Items[0].Message)
	}
	return fmt.Sprintf("invalid %s: %d validation errors", e.Entity, len(e.Items))
}

// AsValidation unwraps err into a ValidationError, if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

func invalidField(entity, path, msg string) error {
	return &ValidationError{Entity: entity, Items: []ValidationItem{{Path: path, Message: msg}}}
}

// TransportError wraps a remote call that failed for reasons other than
// a version conflict.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
