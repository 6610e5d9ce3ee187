package errors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var (
	// core error kinds
	ErrValidationFailed = errors.New("validation failed")
	ErrConnectionFailed = errors.New("connection failed")
	ErrSyncItemFailed   = errors.New("sync item failed")

	// host errors
	ErrAccountNotFound = errors.New("account not found")
	ErrSyncInProgress  = errors.New("sync already in progress for account")
	ErrFolderNotFound  = errors.New("folder not found")
)

// ValidationError collects field level validation messages.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)

	var parts []string
	for _, field := range keys {
		for _, msg := range e.Fields[field] {
			parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
		}
	}
	return fmt.Sprintf("%s: %s", ErrValidationFailed.Error(), strings.Join(parts, " | "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// ConnectionError wraps any transport, auth or network failure.
type ConnectionError struct {
	Err error
}

func NewConnectionError(err error) *ConnectionError {
	return &ConnectionError{Err: err}
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return "IMAP connection failed"
	}
	return "IMAP connection failed: " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnectionFailed
}

// Cause returns the underlying transport message without the wrapper prefix.
func (e *ConnectionError) Cause() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// SyncItemError marks the failure of a single message during reconciliation.
type SyncItemError struct {
	UID uint32
	Err error
}

func (e *SyncItemError) Error() string {
	return fmt.Sprintf("%s: uid %d: %v", ErrSyncItemFailed.Error(), e.UID, e.Err)
}

func (e *SyncItemError) Unwrap() error {
	return e.Err
}

func (e *SyncItemError) Is(target error) bool {
	return target == ErrSyncItemFailed
}
