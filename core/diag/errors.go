package diag

import (
	"fmt"
	"strings"

	"github.com/ftllex/ftllex/core/canon"
)

// Error is a single resolution diagnostic. Errors are immutable after
// construction; the content hash is precomputed so that cache checksums
// can cover accumulated errors without re-encoding them.
type Error struct {
	code    Code
	message string
	hash    canon.Digest
}

// NewError constructs an immutable diagnostic record.
func NewError(code Code, message string) *Error {
	e := &Error{code: code, message: message}
	// Hash over (code, message) pins the record's identity. Encoding a
	// two-element array of primitives cannot fail.
	d, err := canon.Hash([2]any{int(code), message})
	if err != nil {
		panic(fmt.Sprintf("diag: hashing error record: %v", err))
	}
	e.hash = d
	return e
}

// Errorf constructs a diagnostic with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// Code returns the diagnostic code.
func (e *Error) Code() Code { return e.code }

// Message returns the human-readable description.
func (e *Error) Message() string { return e.message }

// ContentHash returns the precomputed BLAKE2b-128 hash of the record.
func (e *Error) ContentHash() canon.Digest { return e.hash }

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

// Weight is the number of characters the record contributes to a cache
// entry's weight accounting.
func (e *Error) Weight() int {
	return len(e.message)
}

// HasCode reports whether any error in errs carries the given code.
func HasCode(errs []*Error, code Code) bool {
	for _, e := range errs {
		if e.code == code {
			return true
		}
	}
	return false
}

// FormattingError is raised by strict-mode formatting when resolution
// produced any diagnostics. It carries the fallback string the
// non-strict path would have returned.
type FormattingError struct {
	MessageID string
	Errors    []*Error
	Fallback  string
}

func (e *FormattingError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, d := range e.Errors {
		parts[i] = d.Error()
	}
	return fmt.Sprintf("formatting %q failed: %s", e.MessageID, strings.Join(parts, "; "))
}

// CorruptionError reports a cache entry whose checksum no longer matches
// its payload.
type CorruptionError struct {
	KeyHash  canon.Digest
	Expected canon.Digest
	Actual   canon.Digest
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("cache entry %s corrupted: checksum %s, recomputed %s",
		e.KeyHash, e.Expected, e.Actual)
}

// WriteConflictError reports a write-once violation: an existing cache
// key was written with a different value.
type WriteConflictError struct {
	KeyHash canon.Digest
}

func (e *WriteConflictError) Error() string {
	return fmt.Sprintf("cache entry %s already exists with a different value", e.KeyHash)
}

// UnhashableError reports that a caller-supplied argument tree could not
// be reduced to a cache key (cycle, unsupported type, or budget blown).
type UnhashableError struct {
	Reason string
}

func (e *UnhashableError) Error() string {
	return fmt.Sprintf("arguments not hashable: %s", e.Reason)
}
