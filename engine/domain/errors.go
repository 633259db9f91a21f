package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the engine's failure taxonomy.
var (
	// ErrNotFound: a section/story identifier did not match exactly one entity.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument: the caller omitted or malformed a required parameter.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUpstreamTransient: connectivity/timeout failure from the graph store;
	// retried internally before propagating.
	ErrUpstreamTransient = errors.New("upstream transient failure")
	// ErrUpstreamFatal: query syntax or permission failure; never retried.
	ErrUpstreamFatal = errors.New("upstream fatal failure")
)

// ResolutionError reports a failed section/story resolution. Matches carries
// the number of candidate rows: 0 means nothing matched, >1 means the
// identifier was ambiguous (duplicate titles across schema generations).
type ResolutionError struct {
	Identifier string
	Matches    int
}

func (e *ResolutionError) Error() string {
	if e.Matches > 1 {
		return fmt.Sprintf("resolve %q: %d candidate sections match", e.Identifier, e.Matches)
	}
	return fmt.Sprintf("resolve %q: no matching section", e.Identifier)
}

func (e *ResolutionError) Unwrap() error { return ErrNotFound }

// Ambiguous reports whether resolution failed because more than one entity
// matched a non-key strategy.
func (e *ResolutionError) Ambiguous() bool { return e.Matches > 1 }

// ArgumentError wraps ErrInvalidArgument with the offending field.
type ArgumentError struct {
	Field  string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument: %s: %s", e.Field, e.Reason)
}

func (e *ArgumentError) Unwrap() error { return ErrInvalidArgument }

// NewArgumentError creates an ArgumentError.
func NewArgumentError(field, reason string) *ArgumentError {
	return &ArgumentError{Field: field, Reason: reason}
}
