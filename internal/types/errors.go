package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the three recoverable failure classes. Concrete error
// values carry detail; callers branch with errors.Is against these.
var (
	// ErrNotFound: an id does not resolve (panel, space, node, stream,
	// message, user).
	ErrNotFound = errors.New("not found")

	// ErrIntegrity: a mutation would violate a referential or hierarchy
	// invariant. Raised before any state change, so stores are unchanged
	// on failure.
	ErrIntegrity = errors.New("integrity violation")

	// ErrConflict: a structurally valid operation refused by a policy guard
	// (pinned-panel close, cross-space tab merge, node deletion with live
	// references).
	ErrConflict = errors.New("conflict")
)

// NotFoundError reports an id that does not resolve.
type NotFoundError struct {
	Kind string // entity kind: "panel", "space", "node", ...
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound constructs a NotFoundError.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// IntegrityError reports a mutation that would break a referential or
// hierarchy invariant.
type IntegrityError struct {
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity: %s", e.Reason)
}

func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrity }

// Integrityf constructs an IntegrityError from a format string.
func Integrityf(format string, args ...any) error {
	return &IntegrityError{Reason: fmt.Sprintf(format, args...)}
}

// ConflictError reports an operation refused by a policy guard.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s", e.Reason)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// Conflictf constructs a ConflictError from a format string.
func Conflictf(format string, args ...any) error {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}
