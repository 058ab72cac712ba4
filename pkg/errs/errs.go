// Package errs defines the error taxonomy shared by every component of the
// job-manager event engine (spec §7).
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation failed so callers can branch on recovery
// strategy instead of matching error text.
type Kind int

const (
	// Unknown is the zero value; it should never be returned deliberately.
	Unknown Kind = iota
	// InvalidTransition means the state machine rejected the event for the
	// job's current state. Caller error; not fatal.
	InvalidTransition
	// Malformed means the event codec could not parse the context payload.
	Malformed
	// TryAgain means the job is still in NEW and the event was not "submit".
	TryAgain
	// ResourceExhausted means an allocation (e.g. an EVX id) failed.
	ResourceExhausted
	// CommitFailed means the KVS transaction was rejected. Fatal.
	CommitFailed
	// PubFailed means the pub/sub future resolved with an error. Fatal.
	PubFailed
	// Downstream means an external collaborator (scheduler/exec/etc) action
	// failed.
	Downstream
)

func (k Kind) String() string {
	switch k {
	case InvalidTransition:
		return "InvalidTransition"
	case Malformed:
		return "Malformed"
	case TryAgain:
		return "TryAgain"
	case ResourceExhausted:
		return "ResourceExhausted"
	case CommitFailed:
		return "CommitFailed"
	case PubFailed:
		return "PubFailed"
	case Downstream:
		return "Downstream"
	default:
		return "Unknown"
	}
}

// Fatal reports whether errors of this kind must stop the reactor rather
// than be returned to a caller (spec §7: "KVS and pub are the durability
// and notification contract of the whole job manager; failing silently
// would desynchronize observers from the source of truth").
func (k Kind) Fatal() bool {
	return k == CommitFailed || k == PubFailed
}

// Error is the concrete error type returned by every package in this
// module. It always carries a Kind and optionally wraps a cause.
type Error struct {
	Kind   Kind
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		if e.Reason != "" {
			return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Cause)
		}
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an *Error with no wrapped cause.
func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Wrap constructs an *Error wrapping cause with the given kind and reason.
func Wrap(kind Kind, reason string, cause error) *Error {
	return &Error{Kind: kind, Reason: reason, Cause: cause}
}

// KindOf extracts the Kind from err, returning Unknown if err is nil or is
// not one of ours.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err (or something it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
