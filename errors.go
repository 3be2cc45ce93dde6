// Package taskd is the root package of the local task orchestrator: a
// long-running server accepts commands and pipelines over a named-FIFO
// message bus, schedules them under a pluggable policy, runs them as
// child processes, and answers status queries against a persistent log.
//
// The orchestration logic lives in internal/* packages; this package
// exposes the shared error, metrics, and constant types those packages
// and the cmd/ binaries build on.
package taskd

import (
	"errors"
	"fmt"
	"syscall"
)

// Kind categorizes a taskd error the way spec §7 names them. Callers
// compare against these with errors.Is, not string matching.
type Kind string

const (
	KindInvalidArgument      Kind = "invalid-argument"
	KindOutOfMemory          Kind = "out-of-memory"
	KindMessageSize          Kind = "message-size"
	KindTimedOut             Kind = "timed-out"
	KindRange                Kind = "range"
	KindIllegalByteSequence  Kind = "illegal-byte-sequence"
	KindNotFound             Kind = "not-found"
	KindAlreadyExists        Kind = "already-exists"
	KindDomain               Kind = "domain"
)

// Error is taskd's structured error type: an operation name, a category,
// an optional wrapped OS errno, a human message, and an optional inner
// cause preserved for errors.Unwrap.
type Error struct {
	Op    string        // operation that failed (e.g. "dispatch_possible", "mark_done")
	Kind  Kind          // high-level category
	Errno syscall.Errno // underlying errno, 0 if not applicable
	Msg   string        // human-readable message
	Inner error         // wrapped cause, if any
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		return fmt.Sprintf("taskd: %s (op=%s)", msg, e.Op)
	}
	return fmt.Sprintf("taskd: %s", msg)
}

// Unwrap returns the wrapped cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is lets errors.Is(err, &Error{Kind: KindTimedOut}) match on Kind alone,
// mirroring how callers actually want to compare taskd errors.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	if te.Kind == "" {
		return false
	}
	return e.Kind == te.Kind
}

// NewError creates a structured error with no wrapped cause.
func NewError(op string, kind Kind, msg string) *Error {
	return &Error{Op: op, Kind: kind, Msg: msg}
}

// NewErrnoError creates a structured error carrying an OS errno.
func NewErrnoError(op string, kind Kind, errno syscall.Errno) *Error {
	return &Error{Op: op, Kind: kind, Errno: errno, Msg: errno.Error()}
}

// WrapError attaches taskd context to an arbitrary error under the given
// Kind, recording a syscall.Errno cause in Errno. An inner *Error keeps
// its own Kind, Errno and Msg; only Op is replaced.
func WrapError(op string, kind Kind, inner error) *Error {
	if inner == nil {
		return nil
	}
	if te, ok := inner.(*Error); ok {
		return &Error{Op: op, Kind: te.Kind, Errno: te.Errno, Msg: te.Msg, Inner: te.Inner}
	}
	if errno, ok := inner.(syscall.Errno); ok {
		return &Error{Op: op, Kind: kind, Errno: errno, Msg: errno.Error(), Inner: inner}
	}
	return &Error{Op: op, Kind: kind, Msg: inner.Error(), Inner: inner}
}

// IsKind reports whether err is a *Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind == kind
	}
	return false
}

// Sentinel errors for errors.Is comparisons against a bare Kind, e.g.
//
//	if errors.Is(err, taskd.ErrTimedOut) { ... }
var (
	ErrInvalidArgument     = &Error{Kind: KindInvalidArgument}
	ErrOutOfMemory         = &Error{Kind: KindOutOfMemory}
	ErrMessageSize         = &Error{Kind: KindMessageSize}
	ErrTimedOut            = &Error{Kind: KindTimedOut}
	ErrRange               = &Error{Kind: KindRange}
	ErrIllegalByteSequence = &Error{Kind: KindIllegalByteSequence}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrAlreadyExists       = &Error{Kind: KindAlreadyExists}
	ErrDomain              = &Error{Kind: KindDomain}
)
