package dltrouter

import (
	"errors"
	"fmt"

	"github.com/ehrlich-b/dlt-router/internal/config"
)

// Error is a structured daemon error with enough context to log or compare
// against, mirroring the teacher's own *Error shape but keyed on this
// daemon's error classes instead of ublk's device/queue/errno ones.
type Error struct {
	Op    string    // operation that failed, e.g. "dcp.Listen", "config.Load"
	Code  ErrorCode // high-level error category
	Msg   string    // human-readable message
	Inner error      // wrapped error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		return fmt.Sprintf("dltrouter: %s: %s (op=%s)", e.Code, msg, e.Op)
	}
	return fmt.Sprintf("dltrouter: %s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error { return e.Inner }

// Is lets errors.Is compare an *Error against either a bare ErrorCode or
// another *Error by Code, the same two-shape comparison the teacher's
// Error.Is supports for its legacy UblkError type.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if code, ok := target.(ErrorCode); ok {
		return e.Code == code
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// ErrorCode is the high-level error category a daemon operation failed
// with (spec.md §7's error classes, carried through SPEC_FULL.md §7).
type ErrorCode string

func (c ErrorCode) Error() string { return string(c) }

const (
	// ErrCodeWireProtocol covers malformed DLT or DCP wire bytes that
	// failed to parse; these are logged and the offending record is
	// dropped, never fatal.
	ErrCodeWireProtocol ErrorCode = "wire protocol error"
	// ErrCodeQueueFull is a WFPQ Acquire failure because every writer slot
	// was already occupied or the LCB had no room left this cycle.
	ErrCodeQueueFull ErrorCode = "queue full"
	// ErrCodeQueueInvalidSize is a WFPQ Acquire request larger than
	// constants.MaxAcquireLength once framed.
	ErrCodeQueueInvalidSize ErrorCode = "queue invalid size"
	// ErrCodeSocket covers AF_UNIX or UDP socket setup/IO failures.
	ErrCodeSocket ErrorCode = "socket error"
	// ErrCodeHandshake is an acquisition handshake that did not advance
	// switch_count by exactly one generation (shm.ErrHandshakeMismatch).
	ErrCodeHandshake ErrorCode = "handshake error"
	// ErrCodeConfigNoFile, ErrCodeConfigParse, and ErrCodeConfigNoChannels
	// are the three fatal config-load classes New returns when the static
	// configuration cannot be used.
	ErrCodeConfigNoFile     ErrorCode = "config file not found"
	ErrCodeConfigParse      ErrorCode = "config parse error"
	ErrCodeConfigNoChannels ErrorCode = "config has no channels"
	// ErrCodeDCPSession covers a DCP connection-level failure (a session
	// factory returning nil, a write failing mid-response); logged, the
	// connection is torn down, the daemon continues.
	ErrCodeDCPSession ErrorCode = "dcp session error"
)

// NewError builds a structured Error with no wrapped cause.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// WrapError wraps inner under op and code. Returns nil if inner is nil, so
// callers can write `return WrapError(op, code, err)` unconditionally.
func WrapError(op string, code ErrorCode, inner error) *Error {
	if inner == nil {
		return nil
	}
	return &Error{Op: op, Code: code, Msg: inner.Error(), Inner: inner}
}

// WrapConfigError maps one of internal/config's three sentinel errors onto
// the matching Config* code via errors.Is, since internal/config
// deliberately has no dependency on this package to avoid an import cycle
// (see internal/config/load.go's comment on its sentinel errors).
func WrapConfigError(op string, err error) *Error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, config.ErrNoFile):
		return WrapError(op, ErrCodeConfigNoFile, err)
	case errors.Is(err, config.ErrNoChannels):
		return WrapError(op, ErrCodeConfigNoChannels, err)
	case errors.Is(err, config.ErrParse):
		return WrapError(op, ErrCodeConfigParse, err)
	default:
		return WrapError(op, ErrCodeConfigParse, err)
	}
}

// IsCode reports whether err is an *Error (at any wrap depth) with code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
