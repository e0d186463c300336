package mtlink

import (
	"errors"
	"fmt"

	"github.com/behrlich/mtlink/internal/block"
)

// Error is a structured link error carrying the operation, the block
// name it concerns (if any), and a LinkErrorCode category.
type Error struct {
	Op        string        // operation that failed, e.g. "Grab", "Call"
	BlockName string        // block name involved, empty if not applicable
	Code      LinkErrorCode // high-level error category
	Msg       string        // human-readable detail
	Inner     error         // wrapped error, if any
}

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.BlockName != "" {
		parts = append(parts, fmt.Sprintf("block=%s", e.BlockName))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("mtlink: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("mtlink: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is reports whether target is an *Error with a matching Code, so
// callers can do errors.Is(err, &Error{Code: ErrCodeNotFound}).
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// LinkErrorCode categorizes an Error for programmatic handling.
type LinkErrorCode string

const (
	ErrCodeNotFound        LinkErrorCode = "not-found"
	ErrCodeAllocFailed     LinkErrorCode = "alloc-failed"
	ErrCodeLockTimeout     LinkErrorCode = "lock-timeout"
	ErrCodeNotAnArray      LinkErrorCode = "not-an-array"
	ErrCodeIndexOutOfRange LinkErrorCode = "index-out-of-range"
	ErrCodeMisuse          LinkErrorCode = "misuse"
	ErrCodeNameExists      LinkErrorCode = "name-exists"
)

// NewError creates a structured Error.
func NewError(op string, code LinkErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewBlockError creates a structured Error naming the block involved.
func NewBlockError(op, blockName string, code LinkErrorCode, msg string) *Error {
	return &Error{Op: op, BlockName: blockName, Code: code, Msg: msg}
}

// WrapError wraps inner with mtlink context, preserving its code if
// inner is already a structured Error and mapping the block registry's
// sentinel errors onto their codes; any other error is classed as misuse.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if ie, ok := inner.(*Error); ok {
		return &Error{Op: op, BlockName: ie.BlockName, Code: ie.Code, Msg: ie.Msg, Inner: ie.Inner}
	}
	code := ErrCodeMisuse
	switch inner {
	case block.ErrNotFound:
		code = ErrCodeNotFound
	case block.ErrTimedOut:
		code = ErrCodeLockTimeout
	case block.ErrNotAnArray:
		code = ErrCodeNotAnArray
	case block.ErrIndexOutOfRange:
		code = ErrCodeIndexOutOfRange
	case block.ErrAllocFailed:
		code = ErrCodeAllocFailed
	}
	return &Error{Op: op, Code: code, Msg: inner.Error(), Inner: inner}
}

// wrapErr is WrapError for call sites assigning straight into an error
// return value: WrapError's nil *Error, boxed into an error interface
// directly, would compare non-nil, so this returns a true nil instead.
func wrapErr(op string, inner error) error {
	if inner == nil {
		return nil
	}
	return WrapError(op, inner)
}

// IsCode reports whether err is a structured Error with the given code.
func IsCode(err error, code LinkErrorCode) bool {
	var le *Error
	if errors.As(err, &le) {
		return le.Code == code
	}
	return false
}
