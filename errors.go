package scmd

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
)

// Error represents a structured scmd error with host/tag context and errno mapping
type Error struct {
	Op    string        // Operation that failed (e.g., "SUBMIT", "READ_STATUS")
	Host  int           // Host number (-1 if not applicable)
	Tag   int           // Command tag (-1 if not applicable)
	Code  ErrorCode     // High-level error category
	Errno syscall.Errno // Backend errno (0 if not applicable)
	Msg   string        // Human-readable message
	Inner error         // Wrapped error
}

// Error implements the error interface
func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, "op="+e.Op)
	}
	if e.Host >= 0 {
		parts = append(parts, fmt.Sprintf("host=%d", e.Host))
	}
	if e.Tag >= 0 {
		parts = append(parts, fmt.Sprintf("tag=%d", e.Tag))
	}
	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", int(e.Errno)))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("scmd: %s (%s)", msg, strings.Join(parts, ", "))
	}
	return "scmd: " + msg
}

// Unwrap returns the wrapped error for errors.Is/As support
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is matches both ErrorCode sentinels and other structured errors by code
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case ErrorCode:
		return e.Code == t
	case *Error:
		return t != nil && e.Code == t.Code
	}
	return false
}

// ErrorCode is a high-level error category. Codes are themselves errors so
// they can be used directly as errors.Is targets.
type ErrorCode string

func (c ErrorCode) Error() string {
	return "scmd: " + string(c)
}

const (
	ErrCodeQueueFull         ErrorCode = "no free tag"
	ErrCodeInvalidParameters ErrorCode = "invalid parameters"
	ErrCodeIOError           ErrorCode = "I/O error"
	ErrCodeTimeout           ErrorCode = "timeout"
	ErrCodeAborted           ErrorCode = "command aborted"
	ErrCodeHostOffline       ErrorCode = "host offline"
	ErrCodeRecovering        ErrorCode = "host in error recovery"
	ErrCodeNotSupported      ErrorCode = "not supported"
	ErrCodeNotFound          ErrorCode = "not found"
	ErrCodeExists            ErrorCode = "already exists"
	ErrCodeNoSpace           ErrorCode = "insufficient space"
)

// NewError creates a new structured error
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{
		Op:   op,
		Host: -1,
		Tag:  -1,
		Code: code,
		Msg:  msg,
	}
}

// NewHostError creates a new host-scoped error
func NewHostError(op string, host int, code ErrorCode, msg string) *Error {
	return &Error{
		Op:   op,
		Host: host,
		Tag:  -1,
		Code: code,
		Msg:  msg,
	}
}

// NewTagError creates a new error scoped to one command tag
func NewTagError(op string, host int, tag uint16, code ErrorCode, msg string) *Error {
	return &Error{
		Op:   op,
		Host: host,
		Tag:  int(tag),
		Code: code,
		Msg:  msg,
	}
}

// WrapError wraps an existing error with scmd context
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}

	var se *Error
	if errors.As(inner, &se) {
		wrapped := *se
		wrapped.Op = op
		wrapped.Inner = inner
		return &wrapped
	}

	var errno syscall.Errno
	if errors.As(inner, &errno) {
		return &Error{
			Op:    op,
			Host:  -1,
			Tag:   -1,
			Code:  mapErrnoToCode(errno),
			Errno: errno,
			Msg:   errno.Error(),
			Inner: inner,
		}
	}

	return &Error{
		Op:    op,
		Host:  -1,
		Tag:   -1,
		Code:  ErrCodeIOError,
		Msg:   inner.Error(),
		Inner: inner,
	}
}

// mapErrnoToCode maps backend errnos to error codes
func mapErrnoToCode(errno syscall.Errno) ErrorCode {
	switch errno {
	case syscall.ENOENT, syscall.ENODEV:
		return ErrCodeNotFound
	case syscall.EBUSY, syscall.EAGAIN:
		return ErrCodeQueueFull
	case syscall.EINVAL, syscall.E2BIG:
		return ErrCodeInvalidParameters
	case syscall.ENOSYS, syscall.EOPNOTSUPP:
		return ErrCodeNotSupported
	case syscall.ENOSPC:
		return ErrCodeNoSpace
	case syscall.ETIMEDOUT:
		return ErrCodeTimeout
	case syscall.ECANCELED:
		return ErrCodeAborted
	default:
		return ErrCodeIOError
	}
}

// IsCode checks if an error matches a specific error code
func IsCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsErrno checks if an error carries a specific errno
func IsErrno(err error, errno syscall.Errno) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Errno == errno
	}
	return false
}
