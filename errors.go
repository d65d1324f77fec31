// Package nancy holds the shared error taxonomy and tuning constants used
// by the reactor, creactors, and nclog packages.
package nancy

import (
	"errors"
	"fmt"
	"syscall"
)

// Error represents a structured nancy error with context and errno mapping.
type Error struct {
	Op    string        // Operation that failed (e.g., "add_fd", "activate")
	FD    int           // Descriptor involved (-1 if not applicable)
	Code  ErrorCode     // High-level error category
	Errno syscall.Errno // Kernel errno (0 if not applicable)
	Msg   string        // Human-readable message
	Inner error         // Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}

	if e.FD >= 0 {
		parts = append(parts, fmt.Sprintf("fd=%d", e.FD))
	}

	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", e.Errno))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("nancy: %s (%s)", msg, parts[0])
	}

	return fmt.Sprintf("nancy: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is provides errors.Is support for Error/Code comparison.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// ErrorCode represents a high-level error category.
type ErrorCode string

const (
	ErrCodeBadRegistration  ErrorCode = "bad fd registration"
	ErrCodeAlreadyArmed     ErrorCode = "fd already armed"
	ErrCodeSignalPipeTwice  ErrorCode = "signal self-pipe initialized twice"
	ErrCodeLoggerDoubleInit ErrorCode = "logger initialized twice"
	ErrCodeNotBound         ErrorCode = "listening socket not bound"
	ErrCodeInvalidParams    ErrorCode = "invalid parameters"

	ErrCodeIOError          ErrorCode = "I/O error"
	ErrCodeTimeout          ErrorCode = "timeout"
	ErrCodePermissionDenied ErrorCode = "permission denied"
	ErrCodeNotSupported     ErrorCode = "operation not supported"
	ErrCodeInsufficientMem  ErrorCode = "insufficient memory"
)

// NewError creates a new structured error not scoped to a descriptor.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{
		Op:   op,
		FD:   -1,
		Code: code,
		Msg:  msg,
	}
}

// NewErrorWithErrno creates a new structured error carrying an errno.
func NewErrorWithErrno(op string, code ErrorCode, errno syscall.Errno) *Error {
	return &Error{
		Op:    op,
		FD:    -1,
		Code:  code,
		Errno: errno,
		Msg:   errno.Error(),
	}
}

// NewFDError creates a new structured error scoped to a descriptor.
func NewFDError(op string, fd int, code ErrorCode, msg string) *Error {
	return &Error{
		Op:   op,
		FD:   fd,
		Code: code,
		Msg:  msg,
	}
}

// WrapError wraps an existing error with nancy context, mapping syscall
// errnos to error codes where possible.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}

	if ne, ok := inner.(*Error); ok {
		return &Error{
			Op:    op,
			FD:    ne.FD,
			Code:  ne.Code,
			Errno: ne.Errno,
			Msg:   ne.Msg,
			Inner: ne.Inner,
		}
	}

	if errno, ok := inner.(syscall.Errno); ok {
		code := mapErrnoToCode(errno)
		return &Error{
			Op:    op,
			FD:    -1,
			Code:  code,
			Errno: errno,
			Msg:   errno.Error(),
			Inner: inner,
		}
	}

	return &Error{
		Op:    op,
		FD:    -1,
		Code:  ErrCodeIOError,
		Msg:   inner.Error(),
		Inner: inner,
	}
}

// mapErrnoToCode maps a syscall errno to a nancy error code.
func mapErrnoToCode(errno syscall.Errno) ErrorCode {
	switch errno {
	case syscall.EINVAL, syscall.E2BIG:
		return ErrCodeInvalidParams
	case syscall.ENOSYS, syscall.EOPNOTSUPP:
		return ErrCodeNotSupported
	case syscall.EPERM, syscall.EACCES:
		return ErrCodePermissionDenied
	case syscall.ENOMEM, syscall.ENOSPC:
		return ErrCodeInsufficientMem
	case syscall.ETIMEDOUT:
		return ErrCodeTimeout
	default:
		return ErrCodeIOError
	}
}

// IsCode checks if an error matches a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var ne *Error
	if errors.As(err, &ne) {
		return ne.Code == code
	}
	return false
}

// IsErrno checks if an error matches a specific errno.
func IsErrno(err error, errno syscall.Errno) bool {
	var ne *Error
	if errors.As(err, &ne) {
		return ne.Errno == errno
	}
	return false
}
