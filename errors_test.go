package scmd

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestStructuredError(t *testing.T) {
	err := NewTagError("SUBMIT", 2, 17, ErrCodeInvalidParameters, "cdb too long")

	if err.Op != "SUBMIT" {
		t.Errorf("Expected Op=SUBMIT, got %s", err.Op)
	}
	if err.Code != ErrCodeInvalidParameters {
		t.Errorf("Expected Code=ErrCodeInvalidParameters, got %s", err.Code)
	}

	expected := "scmd: cdb too long (op=SUBMIT, host=2, tag=17)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestErrorWithoutContext(t *testing.T) {
	err := &Error{Host: -1, Tag: -1, Code: ErrCodeNotFound}
	if got := err.Error(); got != "scmd: not found" {
		t.Errorf("Expected bare code message, got %q", got)
	}
}

func TestWrapError(t *testing.T) {
	err := WrapError("READ_STATUS", syscall.ENOENT)

	if err.Code != ErrCodeNotFound {
		t.Errorf("Expected Code=ErrCodeNotFound, got %s", err.Code)
	}
	if err.Errno != syscall.ENOENT {
		t.Errorf("Expected Errno=ENOENT, got %v", err.Errno)
	}
	if !errors.Is(err, syscall.ENOENT) {
		t.Error("Expected wrapped error to satisfy errors.Is for ENOENT")
	}
	if WrapError("NOOP", nil) != nil {
		t.Error("WrapError(nil) should return nil")
	}
}

func TestWrapStructuredError(t *testing.T) {
	inner := NewHostError("SUBMIT", 0, ErrCodeQueueFull, "all tags busy")
	wrapped := WrapError("SUBMIT_BATCH", fmt.Errorf("batch: %w", inner))

	if wrapped.Op != "SUBMIT_BATCH" {
		t.Errorf("Expected Op=SUBMIT_BATCH, got %s", wrapped.Op)
	}
	if wrapped.Host != 0 {
		t.Errorf("Expected host context to survive wrapping, got %d", wrapped.Host)
	}
	if !errors.Is(wrapped, ErrCodeQueueFull) {
		t.Error("Wrapped error should still match its code")
	}
}

func TestCodeSentinels(t *testing.T) {
	structuredErr := &Error{Host: -1, Tag: -1, Code: ErrCodeRecovering}

	if !errors.Is(structuredErr, ErrCodeRecovering) {
		t.Error("Structured error should match code via errors.Is")
	}
	if errors.Is(structuredErr, ErrCodeTimeout) {
		t.Error("Structured error should not match a different code")
	}
	if ErrCodeRecovering.Error() != "scmd: host in error recovery" {
		t.Errorf("Unexpected sentinel message %q", ErrCodeRecovering.Error())
	}

	wrappedErr := WrapError("TEST_OP", syscall.ETIMEDOUT)
	if !errors.Is(wrappedErr, ErrCodeTimeout) {
		t.Error("Wrapped ETIMEDOUT should match ErrCodeTimeout")
	}
}

func TestIsCode(t *testing.T) {
	err := NewError("TEST", ErrCodeTimeout, "command timed out")

	if !IsCode(err, ErrCodeTimeout) {
		t.Error("IsCode should return true for matching code")
	}
	if IsCode(err, ErrCodeIOError) {
		t.Error("IsCode should return false for non-matching code")
	}
	if IsCode(nil, ErrCodeTimeout) {
		t.Error("IsCode should return false for nil error")
	}
}

func TestIsErrno(t *testing.T) {
	err := WrapError("TEST", syscall.EIO)

	if !IsErrno(err, syscall.EIO) {
		t.Error("IsErrno should return true for matching errno")
	}
	if IsErrno(err, syscall.EPERM) {
		t.Error("IsErrno should return false for non-matching errno")
	}
	if IsErrno(nil, syscall.EIO) {
		t.Error("IsErrno should return false for nil error")
	}
}

func TestErrnoMapping(t *testing.T) {
	testCases := []struct {
		errno    syscall.Errno
		expected ErrorCode
	}{
		{syscall.ENOENT, ErrCodeNotFound},
		{syscall.EBUSY, ErrCodeQueueFull},
		{syscall.EINVAL, ErrCodeInvalidParameters},
		{syscall.ENOSPC, ErrCodeNoSpace},
		{syscall.ETIMEDOUT, ErrCodeTimeout},
		{syscall.ENOSYS, ErrCodeNotSupported},
		{syscall.ECANCELED, ErrCodeAborted},
		{syscall.EIO, ErrCodeIOError},
	}

	for _, tc := range testCases {
		code := mapErrnoToCode(tc.errno)
		if code != tc.expected {
			t.Errorf("mapErrnoToCode(%v) = %s, want %s", tc.errno, code, tc.expected)
		}
	}
}
