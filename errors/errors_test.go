package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestAppError_New_Retryable(t *testing.T) {
	tests := []struct {
		code      ErrorCode
		retryable bool
	}{
		{ErrCodeTimeout, true},
		{ErrCodeConnectionFailed, true},
		{ErrCodeStorage, true},
		{ErrCodeNotFound, false},
		{ErrCodeInternal, false},
		{ErrCodeValidationFailed, false},
	}
	for _, tc := range tests {
		t.Run(string(tc.code), func(t *testing.T) {
			err := New(tc.code, "msg")
			if err.Retryable != tc.retryable {
				t.Errorf("expected retryable=%v for %s", tc.retryable, tc.code)
			}
		})
	}
}

func TestAppError_ErrorString(t *testing.T) {
	err := New(ErrCodeNotFound, "missing")
	if err.Error() != "NOT_FOUND: missing" {
		t.Errorf("unexpected error string %q", err.Error())
	}

	cause := fmt.Errorf("socket closed")
	wrapped := StorageError(cause)
	if !strings.Contains(wrapped.Error(), "socket closed") {
		t.Errorf("expected cause in message, got %q", wrapped.Error())
	}
	if !stderrors.Is(wrapped, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
}

func TestErrInvalidChainUse(t *testing.T) {
	wrapped := fmt.Errorf("users.create: %w", ErrInvalidChainUse)
	if !stderrors.Is(wrapped, ErrInvalidChainUse) {
		t.Fatal("expected wrapped error to match ErrInvalidChainUse")
	}
	if !strings.Contains(ErrInvalidChainUse.Error(), "next() called multiple times") {
		t.Errorf("unexpected message %q", ErrInvalidChainUse.Error())
	}
}

func TestNotFound_Details(t *testing.T) {
	err := NotFound("users")
	if err.Details["collection"] != "users" {
		t.Errorf("expected collection=users, got %v", err.Details["collection"])
	}
	if err.Retryable {
		t.Error("NotFound should not be retryable")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(fmt.Errorf("wrap: %w", Timeout("findMany"))) {
		t.Error("expected wrapped timeout to be retryable")
	}
	if IsRetryable(stderrors.New("plain")) {
		t.Error("plain errors are not retryable")
	}
	if IsRetryable(Conflict("version mismatch")) {
		t.Error("conflict is not retryable")
	}
}

func TestAsAppError(t *testing.T) {
	appErr, ok := AsAppError(fmt.Errorf("ctx: %w", UnsupportedOperation("aggregate")))
	if !ok {
		t.Fatal("expected AppError")
	}
	if appErr.Code != ErrCodeUnsupportedOperation {
		t.Errorf("expected UNSUPPORTED_OPERATION, got %s", appErr.Code)
	}
	if _, ok := AsAppError(stderrors.New("plain")); ok {
		t.Error("expected plain error not to convert")
	}
}

func TestValidationError(t *testing.T) {
	t.Run("default message", func(t *testing.T) {
		err := NewValidationError(nil)
		if len(err.Errors) != 1 || err.Errors[0] != DefaultValidationMessage {
			t.Errorf("expected default message, got %v", err.Errors)
		}
	})

	t.Run("keeps validator errors", func(t *testing.T) {
		err := NewValidationError([]string{"name: is required", "age: must be positive"})
		if len(err.Errors) != 2 {
			t.Fatalf("expected 2 errors, got %v", err.Errors)
		}
		if !strings.Contains(err.Error(), "name: is required; age: must be positive") {
			t.Errorf("unexpected message %q", err.Error())
		}
	})

	t.Run("as validation error", func(t *testing.T) {
		wrapped := fmt.Errorf("users.create: %w", NewValidationError([]string{"bad"}))
		vErr, ok := AsValidationError(wrapped)
		if !ok {
			t.Fatal("expected ValidationError")
		}
		if vErr.Errors[0] != "bad" {
			t.Errorf("unexpected errors %v", vErr.Errors)
		}
	})

	t.Run("app error conversion", func(t *testing.T) {
		appErr := NewValidationError([]string{"x"}).AppError()
		if appErr.Code != ErrCodeValidationFailed {
			t.Errorf("expected VALIDATION_FAILED, got %s", appErr.Code)
		}
		if appErr.Retryable {
			t.Error("validation failures are not retryable")
		}
	})
}
