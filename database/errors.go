package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/kbukum/mizzle/errors"
)

// IsConnectionError checks if a database error is a connection error
// that might be resolved by retrying.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	patterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"no route to host",
		"network is unreachable",
		"connection closed",
		"connection lost",
		"driver: bad connection",
		"invalid connection",
	}
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

// IsRetryableError determines if a database error should trigger a retry.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if IsConnectionError(err) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	patterns := []string{
		"deadlock",
		"lock timeout",
		"database is locked",
		"too many connections",
		"connection pool exhausted",
	}
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

// FromDatabase converts a GORM error into the mizzle error taxonomy.
func FromDatabase(err error, table string) *apperrors.AppError {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.NotFound(table).WithCause(err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.Conflict("a " + table + " row with these details already exists").WithCause(err)
	case IsConnectionError(err):
		return apperrors.ConnectionFailed("database", err)
	case IsRetryableError(err):
		return apperrors.StorageError(err)
	}

	appErr := apperrors.StorageError(err)
	appErr.Retryable = false
	return appErr
}
