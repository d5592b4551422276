package migrate

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes migration failures.
type ErrorCode string

const (
	// ErrCodeMigratorNotFound indicates no migrator exists for the current version.
	ErrCodeMigratorNotFound ErrorCode = "MIGRATOR_NOT_FOUND"

	// ErrCodeVersionNotUpdated indicates a migrator left the version unchanged.
	ErrCodeVersionNotUpdated ErrorCode = "VERSION_NOT_UPDATED"

	// ErrCodeCircular indicates the walk returned to a version it already left.
	ErrCodeCircular ErrorCode = "CIRCULAR_MIGRATION"
)

// Error is a fatal migration-chain failure. It means the configured chain is
// wrong; the state it was applied to is left untouched.
type Error struct {
	Code ErrorCode

	// Version is the store version the walk was at.
	Version string

	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCode returns true if err is or wraps an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var me *Error
	if errors.As(err, &me) {
		return me.Code == code
	}
	return false
}

func newNotFoundError(version string) *Error {
	return &Error{
		Code:    ErrCodeMigratorNotFound,
		Version: version,
		Message: fmt.Sprintf("migrator not found for store version %q", version),
	}
}

func newNotUpdatedError(version string) *Error {
	return &Error{
		Code:    ErrCodeVersionNotUpdated,
		Version: version,
		Message: fmt.Sprintf("migrator %q did not update %s", MigratorName(version), VersionKey),
	}
}

func newCircularError(version string) *Error {
	return &Error{
		Code:    ErrCodeCircular,
		Version: version,
		Message: fmt.Sprintf("circular migration detected in migrator %q", MigratorName(version)),
	}
}
