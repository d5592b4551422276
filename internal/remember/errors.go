package remember

import (
	"errors"
	"fmt"
)

// ErrDriverRequired is returned by New when no driver is given.
var ErrDriverRequired = errors.New("remember: driver required")

// PersistError reports a failed write or serialization during a persistence
// cycle.
type PersistError struct {
	// Key is the remembered key being written, or RootStateKey.
	Key string

	// Err is the underlying failure.
	Err error
}

func (e *PersistError) Error() string {
	return "remember: persist error: " + describe(e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// RehydrateError reports a failed read, deserialization or migration during
// rehydration.
type RehydrateError struct {
	// Key is the remembered key being read, RootStateKey, or empty when the
	// failure came from the migrate function.
	Key string

	Err error
}

func (e *RehydrateError) Error() string {
	return "remember: rehydrate error: " + describe(e.Err)
}

func (e *RehydrateError) Unwrap() error {
	return e.Err
}

// ThrownError carries a value recovered from a panic in a driver, serializer
// or migrate function.
type ThrownError struct {
	Value any
}

func (e *ThrownError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is itself an error.
func (e *ThrownError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// IsPersistError returns true if err is or wraps a *PersistError.
func IsPersistError(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe)
}

// IsRehydrateError returns true if err is or wraps a *RehydrateError.
func IsRehydrateError(err error) bool {
	var re *RehydrateError
	return errors.As(err, &re)
}

// describe renders "<type>: <message>" for the wrapped failure.
func describe(err error) string {
	if err == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T: %s", err, err.Error())
}

// guard runs fn and converts a panic into a *ThrownError.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ThrownError{Value: r}
		}
	}()
	return fn()
}
