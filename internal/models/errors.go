package models

import (
	"errors"
	"fmt"
)

// Error kinds. Every concrete error below wraps exactly one of them.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrAuth       = errors.New("authentication error")
	ErrIO         = errors.New("io error")
)

var (
	ErrEmptyInput       = fmt.Errorf("%w: username and password must not be empty", ErrValidation)
	ErrMismatch         = fmt.Errorf("%w: passwords do not match", ErrValidation)
	ErrInvalidUsername  = fmt.Errorf("%w: invalid username", ErrValidation)
	ErrInvalidAmount    = fmt.Errorf("%w: amount must be greater than 0", ErrValidation)
	ErrEmptyDescription = fmt.Errorf("%w: description must not be empty", ErrValidation)
	ErrInvalidMonth     = fmt.Errorf("%w: month must be between 1 and 12", ErrValidation)

	ErrExpenseNotFound = fmt.Errorf("%w: expense", ErrNotFound)
	ErrNoExpenses      = fmt.Errorf("%w: no expenses recorded", ErrNotFound)

	ErrAlreadyExists      = fmt.Errorf("%w: username already registered", ErrAuth)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid username or password", ErrAuth)
)

// WrapIO marks err as an I/O failure while keeping the cause reachable.
func WrapIO(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}
