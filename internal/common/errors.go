// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")

	// Resolution errors. ErrNoData means a source could not produce real
	// product data; the pipeline contains it at the identifier level.
	ErrNoData      = errors.New("no data from source")
	ErrInvalidASIN = errors.New("invalid ASIN")
	ErrPageBlocked = errors.New("page blocked by anti-automation check")

	// Catalog errors.
	ErrCatalogIO = errors.New("catalog read/write failed")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}
