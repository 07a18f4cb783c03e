package engine

import (
	"errors"
	"fmt"
)

// EngineError represents misuse of the engine lifecycle API.
//
// The data path never fails: configuration input is clamped, deletes of
// absent ids are no-ops, and every consumer call is total over its clamped
// domain. Lifecycle misuse is the one surface that returns an error
// instead of being absorbed.
type EngineError struct {
	// Code identifies the error category.
	Code EngineErrorCode

	// Message is a human-readable description.
	Message string
}

// EngineErrorCode categorizes lifecycle errors.
type EngineErrorCode string

const (
	// ErrCodeRunActive indicates Run was called while a run loop is
	// already active on the same engine.
	ErrCodeRunActive EngineErrorCode = "RUN_ACTIVE"
)

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsRunActiveError returns true if the error is a RUN_ACTIVE lifecycle
// error. Uses errors.As to handle wrapped errors.
func IsRunActiveError(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeRunActive
	}
	return false
}

// NewRunActiveError creates the error a second concurrent Run returns.
func NewRunActiveError() *EngineError {
	return &EngineError{
		Code:    ErrCodeRunActive,
		Message: "run loop is already active",
	}
}
