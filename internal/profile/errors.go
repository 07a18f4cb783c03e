package profile

import (
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Error code constants for profile loading and validation.
const (
	ErrCodeGeneric     = "E200" // Generic/unknown error
	ErrCodeNotFound    = "E201" // Path not found
	ErrCodeNoFiles     = "E202" // No CUE files found
	ErrCodeParseFailed = "E203" // CUE compile/build failed
	ErrCodeNoProfile   = "E204" // Document holds no profile struct

	// Field validation errors
	ErrCodeName          = "E210" // Missing or empty name
	ErrCodeTickInterval  = "E211" // tickInterval missing or out of range
	ErrCodeBatchSize     = "E212" // batchSize missing or out of range
	ErrCodeUpdatePercent = "E213" // updatePercent missing or out of range
	ErrCodePayloadMode   = "E214" // Unknown payloadMode
	ErrCodeDuration      = "E215" // Unparsable or non-positive duration
)

// LoadError represents an error that occurred while loading a profile.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(code string, err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error()}
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &LoadError{
			Code:    code,
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}
	return &LoadError{Code: code, Message: firstErr.Error()}
}
