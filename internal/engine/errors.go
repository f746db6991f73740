package engine

import (
	"errors"
	"fmt"
)

// ErrStopped is returned by Dispatch once the engine has been stopped.
var ErrStopped = errors.New("engine stopped")

// RuntimeError represents an error detected during engine execution.
//
// Runtime errors include:
//   - Quota exceeded: a flow dispatched more actions than the step limit
//   - Effect panic: an effect panicked and its output was discarded
//   - Seal failure: an action could not be encoded for the log
//
// RuntimeError includes structured fields for diagnostics.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// FlowToken identifies the affected flow.
	FlowToken string

	// Effect names the effect involved, if any.
	Effect string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeQuotaExceeded indicates the flow exceeded max steps.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeEffectPanic indicates an effect panicked.
	ErrCodeEffectPanic RuntimeErrorCode = "EFFECT_PANIC"

	// ErrCodeSealFailed indicates an action could not be encoded.
	ErrCodeSealFailed RuntimeErrorCode = "SEAL_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.FlowToken != "" && e.Effect != "" {
		return fmt.Sprintf("%s: %s (flow=%s, effect=%s)", e.Code, e.Message, e.FlowToken, e.Effect)
	}
	if e.FlowToken != "" {
		return fmt.Sprintf("%s: %s (flow=%s)", e.Code, e.Message, e.FlowToken)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Matches both RuntimeError with ErrCodeQuotaExceeded and StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeQuotaExceeded
	}
	var se *StepsExceededError
	return errors.As(err, &se)
}

// IsEffectPanic returns true if the error records a recovered effect panic.
func IsEffectPanic(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == ErrCodeEffectPanic
}

// NewQuotaError creates a RuntimeError for quota exceeded.
func NewQuotaError(flowToken string, steps, maxSteps int) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeQuotaExceeded,
		Message:   fmt.Sprintf("flow exceeded max steps (%d >= %d)", steps, maxSteps),
		FlowToken: flowToken,
		Details: map[string]string{
			"steps":     fmt.Sprintf("%d", steps),
			"max_steps": fmt.Sprintf("%d", maxSteps),
		},
	}
}

// NewEffectPanicError creates a RuntimeError for a recovered effect panic.
func NewEffectPanicError(flowToken, effect string, recovered any) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeEffectPanic,
		Message:   fmt.Sprintf("effect panicked: %v", recovered),
		FlowToken: flowToken,
		Effect:    effect,
	}
}
