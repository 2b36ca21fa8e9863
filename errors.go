package pelican

import (
	"fmt"
	"strings"
)

// ErrorCode represents specific error conditions in the controller
type ErrorCode int

const (
	// No error occurred
	ErrCodeNone ErrorCode = iota
	// Proposed transition is not an edge of the phase graph
	ErrCodeTransitionNotAllowed
	// Proposed transition was refused by a safety check
	ErrCodeTransitionBlocked
	// Asserted or commanded outputs violate an invariant
	ErrCodeInvariantViolated
	// Phase value is not one of the known phases
	ErrCodeUnknownPhase
	// Controller is not in started state
	ErrCodeMachineNotStarted
	// Controller is already started
	ErrCodeAlreadyStarted
	// Controller configuration is invalid
	ErrCodeInvalidConfiguration
)

// PhaseError represents an unrecognized phase value
type PhaseError struct {
	Phase   Phase
	Message string
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("phase error [%s]: %s", e.Phase, e.Message)
}

// NewPhaseError creates a new phase error
func NewPhaseError(phase Phase, message string) *PhaseError {
	return &PhaseError{
		Phase:   phase,
		Message: message,
	}
}

// TransitionError represents a refused transition
type TransitionError struct {
	Code      ErrorCode
	From      Phase
	To        Phase
	Violation ViolationKind
	Reason    string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition error [%s->%s]: %s", e.From, e.To, e.Reason)
}

// Unwrap exposes the safety violation behind a blocked transition
func (e *TransitionError) Unwrap() error {
	if e.Code != ErrCodeTransitionBlocked {
		return nil
	}
	return NewViolationError(e.Violation, e.Reason)
}

// NewTransitionNotAllowedError creates an error for a transition outside the phase graph
func NewTransitionNotAllowedError(from, to Phase) *TransitionError {
	return &TransitionError{
		Code:   ErrCodeTransitionNotAllowed,
		From:   from,
		To:     to,
		Reason: "transition not allowed",
	}
}

// NewTransitionBlockedError creates an error for a transition refused by a safety check
func NewTransitionBlockedError(from, to Phase, kind ViolationKind, reason string) *TransitionError {
	return &TransitionError{
		Code:      ErrCodeTransitionBlocked,
		From:      from,
		To:        to,
		Violation: kind,
		Reason:    reason,
	}
}

// ViolationError reports a failed invariant
type ViolationError struct {
	Kind    ViolationKind
	Message string
}

func (e *ViolationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("safety violation: %s", e.Kind)
	}
	return fmt.Sprintf("safety violation: %s: %s", e.Kind, e.Message)
}

// Is matches another ViolationError of the same kind
func (e *ViolationError) Is(target error) bool {
	t, ok := target.(*ViolationError)
	return ok && t.Kind == e.Kind
}

// NewViolationError creates a new violation error
func NewViolationError(kind ViolationKind, message string) *ViolationError {
	return &ViolationError{
		Kind:    kind,
		Message: message,
	}
}

// ConfigurationError represents controller configuration issues
type ConfigurationError struct {
	Component string
	Issues    []string
}

func (e *ConfigurationError) Error() string {
	switch len(e.Issues) {
	case 0:
		return fmt.Sprintf("configuration error in %s", e.Component)
	case 1:
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Issues[0])
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration error in %s: %d issues:", e.Component, len(e.Issues)))
	for i, issue := range e.Issues {
		sb.WriteString(fmt.Sprintf("\n  %d. %s", i+1, issue))
	}
	return sb.String()
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(component string, issues ...string) *ConfigurationError {
	return &ConfigurationError{
		Component: component,
		Issues:    issues,
	}
}

// issueCollector gathers configuration problems before reporting them together
type issueCollector struct {
	component string
	issues    []string
}

func newIssueCollector(component string) *issueCollector {
	return &issueCollector{component: component}
}

func (c *issueCollector) addf(format string, args ...any) {
	c.issues = append(c.issues, fmt.Sprintf(format, args...))
}

func (c *issueCollector) err() error {
	if len(c.issues) == 0 {
		return nil
	}
	return NewConfigurationError(c.component, c.issues...)
}

// MachineError represents controller lifecycle errors
type MachineError struct {
	Code      ErrorCode
	Operation string
	Message   string
}

func (e *MachineError) Error() string {
	return fmt.Sprintf("controller error during %s: %s", e.Operation, e.Message)
}

// NewMachineNotStartedError creates a new controller not started error
func NewMachineNotStartedError(operation string) *MachineError {
	return &MachineError{
		Code:      ErrCodeMachineNotStarted,
		Operation: operation,
		Message:   "controller is not started",
	}
}

// NewAlreadyStartedError creates a new controller already started error
func NewAlreadyStartedError(operation string) *MachineError {
	return &MachineError{
		Code:      ErrCodeAlreadyStarted,
		Operation: operation,
		Message:   "controller is already started",
	}
}

// IsPhaseError checks if an error is a PhaseError
func IsPhaseError(err error) bool {
	_, ok := err.(*PhaseError)
	return ok
}

// IsTransitionError checks if an error is a TransitionError
func IsTransitionError(err error) bool {
	_, ok := err.(*TransitionError)
	return ok
}

// IsViolationError checks if an error is a ViolationError
func IsViolationError(err error) bool {
	_, ok := err.(*ViolationError)
	return ok
}

// IsConfigurationError checks if an error is a ConfigurationError
func IsConfigurationError(err error) bool {
	_, ok := err.(*ConfigurationError)
	return ok
}

// IsMachineError checks if an error is a MachineError
func IsMachineError(err error) bool {
	_, ok := err.(*MachineError)
	return ok
}

// GetErrorCode returns the error code for known error types
func GetErrorCode(err error) ErrorCode {
	switch e := err.(type) {
	case *TransitionError:
		return e.Code
	case *MachineError:
		return e.Code
	case *ViolationError:
		return ErrCodeInvariantViolated
	case *PhaseError:
		return ErrCodeUnknownPhase
	case *ConfigurationError:
		return ErrCodeInvalidConfiguration
	default:
		return ErrCodeNone
	}
}
