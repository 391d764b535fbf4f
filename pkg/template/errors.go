package template

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching.
var (
	// ErrInvalidVariableExpression is matched by every InvalidVariableExpressionError.
	ErrInvalidVariableExpression = errors.New("invalid variable expression")

	// ErrMissingRequiredVariable is matched by every MissingRequiredVariableError.
	ErrMissingRequiredVariable = errors.New("missing required variable")
)

// InvalidVariableExpressionError reports malformed variable syntax.
// It is raised while compiling a template or parsing a declaration and
// marks the offending template as unusable.
type InvalidVariableExpressionError struct {
	// Raw is the offending text as written in the template
	Raw string

	// Reason describes what is wrong with the text
	Reason string
}

// Error implements the error interface.
func (e *InvalidVariableExpressionError) Error() string {
	return fmt.Sprintf("invalid variable expression %q: %s", e.Raw, e.Reason)
}

// Is reports whether target is ErrInvalidVariableExpression.
func (e *InvalidVariableExpressionError) Is(target error) bool {
	return target == ErrInvalidVariableExpression
}

// MissingRequiredVariableError reports a required variable that resolved to
// null during a build. The template stays usable for later builds.
type MissingRequiredVariableError struct {
	// Name is the variable name without its required marker
	Name string
}

// Error implements the error interface.
func (e *MissingRequiredVariableError) Error() string {
	return fmt.Sprintf("required variable %q has no value", e.Name)
}

// Is reports whether target is ErrMissingRequiredVariable.
func (e *MissingRequiredVariableError) Is(target error) bool {
	return target == ErrMissingRequiredVariable
}
