package loan

import (
	"fmt"
	"strings"

	"coop-loans/internal/usecase/eligibility"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists malformed input fields. Nothing was written.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// EligibilityError carries every violated rule. Nothing was written.
type EligibilityError struct {
	Result eligibility.Result
}

func (e *EligibilityError) Error() string {
	return "loan application is not eligible: " + strings.Join(e.Result.Rules(), ", ")
}

func (e *EligibilityError) Violations() []eligibility.Violation { return e.Result.Violations }

// WorkflowInitiationError means the loan was saved as pending but no approval
// pipeline could be started. Routing can be retried for Reference.
type WorkflowInitiationError struct {
	Reference string
	Err       error
}

func (e *WorkflowInitiationError) Error() string {
	return fmt.Sprintf("loan %s saved but approval routing failed: %v", e.Reference, e.Err)
}

func (e *WorkflowInitiationError) Unwrap() error { return e.Err }
