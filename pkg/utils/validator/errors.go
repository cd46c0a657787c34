package validator

import "strings"

// FieldError describes one failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// ValidationErrors collects field errors.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// NewValidationErrors creates an empty collection.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{Errors: make([]FieldError, 0)}
}

// AppendError adds an error.
func (e *ValidationErrors) AppendError(fe FieldError) {
	e.Errors = append(e.Errors, fe)
}

// HasErrors reports whether any error was collected.
func (e *ValidationErrors) HasErrors() bool {
	return e != nil && len(e.Errors) > 0
}

// Error implements error.
func (e *ValidationErrors) Error() string {
	if !e.HasErrors() {
		return ""
	}
	return "validation failed: " + strings.Join(e.Messages(), "; ")
}

// Messages returns the messages in order.
func (e *ValidationErrors) Messages() []string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Message)
	}
	return msgs
}

// First returns the first message, or "".
func (e *ValidationErrors) First() string {
	if !e.HasErrors() {
		return ""
	}
	return e.Errors[0].Message
}
