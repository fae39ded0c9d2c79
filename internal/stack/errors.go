package stack

import "fmt"

// ValidationError reports a malformed or colliding literal found while a
// descriptor is being constructed. Nothing has been sent to the provider when
// it is returned.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (ve *ValidationError) Error() string {
	if ve.Value == "" {
		return fmt.Sprintf("invalid %s: %s", ve.Field, ve.Message)
	}
	return fmt.Sprintf("invalid %s %q: %s", ve.Field, ve.Value, ve.Message)
}

func newValidationError(field, value, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}
