package validation

// ValidationError is a client-caused input failure. Message is safe to show
// to the caller verbatim.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
