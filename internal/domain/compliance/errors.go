package compliance

import "fmt"

// ValidationError rejects malformed filter or action input before any mutation.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NotFoundError reports a volunteer id that does not resolve. In bulk
// actions it fails only the affected item.
type NotFoundError struct {
	VolunteerID int64
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("volunteer %d not found", e.VolunteerID)
}

// DispatchError wraps an email transport failure, including timeouts.
// Retrying means re-invoking the same action later.
type DispatchError struct {
	VolunteerID int64
	Err         error
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	return fmt.Sprintf("sending reminder failed: %v", e.Err)
}

// Unwrap returns the transport error.
func (e *DispatchError) Unwrap() error {
	return e.Err
}

// TemplateError reports a reminder that cannot be rendered.
type TemplateError struct {
	Placeholder string
	Reason      string
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	if e.Placeholder == "" {
		return "template error: " + e.Reason
	}
	return fmt.Sprintf("template error: {%s} %s", e.Placeholder, e.Reason)
}
