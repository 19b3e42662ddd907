package apiclient

import (
	"errors"
	"fmt"
)

// FallbackMessage is shown when a failed request carries no usable message.
const FallbackMessage = "Error Occurred. Please Try Again"

// Error describes a failed call to a clinic service.
type Error struct {
	// Op is the request line, e.g. "GET get-doctors?page=1&limit=10".
	Op string
	// Status is the HTTP or envelope status code, zero for transport errors.
	Status int
	// Message is the service supplied message, or FallbackMessage.
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Cause)
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// UserMessage returns the message to show for err: the service message when
// err is an *Error carrying one, FallbackMessage otherwise.
func UserMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return FallbackMessage
}

// StatusCode returns the status carried by err, or zero.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
