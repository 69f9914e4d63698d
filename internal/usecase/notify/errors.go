package notify

import (
	"errors"
	"fmt"

	"notice-dispatch/internal/domain/entity"
)

// ConfigurationError reports an invalid backend configuration or an invalid
// combination of call options.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return "notify: configuration: " + e.Msg
}

// ErrConflictingSendMode is returned by Send when WithQueue and WithNow are
// both given.
var ErrConflictingSendMode error = &ConfigurationError{Msg: "queue and now are mutually exclusive"}

// ErrUnsupportedPayload is returned when a queue batch was written in a
// payload version this build cannot read.
var ErrUnsupportedPayload = errors.New("notify: unsupported payload version")

// NotFoundError reports a notice type label with no registered type.
type NotFoundError struct {
	Label string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("notify: notice type %q not found", e.Label)
}

// Unwrap lets errors.Is(err, entity.ErrNotFound) match.
func (e *NotFoundError) Unwrap() error {
	return entity.ErrNotFound
}

// DeliveryError reports a transport failure for one recipient on one medium.
type DeliveryError struct {
	Medium string
	UserID int64
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("notify: deliver %s to user %d: %v", e.Medium, e.UserID, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
