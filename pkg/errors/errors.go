package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the failure type handed to handlers. Code is the stable machine
// identifier clients switch on and Status is the HTTP status it maps to.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the cause for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *Error with the same Code, so a Clone or WrapAs result still
// satisfies errors.Is against the template it came from.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New declares an error template.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches cause to a new error with the given code and status.
func Wrap(cause error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: cause}
}

// Error templates. Clone or WrapAs them when the message carries request
// specific detail.
var (
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrTooManyRequests    = New("TOO_MANY_REQUESTS", http.StatusTooManyRequests, "rate limit exceeded")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
	ErrRecordNotFound     = New("RECORD_NOT_FOUND", http.StatusNotFound, "amendment record not found")
	ErrAlreadyApproved    = New("ALREADY_APPROVED", http.StatusConflict, "amendment already approved")
	ErrInvalidTransition  = New("INVALID_TRANSITION", http.StatusUnprocessableEntity, "invalid status transition")
	ErrEmailDelivery      = New("EMAIL_DELIVERY_FAILED", http.StatusBadGateway, "email delivery failed")
	ErrBroadcastFailed    = New("BROADCAST_FAILED", http.StatusBadGateway, "broadcast failed")
	ErrNotificationAbsent = New("NOTIFICATION_NOT_FOUND", http.StatusNotFound, "notification not found")
)

// FromError finds the *Error in err's chain. Anything else is reported as
// INTERNAL_ERROR with the original kept as the cause.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone copies a template, replacing the message when one is given.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WrapAs wraps cause under the code and status of template.
func WrapAs(template *Error, cause error, message string) *Error {
	if message == "" {
		message = template.Message
	}
	return Wrap(cause, template.Code, template.Status, message)
}
