// Package apperr defines the error taxonomy shared by the bed registry, the
// optimistic update controller and the allocation plan consumer.  Every
// failure that reaches a caller is an *Error carrying a Kind, so views can
// decide between a dismissible notification and an "unavailable" state
// without inspecting transport details.
package apperr

import (
    "errors"
    "fmt"
    "net/http"
)

// Kind classifies a failure.
type Kind string

const (
    // KindValidation is missing or invalid input caught before any request.
    KindValidation Kind = "validation"
    // KindDuplicate is a bed id collision on registration.
    KindDuplicate Kind = "duplicate"
    // KindNotFound is a mutation targeting an unknown bed.
    KindNotFound Kind = "not_found"
    // KindUnreachable is a network failure or timeout.
    KindUnreachable Kind = "unreachable"
    // KindServer is a 5xx answer from an external service.
    KindServer Kind = "server"
    // KindMalformed is a document that does not match the expected schema.
    KindMalformed Kind = "malformed"
)

// Error is the structured error returned across package boundaries.
// Message holds the server-provided text when one was available.
type Error struct {
    Kind    Kind
    Message string
    Field   string
    Status  int
    Err     error
}

func (e *Error) Error() string {
    msg := e.Message
    if msg == "" {
        msg = fallback(e.Kind)
    }
    if e.Field != "" {
        msg = e.Field + ": " + msg
    }
    if e.Err != nil {
        return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
    }
    return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is the text to show in a notification: the server message
// when present, a generic fallback otherwise.
func (e *Error) UserMessage() string {
    if e.Message != "" {
        if e.Field != "" {
            return e.Field + ": " + e.Message
        }
        return e.Message
    }
    return fallback(e.Kind)
}

// HTTPStatus maps the kind onto the status code used by the dashboard API.
func (e *Error) HTTPStatus() int {
    switch e.Kind {
    case KindValidation:
        return http.StatusBadRequest
    case KindDuplicate:
        return http.StatusConflict
    case KindNotFound:
        return http.StatusNotFound
    case KindUnreachable:
        return http.StatusServiceUnavailable
    default:
        return http.StatusBadGateway
    }
}

func fallback(k Kind) string {
    switch k {
    case KindValidation:
        return "invalid input"
    case KindDuplicate:
        return "bed id already exists"
    case KindNotFound:
        return "bed not found"
    case KindUnreachable:
        return "service unavailable, try again"
    case KindMalformed:
        return "unexpected response from service"
    default:
        return "something went wrong, try again"
    }
}

// Validation builds a validation error for field.
func Validation(field, msg string) *Error {
    return &Error{Kind: KindValidation, Field: field, Message: msg}
}

// Duplicate builds a duplicate-id error.
func Duplicate(msg string) *Error { return &Error{Kind: KindDuplicate, Message: msg} }

// NotFound builds a not-found error.
func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }

// Unreachable wraps a transport failure.
func Unreachable(err error) *Error { return &Error{Kind: KindUnreachable, Err: err} }

// Server builds an error for a 5xx answer.
func Server(status int, msg string) *Error {
    return &Error{Kind: KindServer, Status: status, Message: msg}
}

// Malformed wraps a schema failure.
func Malformed(msg string, err error) *Error {
    return &Error{Kind: KindMalformed, Message: msg, Err: err}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
    var e *Error
    if errors.As(err, &e) {
        return e.Kind
    }
    return ""
}

// Is reports whether err carries kind k.
func Is(err error, k Kind) bool { return err != nil && KindOf(err) == k }

// As extracts the *Error from err.
func As(err error) (*Error, bool) {
    var e *Error
    ok := errors.As(err, &e)
    return e, ok
}
