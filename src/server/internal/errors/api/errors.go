package api

import (
	"github.com/cockroachdb/errors"
)

type ErrorCode string

const (
	DefaultErrorCode = ErrorCode("default_error")
)

// Error pairs an internal error chain with the code and message that
// get surfaced to the API client.
type Error struct {
	ErrorCode   ErrorCode
	UserMessage string
	err         error
}

var _ error = &Error{}

// CommitError decides the user facing code and message for an internal
// error. Commit once at the layer that knows the context best, wrap
// afterwards.
func CommitError(err error, errorCode ErrorCode, userMessage string) *Error {
	return &Error{
		ErrorCode:   errorCode,
		UserMessage: userMessage,
		err:         err,
	}
}

// WrapError adds context to an already committed error without
// changing its code or user message.
func WrapError(apiError *Error, msg string) *Error {
	return &Error{
		ErrorCode:   apiError.ErrorCode,
		UserMessage: apiError.UserMessage,
		err:         errors.Wrap(apiError.err, msg),
	}
}

func (e *Error) Error() string {
	if e.err == nil {
		return ""
	}

	return e.err.Error()
}
