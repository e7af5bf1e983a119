package errors

import (
	"errors"
	"fmt"
)

// New returns an error with the given message.
func New(msg string) error {
	return errors.New(msg)
}

// ContextError annotates an error with the operation that caused it.
type ContextError struct {
	Context string
	Err     error
}

func (err ContextError) Error() string {
	return fmt.Sprintf("%s: %s", err.Context, err.Err)
}

func (err ContextError) Unwrap() error {
	return err.Err
}

// WithContext wraps err so that the resulting message reads
// "<context>: <err>".
func WithContext(err error, context string) error {
	return ContextError{Context: context, Err: err}
}

// FriendlyError is an error whose message is meant to be shown to the user
// directly, without any wrapping context.
type FriendlyError struct {
	Message string
}

func (err FriendlyError) Error() string {
	return err.Message
}

func (err FriendlyError) FriendlyMessage() string {
	return err.Message
}

// NewFriendlyError creates a FriendlyError with a formatted message.
func NewFriendlyError(format string, args ...interface{}) FriendlyError {
	return FriendlyError{Message: fmt.Sprintf(format, args...)}
}

type friendlyMessager interface {
	FriendlyMessage() string
}

// GetPrintableMessage returns the message that should be shown to the user
// for the given error. Errors that implement FriendlyMessage anywhere in
// their chain get their friendly message printed rather than the raw chain.
func GetPrintableMessage(err error) string {
	for curr := err; curr != nil; curr = errors.Unwrap(curr) {
		if friendly, ok := curr.(friendlyMessager); ok {
			return friendly.FriendlyMessage()
		}
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
