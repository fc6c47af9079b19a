package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRunNotFound        = errors.New("run not found")
	ErrMeetingNotFound    = errors.New("meeting not found")
	ErrSecretNotFound     = errors.New("secret not found")
	ErrInvalidResumeToken = errors.New("invalid resume token")
	ErrRunFinished        = errors.New("run already finished")
	ErrInvalidTransition  = errors.New("invalid run status transition")
	ErrRunBusy            = errors.New("run already in progress")
)

// ValidationError reports a payload that does not match its schema.
type ValidationError struct {
	Subject string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.Subject == "" {
		return e.Reason
	}

	return fmt.Sprintf("%s: %s", e.Subject, e.Reason)
}

func invalid(subject, format string, args ...any) error {
	return &ValidationError{Subject: subject, Reason: fmt.Sprintf(format, args...)}
}

func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
