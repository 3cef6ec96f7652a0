package domain

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation was rejected.
type Kind string

const (
	KindUnauthorized       Kind = "unauthorized"
	KindNotFound           Kind = "not_found"
	KindAlreadyRegistered  Kind = "already_registered"
	KindAlreadyVerified    Kind = "already_verified"
	KindAlreadyVoted       Kind = "already_voted"
	KindAlreadyLiked       Kind = "already_liked"
	KindAlreadyExecuted    Kind = "already_executed"
	KindNotRegistered      Kind = "not_registered"
	KindNotLiked           Kind = "not_liked"
	KindInvalidState       Kind = "invalid_state"
	KindDeadlineNotReached Kind = "deadline_not_reached"
	KindDeadlineFailed     Kind = "deadline_failed"
	KindInvalidArgument    Kind = "invalid_argument"
)

// Error is a typed rejection. Every rejection leaves state untouched.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrAlreadyRegistered  = &Error{Kind: KindAlreadyRegistered}
	ErrAlreadyVerified    = &Error{Kind: KindAlreadyVerified}
	ErrAlreadyVoted       = &Error{Kind: KindAlreadyVoted}
	ErrAlreadyLiked       = &Error{Kind: KindAlreadyLiked}
	ErrAlreadyExecuted    = &Error{Kind: KindAlreadyExecuted}
	ErrNotRegistered      = &Error{Kind: KindNotRegistered}
	ErrNotLiked           = &Error{Kind: KindNotLiked}
	ErrInvalidState       = &Error{Kind: KindInvalidState}
	ErrDeadlineNotReached = &Error{Kind: KindDeadlineNotReached}
	ErrDeadlineFailed     = &Error{Kind: KindDeadlineFailed}
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument}
)

// Errorf builds a typed error with a formatted message.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind of err, or "" if err is not a domain error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
