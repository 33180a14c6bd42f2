// Package apperr classifies failures so flows know whether to reprompt or abort.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the recovery class of an error.
type Kind int

const (
	// KindStore is a collaborator failure: abort the interaction, discard the draft.
	KindStore Kind = iota
	// KindValidation is malformed input: reprompt, keep state.
	KindValidation
	// KindPrecondition means the operation needs something the user has not created yet.
	KindPrecondition
	// KindNotFound means a referenced handle or identity does not exist.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPrecondition:
		return "precondition"
	case KindNotFound:
		return "not_found"
	default:
		return "store"
	}
}

// Error carries a Kind and a user-facing message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) error   { return &Error{Kind: KindValidation, Msg: msg} }
func Precondition(msg string) error { return &Error{Kind: KindPrecondition, Msg: msg} }
func NotFound(msg string) error     { return &Error{Kind: KindNotFound, Msg: msg} }

// Store wraps a collaborator failure.
func Store(op string, err error) error {
	return &Error{Kind: KindStore, Msg: op, Err: err}
}

// KindOf classifies err. Anything unclassified is treated as a store failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStore
}

// Message returns the user-facing message of a classified error, or fallback.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindStore && e.Msg != "" {
		return e.Msg
	}
	return fallback
}

func IsValidation(err error) bool { return err != nil && KindOf(err) == KindValidation }
func IsNotFound(err error) bool   { return err != nil && KindOf(err) == KindNotFound }
