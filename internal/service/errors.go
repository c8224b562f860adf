// Package service holds the parking domain: the bay registry, the
// availability ledger, the claim manager and the read-side board.
// Every exported operation returns either a result or an *Error whose
// Kind tells the caller how to report it.
package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/parkshare/internal/repository"
)

// Kind classifies a failed operation.
type Kind string

const (
	KindUnauthenticated Kind = "Unauthenticated"
	KindNotFound        Kind = "NotFound"
	KindNotOwner        Kind = "NotOwner"
	KindNotClaimer      Kind = "NotClaimer"
	KindDuplicateOwner  Kind = "DuplicateOwner"
	KindDuplicateLabel  Kind = "DuplicateLabel"
	KindInvalidWindow   Kind = "InvalidWindow"
	KindInvalidInput    Kind = "InvalidInput"
	KindNotAvailable    Kind = "NotAvailable"
	KindAlreadyClaimed  Kind = "AlreadyClaimed"
	KindAlreadyReleased Kind = "AlreadyReleased"
	KindStoreError      Kind = "StoreError"
)

// Error is the typed failure returned by every service operation.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// holds whatever the wrapped cause is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrNotOwner        = &Error{Kind: KindNotOwner}
	ErrNotClaimer      = &Error{Kind: KindNotClaimer}
	ErrDuplicateOwner  = &Error{Kind: KindDuplicateOwner}
	ErrDuplicateLabel  = &Error{Kind: KindDuplicateLabel}
	ErrInvalidWindow   = &Error{Kind: KindInvalidWindow}
	ErrInvalidInput    = &Error{Kind: KindInvalidInput}
	ErrNotAvailable    = &Error{Kind: KindNotAvailable}
	ErrAlreadyClaimed  = &Error{Kind: KindAlreadyClaimed}
	ErrAlreadyReleased = &Error{Kind: KindAlreadyReleased}
	ErrStore           = &Error{Kind: KindStoreError}
)

// KindOf reports the kind of err.  Anything that is not an *Error is a
// store failure.  A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStoreError
}

// Retryable reports whether the caller may retry the same input.
func Retryable(err error) bool { return KindOf(err) == KindStoreError }

func fail(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// translate maps repository sentinels onto kinds.  Unknown errors are
// store failures.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	kind := KindStoreError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		kind = KindNotFound
	case errors.Is(err, repository.ErrForbidden):
		kind = KindNotOwner
	case errors.Is(err, repository.ErrNotClaimer):
		kind = KindNotClaimer
	case errors.Is(err, repository.ErrDuplicateOwner):
		kind = KindDuplicateOwner
	case errors.Is(err, repository.ErrDuplicateLabel):
		kind = KindDuplicateLabel
	case errors.Is(err, repository.ErrNotAvailable):
		kind = KindNotAvailable
	case errors.Is(err, repository.ErrAlreadyClaimed):
		kind = KindAlreadyClaimed
	case errors.Is(err, repository.ErrAlreadyReleased):
		kind = KindAlreadyReleased
	case errors.Is(err, repository.ErrInvalidWindow):
		kind = KindInvalidWindow
	}
	return &Error{Kind: kind, Err: err}
}
