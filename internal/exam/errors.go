package exam

import (
	"errors"
	"fmt"
)

// Kind classifies domain errors so callers can map them without string matching.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindDuplicateSection
	KindChunkTooLarge
	KindNotFound
	KindAccessDenied
	KindAlreadyApproved
	KindAlreadyLocked
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDuplicateSection:
		return "duplicate_section"
	case KindChunkTooLarge:
		return "chunk_too_large"
	case KindNotFound:
		return "not_found"
	case KindAccessDenied:
		return "access_denied"
	case KindAlreadyApproved:
		return "already_approved"
	case KindAlreadyLocked:
		return "already_locked"
	case KindConflict:
		return "conflict"
	}
	return "unknown"
}

type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Msg
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// works for every not-found error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrDuplicateSection = &Error{Kind: KindDuplicateSection}
	ErrChunkTooLarge    = &Error{Kind: KindChunkTooLarge}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrAccessDenied     = &Error{Kind: KindAccessDenied}
	ErrAlreadyApproved  = &Error{Kind: KindAlreadyApproved}
	ErrAlreadyLocked    = &Error{Kind: KindAlreadyLocked}
	ErrConflict         = &Error{Kind: KindConflict}
)

func newErr(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) error { return newErr(KindValidation, format, args...) }
func NotFoundf(format string, args ...any) error   { return newErr(KindNotFound, format, args...) }
func Deniedf(format string, args ...any) error     { return newErr(KindAccessDenied, format, args...) }
func Conflictf(format string, args ...any) error   { return newErr(KindConflict, format, args...) }

// KindOf returns the kind of a domain error, or 0 for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
