package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrAuthorization = errors.New("not authorized")
	ErrUnbalanced    = errors.New("unbalanced transaction")
	ErrProtected     = errors.New("protected resource")

	ErrAccountNotFound = fmt.Errorf("account %w", ErrNotFound)
	ErrDuplicateName   = fmt.Errorf("%w: account with this name already exists", ErrValidation)
	ErrAlreadyReversed = fmt.Errorf("%w: transaction already reversed", ErrValidation)
)

// Kind names an error category in structured failure results.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindAuthorization Kind = "authorization"
	KindUnbalanced    Kind = "unbalanced"
	KindProtected     Kind = "protected"
	KindInternal      Kind = "internal"
)

// KindOf classifies err. Storage and other unexpected failures are internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnbalanced):
		return KindUnbalanced
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAuthorization):
		return KindAuthorization
	case errors.Is(err, ErrProtected):
		return KindProtected
	default:
		return KindInternal
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
