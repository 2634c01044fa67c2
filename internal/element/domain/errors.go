package domain

import "errors"

var (
	ErrNotFound      = errors.New("not_found")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidKind   = errors.New("invalid_kind")
	ErrInvalidTitle  = errors.New("invalid_title")
	ErrInvalidBody   = errors.New("invalid_body")
	ErrElementLocked = errors.New("element_locked")
	ErrNoneAvailable = errors.New("none_available")
)
