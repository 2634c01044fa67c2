package domain

import "errors"

var (
	ErrNotFound     = errors.New("not_found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidUser  = errors.New("invalid_user")
	ErrInvalidUses  = errors.New("invalid_uses")
	ErrInvalidInput = errors.New("invalid_input")
)
