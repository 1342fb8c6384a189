package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidPrompt  = errors.New("invalid prompt")
	ErrAlreadyClaimed = errors.New("job already claimed")
)
