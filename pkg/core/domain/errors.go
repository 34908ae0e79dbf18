package domain

import "errors"

var (
	ErrNotFound          = errors.New("link not found")
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrMissingFields     = errors.New("missing slug or password")
	ErrPreviewMode       = errors.New("preview mode")
	ErrInvalidRequest    = errors.New("invalid request")
)
