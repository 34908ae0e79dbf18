package config

import "errors"

var (
	ErrInvalidInt         = errors.New("invalid int env")
	ErrInvalidBool        = errors.New("invalid bool env")
	ErrInvalidDuration    = errors.New("invalid duration env")
	ErrInvalidStatusCode  = errors.New("redirect status code must be 301, 302, 307 or 308")
	ErrInvalidSlugPattern = errors.New("invalid slug pattern")
	ErrInvalidDataset     = errors.New("dataset must be a plain SQL identifier")
)
