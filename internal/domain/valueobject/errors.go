package valueobject

import "errors"

var (
	ErrMalformedInput = errors.New("malformed input")
	ErrInvalidURL     = errors.New("invalid url format")
)
