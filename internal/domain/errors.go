package domain

import (
	"errors"

	"link-runtime/internal/domain/valueobject"
)

var (
	ErrRecordNotFound     = errors.New("record not found")
	ErrStoreUnavailable   = errors.New("record store unavailable")
	ErrSignatureInvalid   = errors.New("signature invalid")
	ErrSecretUnavailable  = errors.New("signing secret unavailable")
	ErrInvalidRoutingRule = errors.New("invalid routing rule")
	ErrInvalidDestination = errors.New("invalid destination url")

	// Re-export value object errors for convenience.
	ErrMalformedInput = valueobject.ErrMalformedInput
)
