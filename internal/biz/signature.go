package biz

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"link-runtime/internal/conf"
	"link-runtime/internal/domain"
)

// SignatureValidator verifies the optional per-request proof a record may require.
type SignatureValidator struct {
	secrets SecretResolver
	skew    time.Duration
}

func NewSignatureValidator(c *conf.Redirect, secrets SecretResolver) *SignatureValidator {
	return &SignatureValidator{
		secrets: secrets,
		skew:    c.ClockSkew.Duration,
	}
}

// CanonicalString is the message a link signature is computed over.
func CanonicalString(domainName, slug, timestamp string) string {
	return domainName + "\n" + slug + "\n" + timestamp
}

// Sign computes the hex HMAC-SHA256 signature for a canonical string.
func Sign(secret []byte, canonical string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// Validate returns nil when the record does not require a signature or when
// signature and timestamp are present, fresh and correct.
func (v *SignatureValidator) Validate(ctx context.Context, rec *domain.RuntimeRecord, slug, signature, timestamp string, now time.Time) error {
	if !rec.SignatureRequired {
		return nil
	}
	if signature == "" || timestamp == "" {
		return fmt.Errorf("%w: missing signature or timestamp", domain.ErrSignatureInvalid)
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: malformed timestamp", domain.ErrSignatureInvalid)
	}
	age := now.Sub(time.Unix(ts, 0))
	if age < -v.skew || age > v.skew {
		return fmt.Errorf("%w: timestamp outside allowed skew", domain.ErrSignatureInvalid)
	}

	if rec.SignatureKeyRef == "" {
		return fmt.Errorf("%w: record has no key reference", domain.ErrSignatureInvalid)
	}
	secret, err := v.secrets.Resolve(ctx, rec.SignatureKeyRef)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSecretUnavailable, err)
	}

	supplied, err := hex.DecodeString(strings.ToLower(signature))
	if err != nil {
		return fmt.Errorf("%w: signature is not hex", domain.ErrSignatureInvalid)
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(CanonicalString(rec.Domain, slug, timestamp)))
	if !hmac.Equal(supplied, mac.Sum(nil)) {
		return fmt.Errorf("%w: mismatch", domain.ErrSignatureInvalid)
	}
	return nil
}
