package biz

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"link-runtime/internal/conf"
	"link-runtime/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets struct {
	secrets map[string][]byte
	calls   int
}

func (f *fakeSecrets) Resolve(_ context.Context, keyRef string) ([]byte, error) {
	f.calls++
	s, ok := f.secrets[keyRef]
	if !ok {
		return nil, errors.New("no such secret")
	}
	return s, nil
}

func newTestRedirectConf() *conf.Redirect {
	return &conf.Redirect{
		DefaultFallbackURL: "https://fallback.example.com/",
		SignatureParam:     "sig",
		TimestampParam:     "ts",
		ClockSkew:          conf.Seconds(300),
	}
}

func TestSignatureValidator_Validate(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	secret := []byte("s3cret")
	secrets := &fakeSecrets{secrets: map[string][]byte{"static:s3cret": secret}}
	v := NewSignatureValidator(newTestRedirectConf(), secrets)

	rec := &domain.RuntimeRecord{
		Domain:            "go.example.com",
		Slug:              "PROMO",
		SignatureRequired: true,
		SignatureKeyRef:   "static:s3cret",
	}
	fresh := strconv.FormatInt(now.Unix(), 10)
	stale := strconv.FormatInt(now.Add(-301*time.Second).Unix(), 10)
	future := strconv.FormatInt(now.Add(301*time.Second).Unix(), 10)
	sig := func(ts string) string { return Sign(secret, CanonicalString("go.example.com", "PROMO", ts)) }

	tests := []struct {
		name    string
		rec     *domain.RuntimeRecord
		sig, ts string
		wantErr error
	}{
		{"not required", &domain.RuntimeRecord{}, "", "", nil},
		{"valid", rec, sig(fresh), fresh, nil},
		{"valid upper-case hex", rec, strings.ToUpper(sig(fresh)), fresh, nil},
		{"edge of skew window", rec, sig(strconv.FormatInt(now.Add(-300*time.Second).Unix(), 10)),
			strconv.FormatInt(now.Add(-300*time.Second).Unix(), 10), nil},
		{"missing signature", rec, "", fresh, domain.ErrSignatureInvalid},
		{"missing timestamp", rec, sig(fresh), "", domain.ErrSignatureInvalid},
		{"malformed timestamp", rec, sig(fresh), "yesterday", domain.ErrSignatureInvalid},
		{"replayed outside skew", rec, sig(stale), stale, domain.ErrSignatureInvalid},
		{"from the future", rec, sig(future), future, domain.ErrSignatureInvalid},
		{"not hex", rec, "zz", fresh, domain.ErrSignatureInvalid},
		{"wrong secret", rec, Sign([]byte("other"), CanonicalString("go.example.com", "PROMO", fresh)), fresh, domain.ErrSignatureInvalid},
		{"signed for another slug", rec, Sign(secret, CanonicalString("go.example.com", "OTHER", fresh)), fresh, domain.ErrSignatureInvalid},
		{"no key reference", &domain.RuntimeRecord{Domain: "go.example.com", SignatureRequired: true}, sig(fresh), fresh, domain.ErrSignatureInvalid},
		{"unresolvable secret", &domain.RuntimeRecord{Domain: "go.example.com", SignatureRequired: true, SignatureKeyRef: "env:MISSING"}, sig(fresh), fresh, domain.ErrSecretUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(context.Background(), tt.rec, "PROMO", tt.sig, tt.ts, now)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSignatureValidator_NotRequiredSkipsSecretLookup(t *testing.T) {
	secrets := &fakeSecrets{}
	v := NewSignatureValidator(newTestRedirectConf(), secrets)

	err := v.Validate(context.Background(), &domain.RuntimeRecord{SignatureKeyRef: "static:x"}, "A", "", "", time.Now())

	require.NoError(t, err)
	assert.Zero(t, secrets.calls)
}
