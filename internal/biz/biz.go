package biz

import (
	"context"

	"link-runtime/internal/domain"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewPolicyEvaluator,
	NewSignatureValidator,
	NewBotClassifier,
	NewRoutingEngine,
	NewURLBuilder,
	NewClickEventBuilder,
	NewRedirectUsecase,
)

// RecordRepo looks up runtime records.
// Implementations return domain.ErrRecordNotFound for an absent record and
// domain.ErrStoreUnavailable when the backing store could not answer.
type RecordRepo interface {
	Get(ctx context.Context, domain, slug string) (*domain.RuntimeRecord, error)
}

// SecretResolver turns a record's key reference into secret material.
type SecretResolver interface {
	Resolve(ctx context.Context, keyRef string) ([]byte, error)
}

// CountryResolver maps a client IP to an ISO country code, or "" when unknown.
type CountryResolver interface {
	ResolveCountry(ip string) string
}

// ClickSink accepts click events for asynchronous delivery.
// Submit must not block; it reports false when the event was dropped.
type ClickSink interface {
	Submit(e *domain.ClickEvent) bool
}

// DeviceDetector labels the device class of a user agent.
type DeviceDetector interface {
	DetectDevice(userAgent string) string
}

// RefererClassifier labels the traffic source of a referer.
type RefererClassifier interface {
	ClassifySource(referer string) string
}
