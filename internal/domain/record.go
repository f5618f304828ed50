package domain

import (
	"time"
)

// Dynamic parameter names the engine computes itself.
// Every other allow-listed name is forwarded from the incoming request.
const (
	ParamClickID   = "click_id"
	ParamGeo       = "geo"
	ParamClickTS   = "click_ts"
	ParamABVariant = "ab_variant"
)

// RuntimeRecord is the read-only configuration of one short link as published
// into the shared store. The engine never writes it back.
type RuntimeRecord struct {
	Domain string
	Slug   string
	LinkID string

	DestinationURL string
	FallbackURL    string

	Active            bool
	ExpiresAt         *time.Time
	MaxClicks         *int64
	AppendQueryParams bool

	// ResolvedParams are fully computed upstream and applied verbatim.
	ResolvedParams map[string]string
	// DynamicParamAllowlist names the parameters the engine may add or forward.
	DynamicParamAllowlist []string

	SignatureRequired bool
	SignatureKeyRef   string

	Routing RoutingRule

	Version     int64
	PublishedAt *time.Time
	UpdatedAt   *time.Time

	CampaignID string
	Channel    string
	Keyword    string
}

// CacheKey returns the key the record is cached under.
func (r *RuntimeRecord) CacheKey() string {
	return CacheKey(r.Domain, r.Slug)
}

// CacheKey builds the cache key for a normalized domain and slug.
func CacheKey(domain, slug string) string {
	return domain + ":" + slug
}

// PartitionKey returns the store partition key for a domain.
func PartitionKey(domain string) string {
	return "DOMAIN#" + domain
}

// SortKey returns the store sort key for a slug.
func SortKey(slug string) string {
	return "SLUG#" + slug
}

// IsExpired reports whether now is at or past the record's expiry.
func (r *RuntimeRecord) IsExpired(now time.Time) bool {
	if r.ExpiresAt == nil {
		return false
	}
	return !now.Before(*r.ExpiresAt)
}

// Allows reports whether name is on the dynamic parameter allow-list.
func (r *RuntimeRecord) Allows(name string) bool {
	for _, n := range r.DynamicParamAllowlist {
		if n == name {
			return true
		}
	}
	return false
}

// ForwardedParamNames returns the allow-listed names that are copied from the
// incoming request rather than computed by the engine.
func (r *RuntimeRecord) ForwardedParamNames() []string {
	names := make([]string, 0, len(r.DynamicParamAllowlist))
	for _, n := range r.DynamicParamAllowlist {
		if IsComputedParam(n) || n == "" {
			continue
		}
		names = append(names, n)
	}
	return names
}

// IsComputedParam reports whether the engine computes the named parameter itself.
func IsComputedParam(name string) bool {
	switch name {
	case ParamClickID, ParamGeo, ParamClickTS, ParamABVariant:
		return true
	}
	return false
}
