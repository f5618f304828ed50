package data

import (
	"math"
	"strings"
	"time"

	"link-runtime/internal/domain"
)

// Attribute names of a published runtime record.
const (
	attrPK                = "PK"
	attrSK                = "SK"
	attrLinkID            = "link_id"
	attrDestinationURL    = "destination_url"
	attrFallbackURL       = "fallback_url"
	attrActive            = "active"
	attrAppendQueryParams = "append_query_params"
	attrResolvedParams    = "resolved_query_params"
	attrAllowlist         = "dynamic_param_allowlist"
	attrRuntimeVersion    = "runtime_version"
	attrPublishedAt       = "published_at_epoch"
	attrUpdatedAt         = "updated_at_epoch"
	attrExpiresAt         = "expires_at_epoch"
	attrMaxClicks         = "max_clicks"
	attrRoutingRules      = "routing_rules"
	attrSignatureRequired = "signature_required"
	attrSignatureKeyID    = "signature_key_id"
	attrCampaignID        = "campaign_id"
	attrKeyword           = "keyword"
	attrChannel           = "channel"
)

// decodeRecord turns a loosely typed store item into a RuntimeRecord.
//
// Each attribute is type-checked on its own. A value of the wrong type
// disables the feature it drives: a non-boolean active flag leaves the link
// inactive, a string allow-list forwards nothing, a non-map parameter set adds
// nothing. The one exception is signature_required, where any present
// non-boolean value means required.
func decodeRecord(domainName, slug string, item map[string]any) *domain.RuntimeRecord {
	rec := &domain.RuntimeRecord{
		Domain:            domainName,
		Slug:              slug,
		LinkID:            stringAttr(item, attrLinkID),
		DestinationURL:    strings.TrimSpace(stringAttr(item, attrDestinationURL)),
		FallbackURL:       strings.TrimSpace(stringAttr(item, attrFallbackURL)),
		Active:            boolAttr(item, attrActive),
		AppendQueryParams: boolAttr(item, attrAppendQueryParams),
		ResolvedParams:    stringMapAttr(item, attrResolvedParams),
		SignatureKeyRef:   stringAttr(item, attrSignatureKeyID),
		CampaignID:        stringAttr(item, attrCampaignID),
		Keyword:           stringAttr(item, attrKeyword),
		Channel:           stringAttr(item, attrChannel),
	}

	switch list := item[attrAllowlist].(type) {
	case []any:
		for _, v := range list {
			if s, ok := v.(string); ok && s != "" {
				rec.DynamicParamAllowlist = append(rec.DynamicParamAllowlist, s)
			}
		}
	case []string:
		// DynamoDB string sets decode to []string.
		for _, s := range list {
			if s != "" {
				rec.DynamicParamAllowlist = append(rec.DynamicParamAllowlist, s)
			}
		}
	}

	if v, ok := item[attrSignatureRequired]; ok && v != nil {
		b, isBool := v.(bool)
		rec.SignatureRequired = !isBool || b
	}

	if n, ok := intAttr(item, attrRuntimeVersion); ok {
		rec.Version = n
	}
	if n, ok := intAttr(item, attrMaxClicks); ok {
		rec.MaxClicks = &n
	}
	rec.ExpiresAt = epochAttr(item, attrExpiresAt)
	rec.PublishedAt = epochAttr(item, attrPublishedAt)
	rec.UpdatedAt = epochAttr(item, attrUpdatedAt)

	if doc, ok := item[attrRoutingRules].(map[string]any); ok {
		rec.Routing = domain.ParseRoutingRule(doc)
	}
	return rec
}

func stringAttr(item map[string]any, key string) string {
	s, _ := item[key].(string)
	return s
}

func boolAttr(item map[string]any, key string) bool {
	b, _ := item[key].(bool)
	return b
}

func stringMapAttr(item map[string]any, key string) map[string]string {
	m, ok := item[key].(map[string]any)
	if !ok || len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func intAttr(item map[string]any, key string) (int64, bool) {
	switch n := item[key].(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

func epochAttr(item map[string]any, key string) *time.Time {
	n, ok := intAttr(item, key)
	if !ok {
		return nil
	}
	t := time.Unix(n, 0).UTC()
	return &t
}
