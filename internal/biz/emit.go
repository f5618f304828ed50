package biz

import (
	"encoding/hex"
	"net/url"
	"time"

	"link-runtime/internal/conf"
	"link-runtime/internal/domain"

	"golang.org/x/crypto/blake2b"
)

// ClickEventBuilder assembles the flat click event for an eligible redirect.
// Client IP and final URL only leave the process as keyed hashes.
type ClickEventBuilder struct {
	key      []byte
	devices  DeviceDetector
	referers RefererClassifier
}

func NewClickEventBuilder(c *conf.Emitter, devices DeviceDetector, referers RefererClassifier) *ClickEventBuilder {
	key := []byte(c.HashKey)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	return &ClickEventBuilder{key: key, devices: devices, referers: referers}
}

// Hash returns the hex keyed BLAKE2b-256 digest of s, or "" for an empty input.
func (b *ClickEventBuilder) Hash(s string) string {
	if s == "" {
		return ""
	}
	h, err := blake2b.New256(b.key)
	if err != nil {
		// Only reachable with an oversized key, which the constructor prevents.
		sum := blake2b.Sum256([]byte(s))
		return hex.EncodeToString(sum[:])
	}
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}

// Build returns the click event for one redirect.
func (b *ClickEventBuilder) Build(
	rec *domain.RuntimeRecord,
	sessionID string,
	cctx *domain.ClickContext,
	finalURL string,
	route Route,
	bot domain.BotClass,
	latency time.Duration,
) *domain.ClickEvent {
	e := &domain.ClickEvent{
		EventID:        domain.NewEventID(),
		EventType:      domain.ClickEventType,
		OccurredAt:     cctx.Now.UTC(),
		Domain:         rec.Domain,
		Slug:           rec.Slug,
		LinkID:         rec.LinkID,
		RuntimeVersion: rec.Version,
		CampaignID:     rec.CampaignID,
		Channel:        rec.Channel,
		Keyword:        rec.Keyword,
		ClickID:        sessionID,
		RequestID:      cctx.RequestID,
		IPHash:         b.Hash(cctx.ClientIP),
		FinalURLHash:   b.Hash(finalURL),
		Country:        cctx.Country,
		UserAgent:      cctx.UserAgent,
		IsBot:          bot.IsBot,
		KnownGoodBot:   bot.KnownGood,
		RoutingReason:  route.Reason,
		Variant:        route.Variant,
		LatencyMS:      latency.Milliseconds(),
		MaxClicks:      rec.MaxClicks,
	}
	if rec.PublishedAt != nil {
		e.PublishedAt = rec.PublishedAt.Unix()
	}
	if rec.UpdatedAt != nil {
		e.UpdatedAt = rec.UpdatedAt.Unix()
	}
	if u, err := url.Parse(finalURL); err == nil {
		e.FinalHost = u.Hostname()
	}
	if b.devices != nil {
		e.Device = b.devices.DetectDevice(cctx.UserAgent)
	}
	if b.referers != nil {
		e.RefererSource = b.referers.ClassifySource(cctx.Referer)
	}
	if fwd := ForwardedParams(rec, cctx.Query); len(fwd) > 0 {
		e.Forwarded = fwd
	}
	return e
}
