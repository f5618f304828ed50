package domain

import (
	"encoding/json"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ClickContext carries what the pipeline knows about one inbound request.
type ClickContext struct {
	Domain    string
	Slug      string
	ClientIP  string
	UserAgent string
	Referer   string
	// Country is the upper-cased ISO-3166 alpha-2 code, or empty when unknown.
	Country   string
	Query     url.Values
	RequestID string
	Now       time.Time
}

// NewClickSessionID returns a fresh per-request correlation id.
func NewClickSessionID() string {
	return uuid.NewString()
}

// BotClass is the output of bot classification.
type BotClass struct {
	IsBot     bool
	KnownGood bool
}

// ClickEvent is the flat record shipped to the analytics pipeline for an eligible click.
// Sensitive fields are hashed before they are set here.
type ClickEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`

	Domain         string `json:"domain"`
	Slug           string `json:"slug"`
	LinkID         string `json:"link_id,omitempty"`
	RuntimeVersion int64  `json:"runtime_version"`
	CampaignID     string `json:"campaign_id,omitempty"`
	Channel        string `json:"channel,omitempty"`
	Keyword        string `json:"keyword,omitempty"`

	ClickID      string `json:"click_id"`
	RequestID    string `json:"request_id,omitempty"`
	IPHash       string `json:"ip_hash,omitempty"`
	FinalURLHash string `json:"final_url_hash"`
	FinalHost    string `json:"final_host,omitempty"`

	Country       string `json:"country,omitempty"`
	UserAgent     string `json:"user_agent,omitempty"`
	Device        string `json:"device,omitempty"`
	RefererSource string `json:"referer_source,omitempty"`
	IsBot         bool   `json:"is_bot"`
	KnownGoodBot  bool   `json:"known_good_bot"`

	RoutingReason string `json:"routing_reason"`
	Variant       string `json:"variant,omitempty"`
	LatencyMS     int64  `json:"latency_ms"`
	MaxClicks     *int64 `json:"max_clicks,omitempty"`

	// PublishedAt and UpdatedAt are unix seconds copied from the record.
	PublishedAt int64 `json:"published_at_epoch,omitempty"`
	UpdatedAt   int64 `json:"updated_at_epoch,omitempty"`

	// Forwarded holds allow-listed caller parameters, each emitted as a top-level field.
	Forwarded map[string]string `json:"-"`
}

// ClickEventType is the event_type of every click event.
const ClickEventType = "link.click"

// NewEventID returns a time-ordered event id.
func NewEventID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// reservedEventFields holds every JSON name ClickEvent declares, empty or not.
var reservedEventFields = func() map[string]struct{} {
	t := reflect.TypeOf(ClickEvent{})
	names := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		names[name] = struct{}{}
	}
	return names
}()

// IsReservedEventField reports whether name is a fixed click event field.
func IsReservedEventField(name string) bool {
	_, ok := reservedEventFields[name]
	return ok
}

// MarshalJSON flattens Forwarded into the top-level object.
// Forwarded names never overwrite the fixed fields, even when those are omitted.
func (e ClickEvent) MarshalJSON() ([]byte, error) {
	type plain ClickEvent
	base, err := json.Marshal(plain(e))
	if err != nil {
		return nil, err
	}
	if len(e.Forwarded) == 0 {
		return base, nil
	}
	var fields map[string]any
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	for k, v := range e.Forwarded {
		if IsReservedEventField(k) {
			continue
		}
		fields[k] = v
	}
	return json.Marshal(fields)
}
