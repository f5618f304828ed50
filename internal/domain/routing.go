package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RoutingKind tags a routing rule variant.
type RoutingKind string

const (
	RoutingNone    RoutingKind = ""
	RoutingABTest  RoutingKind = "ab_test"
	RoutingGeo     RoutingKind = "geo"
	RoutingTime    RoutingKind = "time"
	RoutingUnknown RoutingKind = "unknown"
)

// RoutingRule is a closed set of routing variants. A nil rule means no routing.
type RoutingRule interface {
	Kind() RoutingKind
}

// ABTestRule splits traffic between two destinations by a stable hash of the click session.
type ABTestRule struct {
	// SplitPercent is the share of sessions, 0..100, sent to variant A.
	SplitPercent int
	VariantAURL  string
	VariantBURL  string
}

func (ABTestRule) Kind() RoutingKind { return RoutingABTest }

// GeoRule picks a destination by the request's country.
type GeoRule struct {
	// Regions maps region names (NA, EU, ...) or ISO country codes to destinations.
	Regions    map[string]string
	DefaultURL string
}

func (GeoRule) Kind() RoutingKind { return RoutingGeo }

// TimeRule picks a destination depending on whether now falls inside business hours.
type TimeRule struct {
	Location *time.Location
	// Start and End are minutes after local midnight. End before Start wraps midnight.
	Start         int
	End           int
	Days          map[time.Weekday]bool
	InHoursURL    string
	AfterHoursURL string
}

func (TimeRule) Kind() RoutingKind { return RoutingTime }

// UnknownRule is any routing document the engine cannot interpret.
type UnknownRule struct {
	Type   string
	Reason string
}

func (UnknownRule) Kind() RoutingKind { return RoutingUnknown }

// ParseRoutingRule turns a loosely typed routing document into a RoutingRule.
// It never fails: malformed documents become UnknownRule and an empty document is nil.
func ParseRoutingRule(doc map[string]any) RoutingRule {
	if len(doc) == 0 {
		return nil
	}
	typ, _ := doc["type"].(string)
	switch RoutingKind(typ) {
	case RoutingABTest:
		return parseABTest(doc)
	case RoutingGeo:
		return parseGeo(doc)
	case RoutingTime:
		return parseTime(doc)
	}
	return UnknownRule{Type: typ, Reason: "unsupported routing type"}
}

func parseABTest(doc map[string]any) RoutingRule {
	split, ok := numberField(doc, "split_percent")
	if !ok || split < 0 || split > 100 {
		return UnknownRule{Type: string(RoutingABTest), Reason: "split_percent must be a number in 0..100"}
	}
	a, _ := doc["variant_a_url"].(string)
	b, _ := doc["variant_b_url"].(string)
	if a == "" && b == "" {
		return UnknownRule{Type: string(RoutingABTest), Reason: "no variant urls"}
	}
	return ABTestRule{SplitPercent: int(split), VariantAURL: a, VariantBURL: b}
}

func parseGeo(doc map[string]any) RoutingRule {
	def, _ := doc["default_url"].(string)
	if def == "" {
		return UnknownRule{Type: string(RoutingGeo), Reason: "default_url is required"}
	}
	rule := GeoRule{Regions: map[string]string{}, DefaultURL: def}
	if regions, ok := doc["regions"].(map[string]any); ok {
		for k, v := range regions {
			if s, ok := v.(string); ok && s != "" {
				rule.Regions[strings.ToUpper(k)] = s
			}
		}
	}
	return rule
}

func parseTime(doc map[string]any) RoutingRule {
	tz, _ := doc["timezone"].(string)
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return UnknownRule{Type: string(RoutingTime), Reason: "unknown timezone " + tz}
	}
	startStr, _ := doc["start"].(string)
	endStr, _ := doc["end"].(string)
	start, err := parseClock(startStr)
	if err != nil {
		return UnknownRule{Type: string(RoutingTime), Reason: err.Error()}
	}
	end, err := parseClock(endStr)
	if err != nil {
		return UnknownRule{Type: string(RoutingTime), Reason: err.Error()}
	}
	in, _ := doc["in_hours_url"].(string)
	after, _ := doc["after_hours_url"].(string)
	if in == "" && after == "" {
		return UnknownRule{Type: string(RoutingTime), Reason: "no destination urls"}
	}

	rule := TimeRule{Location: loc, Start: start, End: end, InHoursURL: in, AfterHoursURL: after}
	if raw, present := doc["days"]; present && raw != nil {
		days, ok := raw.([]any)
		if !ok {
			return UnknownRule{Type: string(RoutingTime), Reason: "days must be a list"}
		}
		if len(days) > 0 {
			rule.Days = make(map[time.Weekday]bool, len(days))
			for _, d := range days {
				n, ok := toNumber(d)
				if !ok || n < 0 || n > 7 {
					continue
				}
				// ISO numbering: 7 is Sunday.
				rule.Days[time.Weekday(int(n)%7)] = true
			}
			if len(rule.Days) == 0 {
				return UnknownRule{Type: string(RoutingTime), Reason: "days has no valid weekday"}
			}
		}
	}
	return rule
}

// parseClock parses "HH:MM" into minutes after midnight.
func parseClock(s string) (int, error) {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	hh, err := strconv.Atoi(h)
	if err != nil || hh < 0 || hh > 24 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	mm, err := strconv.Atoi(m)
	if err != nil || mm < 0 || mm > 59 || (hh == 24 && mm != 0) {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	return hh*60 + mm, nil
}

func numberField(doc map[string]any, key string) (float64, bool) {
	v, ok := doc[key]
	if !ok {
		return 0, false
	}
	return toNumber(v)
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
