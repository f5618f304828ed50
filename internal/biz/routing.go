package biz

import (
	"strconv"
	"time"

	"link-runtime/internal/domain"

	"github.com/cespare/xxhash/v2"
	"github.com/go-kratos/kratos/v2/log"
)

// Region buckets used by geo routing.
const (
	RegionNorthAmerica = "NA"
	RegionLatinAmerica = "LATAM"
	RegionEurope       = "EU"
	RegionMiddleEastAf = "MEA"
	RegionAsiaPacific  = "APAC"
)

var countryRegions = map[string]string{}

func init() {
	buckets := map[string][]string{
		RegionNorthAmerica: {"US", "CA", "PR", "GU", "VI", "AS", "MP", "UM", "BM"},
		RegionLatinAmerica: {"MX", "GT", "BZ", "SV", "HN", "NI", "CR", "PA", "CU", "DO", "HT", "JM", "TT", "BS", "BB",
			"CO", "VE", "EC", "PE", "BO", "BR", "PY", "UY", "AR", "CL", "GY", "SR"},
		RegionEurope: {"GB", "IE", "FR", "DE", "NL", "BE", "LU", "CH", "AT", "IT", "ES", "PT", "DK", "NO", "SE", "FI",
			"IS", "PL", "CZ", "SK", "HU", "RO", "BG", "GR", "HR", "SI", "RS", "BA", "ME", "MK", "AL", "EE", "LV",
			"LT", "UA", "MD", "BY", "MT", "CY"},
		RegionMiddleEastAf: {"AE", "SA", "QA", "KW", "BH", "OM", "IL", "JO", "LB", "TR", "EG", "MA", "DZ", "TN", "NG",
			"KE", "GH", "ZA", "ET", "TZ", "UG"},
		RegionAsiaPacific: {"CN", "JP", "KR", "TW", "HK", "SG", "MY", "TH", "VN", "PH", "ID", "IN", "PK", "BD", "LK",
			"AU", "NZ"},
	}
	for region, countries := range buckets {
		for _, c := range countries {
			countryRegions[c] = region
		}
	}
}

// RegionOf returns the region bucket of an ISO country code, or "".
func RegionOf(country string) string {
	return countryRegions[country]
}

// Routing reasons reported on the click event.
const (
	RouteDefault     = "default"
	RouteABTest      = "ab_test"
	RouteGeo         = "geo"
	RouteGeoDefault  = "geo_default"
	RouteInHours     = "time_in_hours"
	RouteAfterHours  = "time_after_hours"
	RouteUnknownRule = "unknown_rule"
)

// Route is the destination chosen for one click.
type Route struct {
	URL     string
	Reason  string
	Variant string
}

// RoutingEngine deterministically selects a destination variant.
type RoutingEngine struct {
	log *log.Helper
}

func NewRoutingEngine(logger log.Logger) *RoutingEngine {
	return &RoutingEngine{log: log.NewHelper(logger)}
}

// ABBucket maps a click session id onto 0..99.
func ABBucket(sessionID string) int {
	return int(xxhash.Sum64String(sessionID) % 100)
}

// Resolve never fails; unknown or empty rules fall back to the record destination.
func (e *RoutingEngine) Resolve(rec *domain.RuntimeRecord, sessionID string, cctx *domain.ClickContext) Route {
	def := Route{URL: rec.DestinationURL, Reason: RouteDefault}

	switch rule := rec.Routing.(type) {
	case nil:
		return def
	case domain.ABTestRule:
		variant, target := "B", rule.VariantBURL
		if ABBucket(sessionID) < rule.SplitPercent {
			variant, target = "A", rule.VariantAURL
		}
		if target == "" {
			target = rec.DestinationURL
		}
		return Route{URL: target, Reason: RouteABTest, Variant: variant}
	case domain.GeoRule:
		if cctx.Country != "" {
			if target, ok := rule.Regions[cctx.Country]; ok {
				return Route{URL: target, Reason: RouteGeo, Variant: cctx.Country}
			}
			if region := RegionOf(cctx.Country); region != "" {
				if target, ok := rule.Regions[region]; ok {
					return Route{URL: target, Reason: RouteGeo, Variant: region}
				}
			}
		}
		return Route{URL: rule.DefaultURL, Reason: RouteGeoDefault, Variant: "default"}
	case domain.TimeRule:
		if inBusinessHours(rule, cctx.Now) {
			if rule.InHoursURL == "" {
				return Route{URL: rec.DestinationURL, Reason: RouteInHours, Variant: "in_hours"}
			}
			return Route{URL: rule.InHoursURL, Reason: RouteInHours, Variant: "in_hours"}
		}
		if rule.AfterHoursURL == "" {
			return Route{URL: rec.DestinationURL, Reason: RouteAfterHours, Variant: "after_hours"}
		}
		return Route{URL: rule.AfterHoursURL, Reason: RouteAfterHours, Variant: "after_hours"}
	case domain.UnknownRule:
		e.log.Warnw("msg", "unknown routing rule, using destination",
			"domain", rec.Domain, "slug", rec.Slug, "type", rule.Type, "reason", rule.Reason,
			"error", domain.ErrInvalidRoutingRule)
		return Route{URL: rec.DestinationURL, Reason: RouteUnknownRule}
	default:
		e.log.Warnw("msg", "unhandled routing rule kind, using destination",
			"domain", rec.Domain, "slug", rec.Slug, "kind", string(rule.Kind()))
		return Route{URL: rec.DestinationURL, Reason: RouteUnknownRule}
	}
}

func inBusinessHours(rule domain.TimeRule, now time.Time) bool {
	local := now.In(rule.Location)
	if len(rule.Days) > 0 && !rule.Days[local.Weekday()] {
		return false
	}
	minute := local.Hour()*60 + local.Minute()
	if rule.Start <= rule.End {
		return minute >= rule.Start && minute < rule.End
	}
	// Window wraps midnight, e.g. 22:00-06:00.
	return minute >= rule.Start || minute < rule.End
}

// clickTimestamp renders the click_ts dynamic parameter.
func clickTimestamp(now time.Time) string {
	return strconv.FormatInt(now.Unix(), 10)
}
