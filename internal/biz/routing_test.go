package biz

import (
	"fmt"
	"testing"
	"time"

	"link-runtime/internal/domain"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
)

func newTestRoutingEngine() *RoutingEngine {
	return NewRoutingEngine(log.DefaultLogger)
}

func TestRoutingEngine_NoRule(t *testing.T) {
	rec := &domain.RuntimeRecord{DestinationURL: "https://example.com/a"}

	r := newTestRoutingEngine().Resolve(rec, "s1", &domain.ClickContext{})

	assert.Equal(t, Route{URL: "https://example.com/a", Reason: RouteDefault}, r)
}

func TestRoutingEngine_ABTestIsDeterministic(t *testing.T) {
	rec := &domain.RuntimeRecord{
		DestinationURL: "https://example.com/",
		Routing:        domain.ABTestRule{SplitPercent: 50, VariantAURL: "https://a.example.com/", VariantBURL: "https://b.example.com/"},
	}
	e := newTestRoutingEngine()

	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("session-%d", i)
		first := e.Resolve(rec, id, &domain.ClickContext{})
		second := e.Resolve(rec, id, &domain.ClickContext{})
		assert.Equal(t, first, second)
		assert.Equal(t, RouteABTest, first.Reason)
	}
}

func TestRoutingEngine_ABTestDistribution(t *testing.T) {
	rec := &domain.RuntimeRecord{
		DestinationURL: "https://example.com/",
		Routing:        domain.ABTestRule{SplitPercent: 30, VariantAURL: "https://a.example.com/", VariantBURL: "https://b.example.com/"},
	}
	e := newTestRoutingEngine()

	const n = 20000
	a := 0
	for i := 0; i < n; i++ {
		if e.Resolve(rec, domain.NewClickSessionID(), &domain.ClickContext{}).Variant == "A" {
			a++
		}
	}
	share := float64(a) / n
	assert.InDelta(t, 0.30, share, 0.02)
}

func TestRoutingEngine_ABTestBounds(t *testing.T) {
	e := newTestRoutingEngine()
	all := &domain.RuntimeRecord{Routing: domain.ABTestRule{SplitPercent: 100, VariantAURL: "https://a.example.com/", VariantBURL: "https://b.example.com/"}}
	none := &domain.RuntimeRecord{Routing: domain.ABTestRule{SplitPercent: 0, VariantAURL: "https://a.example.com/", VariantBURL: "https://b.example.com/"}}

	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("s-%d", i)
		assert.Equal(t, "A", e.Resolve(all, id, &domain.ClickContext{}).Variant)
		assert.Equal(t, "B", e.Resolve(none, id, &domain.ClickContext{}).Variant)
	}
}

func TestRoutingEngine_ABTestEmptyVariantFallsBackToDestination(t *testing.T) {
	rec := &domain.RuntimeRecord{
		DestinationURL: "https://example.com/",
		Routing:        domain.ABTestRule{SplitPercent: 0, VariantAURL: "https://a.example.com/"},
	}

	r := newTestRoutingEngine().Resolve(rec, "x", &domain.ClickContext{})

	assert.Equal(t, "https://example.com/", r.URL)
	assert.Equal(t, "B", r.Variant)
}

func TestRoutingEngine_Geo(t *testing.T) {
	rec := &domain.RuntimeRecord{
		DestinationURL: "https://example.com/",
		Routing: domain.GeoRule{
			Regions: map[string]string{
				"NA": "https://na.example.com/",
				"EU": "https://eu.example.com/",
				"CA": "https://ca.example.com/",
			},
			DefaultURL: "https://world.example.com/",
		},
	}
	e := newTestRoutingEngine()

	tests := []struct {
		country string
		want    Route
	}{
		{"US", Route{URL: "https://na.example.com/", Reason: RouteGeo, Variant: "NA"}},
		{"CA", Route{URL: "https://ca.example.com/", Reason: RouteGeo, Variant: "CA"}},
		{"DE", Route{URL: "https://eu.example.com/", Reason: RouteGeo, Variant: "EU"}},
		{"JP", Route{URL: "https://world.example.com/", Reason: RouteGeoDefault, Variant: "default"}},
		{"ZZ", Route{URL: "https://world.example.com/", Reason: RouteGeoDefault, Variant: "default"}},
		{"", Route{URL: "https://world.example.com/", Reason: RouteGeoDefault, Variant: "default"}},
	}
	for _, tt := range tests {
		t.Run(tt.country, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Resolve(rec, "s", &domain.ClickContext{Country: tt.country}))
		})
	}
}

func TestRoutingEngine_Time(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	rule := domain.TimeRule{
		Location:      est,
		Start:         9 * 60,
		End:           17 * 60,
		Days:          map[time.Weekday]bool{time.Monday: true, time.Tuesday: true, time.Wednesday: true, time.Thursday: true, time.Friday: true},
		InHoursURL:    "https://example.com/call",
		AfterHoursURL: "https://example.com/email",
	}
	rec := &domain.RuntimeRecord{DestinationURL: "https://example.com/", Routing: rule}
	e := newTestRoutingEngine()

	// 2025-03-03 is a Monday.
	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"monday morning", time.Date(2025, 3, 3, 10, 0, 0, 0, est), RouteInHours},
		{"monday at opening", time.Date(2025, 3, 3, 9, 0, 0, 0, est), RouteInHours},
		{"monday at closing", time.Date(2025, 3, 3, 17, 0, 0, 0, est), RouteAfterHours},
		{"monday night", time.Date(2025, 3, 3, 22, 0, 0, 0, est), RouteAfterHours},
		{"saturday morning", time.Date(2025, 3, 8, 10, 0, 0, 0, est), RouteAfterHours},
		{"utc instant inside local hours", time.Date(2025, 3, 3, 15, 0, 0, 0, time.UTC), RouteInHours},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Resolve(rec, "s", &domain.ClickContext{Now: tt.now}).Reason)
		})
	}
}

func TestRoutingEngine_TimeWindowWrapsMidnight(t *testing.T) {
	rule := domain.TimeRule{Location: time.UTC, Start: 22 * 60, End: 6 * 60, InHoursURL: "https://example.com/night"}
	rec := &domain.RuntimeRecord{DestinationURL: "https://example.com/", Routing: rule}
	e := newTestRoutingEngine()

	night := e.Resolve(rec, "s", &domain.ClickContext{Now: time.Date(2025, 3, 3, 23, 30, 0, 0, time.UTC)})
	early := e.Resolve(rec, "s", &domain.ClickContext{Now: time.Date(2025, 3, 4, 5, 59, 0, 0, time.UTC)})
	day := e.Resolve(rec, "s", &domain.ClickContext{Now: time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)})

	assert.Equal(t, "https://example.com/night", night.URL)
	assert.Equal(t, "https://example.com/night", early.URL)
	assert.Equal(t, "https://example.com/", day.URL)
	assert.Equal(t, RouteAfterHours, day.Reason)
}

func TestRoutingEngine_UnknownRuleFallsBack(t *testing.T) {
	rec := &domain.RuntimeRecord{
		DestinationURL: "https://example.com/",
		Routing:        domain.ParseRoutingRule(map[string]any{"type": "weighted"}),
	}

	r := newTestRoutingEngine().Resolve(rec, "s", &domain.ClickContext{})

	assert.Equal(t, Route{URL: "https://example.com/", Reason: RouteUnknownRule}, r)
}

func TestRegionOf(t *testing.T) {
	assert.Equal(t, RegionNorthAmerica, RegionOf("US"))
	assert.Equal(t, RegionLatinAmerica, RegionOf("BR"))
	assert.Equal(t, RegionEurope, RegionOf("FR"))
	assert.Equal(t, RegionMiddleEastAf, RegionOf("NG"))
	assert.Equal(t, RegionAsiaPacific, RegionOf("AU"))
	assert.Empty(t, RegionOf("ZZ"))
}
