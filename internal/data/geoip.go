package data

import (
	"net"
	"strings"

	"link-runtime/internal/biz"
	"link-runtime/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	geoip2 "github.com/oschwald/geoip2-golang"
)

// Compile-time interface checks
var (
	_ biz.CountryResolver = (*geoIPResolver)(nil)
	_ biz.CountryResolver = noopCountryResolver{}
)

// geoIPResolver resolves IP addresses to country codes using a GeoIP2 database.
type geoIPResolver struct {
	db *geoip2.Reader
}

// NewCountryResolver opens the configured GeoIP2 database. Without a path, or
// when the database cannot be opened, countries are reported as unknown.
func NewCountryResolver(c *conf.GeoIP, logger log.Logger) (biz.CountryResolver, func()) {
	if c.Path == "" {
		return noopCountryResolver{}, func() {}
	}
	db, err := geoip2.Open(c.Path)
	if err != nil {
		log.NewHelper(logger).Warnw("msg", "geoip database unavailable, country lookups disabled", "path", c.Path, "error", err)
		return noopCountryResolver{}, func() {}
	}
	return &geoIPResolver{db: db}, func() { _ = db.Close() }
}

// ResolveCountry returns the upper-cased ISO country code for ip, or "" for
// private or invalid addresses and lookup failures.
func (g *geoIPResolver) ResolveCountry(ipStr string) string {
	ip := net.ParseIP(ipStr)
	if ip == nil || ip.IsPrivate() || ip.IsLoopback() {
		return ""
	}
	record, err := g.db.Country(ip)
	if err != nil {
		return ""
	}
	return strings.ToUpper(record.Country.IsoCode)
}

type noopCountryResolver struct{}

func (noopCountryResolver) ResolveCountry(string) string { return "" }
