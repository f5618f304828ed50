package valueobject

import (
	"net/url"
)

// ParseDestination parses an absolute http(s) URL a request may be redirected to.
func ParseDestination(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, ErrInvalidURL
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, ErrInvalidURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, ErrInvalidURL
	}
	if parsed.Host == "" {
		return nil, ErrInvalidURL
	}
	return parsed, nil
}
