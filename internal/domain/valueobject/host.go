package valueobject

import (
	"net"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Host is the lower-cased domain a request arrived on, without port.
type Host struct {
	value string
}

// NewHost normalizes a Host header value.
func NewHost(raw string) (Host, error) {
	h := strings.TrimSpace(raw)
	if host, _, err := net.SplitHostPort(h); err == nil {
		h = host
	}
	h = strings.TrimSuffix(strings.ToLower(h), ".")
	if err := validation.Validate(h,
		validation.Required.Error("host is required"),
		validation.Length(1, 253),
		is.Host,
	); err != nil {
		return Host{}, ErrMalformedInput
	}
	return Host{value: h}, nil
}

// String returns the normalized host.
func (h Host) String() string {
	return h.value
}
