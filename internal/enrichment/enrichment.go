// Package enrichment derives descriptive click attributes that never
// influence the redirect decision.
package enrichment

import (
	"link-runtime/internal/biz"

	"github.com/google/wire"
)

// Compile-time interface checks
var (
	_ biz.DeviceDetector    = (*DeviceDetector)(nil)
	_ biz.RefererClassifier = (*RefererClassifier)(nil)
)

// ProviderSet is enrichment providers.
var ProviderSet = wire.NewSet(
	NewDeviceDetector,
	NewRefererClassifier,
	wire.Bind(new(biz.DeviceDetector), new(*DeviceDetector)),
	wire.Bind(new(biz.RefererClassifier), new(*RefererClassifier)),
)
