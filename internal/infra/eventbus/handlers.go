package eventbus

import (
	"context"
	"encoding/json"

	"link-runtime/internal/domain"

	"github.com/go-kratos/kratos/v2/log"
)

// Compile-time interface check
var _ EventHandler = (*ClickLoggingHandler)(nil)

// ClickLoggingHandler writes one structured line per click event. It is the
// consumer of the in-process bus used in development and tests.
type ClickLoggingHandler struct {
	log *log.Helper
}

// NewClickLoggingHandler creates a new click logging handler.
func NewClickLoggingHandler(logger log.Logger) *ClickLoggingHandler {
	return &ClickLoggingHandler{log: log.NewHelper(logger)}
}

func (h *ClickLoggingHandler) HandlerName() string {
	return "click_logging_handler"
}

func (h *ClickLoggingHandler) EventName() string {
	return domain.ClickEventType
}

// Handle logs the click. Malformed payloads are logged and dropped.
func (h *ClickLoggingHandler) Handle(ctx context.Context, envelope *EventEnvelope) error {
	var evt domain.ClickEvent
	if err := json.Unmarshal(envelope.Payload, &evt); err != nil {
		h.log.WithContext(ctx).Warnw("msg", "failed to unmarshal click event", "event_id", envelope.EventID, "error", err)
		return nil
	}
	h.log.WithContext(ctx).Infow(
		"msg", "link clicked",
		"event_id", evt.EventID,
		"domain", evt.Domain,
		"slug", evt.Slug,
		"click_id", evt.ClickID,
		"routing_reason", evt.RoutingReason,
		"variant", evt.Variant,
		"country", evt.Country,
		"is_bot", evt.IsBot,
		"latency_ms", evt.LatencyMS,
	)
	return nil
}

// RegisterHandlers registers the bus consumers with the router.
func RegisterHandlers(router *Router, logger log.Logger) {
	router.AddHandler(NewClickLoggingHandler(logger))
}
