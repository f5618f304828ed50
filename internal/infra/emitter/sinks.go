package emitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"link-runtime/internal/domain"
	"link-runtime/internal/infra/eventbus"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/cenkalti/backoff/v4"
	dapr "github.com/dapr/go-sdk/client"
)

// HTTPSink POSTs each event as a JSON object to an ingestion endpoint.
type HTTPSink struct {
	client   *http.Client
	endpoint string
}

// NewHTTPSink creates an HTTP sink. The per-attempt deadline comes from the
// emitter's context, so the client carries no timeout of its own.
func NewHTTPSink(client *http.Client, endpoint string) *HTTPSink {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPSink{client: client, endpoint: endpoint}
}

func (s *HTTPSink) Name() string { return "http" }

// Send retries on transport errors, 429 and 5xx. Other non-2xx responses are permanent.
func (s *HTTPSink) Send(ctx context.Context, e *domain.ClickEvent) error {
	body, err := json.Marshal(e)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("marshal click event: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post click event: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("ingestion endpoint returned %d", resp.StatusCode)
	default:
		return backoff.Permanent(fmt.Errorf("ingestion endpoint returned %d", resp.StatusCode))
	}
}

// DaprPublisher is the part of the dapr client the sink uses.
type DaprPublisher interface {
	PublishEvent(ctx context.Context, pubsubName, topicName string, data interface{}, opts ...dapr.PublishEventOption) error
}

// DaprSink publishes events to a dapr pub/sub component.
type DaprSink struct {
	client DaprPublisher
	pubsub string
	topic  string
}

func NewDaprSink(client DaprPublisher, pubsub, topic string) *DaprSink {
	return &DaprSink{client: client, pubsub: pubsub, topic: topic}
}

func (s *DaprSink) Name() string { return "dapr" }

func (s *DaprSink) Send(ctx context.Context, e *domain.ClickEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("marshal click event: %w", err))
	}
	if err := s.client.PublishEvent(ctx, s.pubsub, s.topic, data, dapr.PublishEventWithContentType("application/json")); err != nil {
		return fmt.Errorf("publish click event: %w", err)
	}
	return nil
}

// SQSAPI is the part of the SQS client the sink uses.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSSink sends each event as one SQS message.
type SQSSink struct {
	client   SQSAPI
	queueURL string
}

func NewSQSSink(client SQSAPI, queueURL string) *SQSSink {
	return &SQSSink{client: client, queueURL: queueURL}
}

func (s *SQSSink) Name() string { return "sqs" }

func (s *SQSSink) Send(ctx context.Context, e *domain.ClickEvent) error {
	body, err := json.Marshal(e)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("marshal click event: %w", err))
	}
	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(e.EventType)},
			"domain":     {DataType: aws.String("String"), StringValue: aws.String(e.Domain)},
		},
	})
	if err != nil {
		return fmt.Errorf("send click event to sqs: %w", err)
	}
	return nil
}

// BusSink publishes events on the in-process event bus.
type BusSink struct {
	bus *eventbus.EventBus
}

func NewBusSink(bus *eventbus.EventBus) *BusSink {
	return &BusSink{bus: bus}
}

func (s *BusSink) Name() string { return "bus" }

func (s *BusSink) Send(ctx context.Context, e *domain.ClickEvent) error {
	return s.bus.Publish(ctx, e)
}

// NoopSink discards every event.
type NoopSink struct{}

func (NoopSink) Name() string { return "noop" }

func (NoopSink) Send(context.Context, *domain.ClickEvent) error { return nil }
