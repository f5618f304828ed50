package eventbus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"link-runtime/internal/domain"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/suite"
)

type EventBusTestSuite struct {
	suite.Suite
	sut    *EventBus
	logger watermill.LoggerAdapter
}

func TestEventBusTestSuite(t *testing.T) {
	suite.Run(t, new(EventBusTestSuite))
}

func (s *EventBusTestSuite) SetupTest() {
	s.logger = watermill.NopLogger{}
	s.sut = NewEventBus(s.logger)
}

func (s *EventBusTestSuite) TearDownTest() {
	if s.sut != nil {
		s.sut.Close()
	}
}

func testClick() *domain.ClickEvent {
	return &domain.ClickEvent{
		EventID:       domain.NewEventID(),
		EventType:     domain.ClickEventType,
		OccurredAt:    time.Date(2025, 3, 3, 15, 0, 0, 0, time.UTC),
		Domain:        "go.example.com",
		Slug:          "promo",
		ClickID:       "c-1",
		RoutingReason: "default",
		Forwarded:     map[string]string{"utm_source": "mail"},
	}
}

func (s *EventBusTestSuite) TestPublish() {
	// Arrange
	ctx := context.Background()

	// Act
	err := s.sut.Publish(ctx, testClick())

	// Assert
	s.NoError(err)
}

func (s *EventBusTestSuite) TestClickToMessage() {
	// Arrange
	evt := testClick()

	// Act
	msg, err := ClickToMessage(evt)

	// Assert
	s.NoError(err)
	s.NotNil(msg)
	s.Equal(evt.EventID, msg.UUID)
	s.Equal(domain.ClickEventType, msg.Metadata.Get("event_name"))
	s.Equal("go.example.com:promo", msg.Metadata.Get("aggregate_id"))
}

func (s *EventBusTestSuite) TestMessageToEnvelope() {
	// Arrange
	evt := testClick()
	msg, err := ClickToMessage(evt)
	s.Require().NoError(err)

	// Act
	envelope, err := MessageToEnvelope(msg)

	// Assert
	s.NoError(err)
	s.Equal(evt.EventID, envelope.EventID)
	s.Equal(domain.ClickEventType, envelope.EventName)
	s.True(evt.OccurredAt.Equal(envelope.OccurredAt))

	var payload map[string]any
	s.Require().NoError(json.Unmarshal(envelope.Payload, &payload))
	s.Equal("promo", payload["slug"])
	s.Equal("mail", payload["utm_source"])
}

func (s *EventBusTestSuite) TestPublishAndSubscribe() {
	// Arrange
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	messages, err := s.sut.Subscriber().Subscribe(ctx, ClicksTopic)
	s.Require().NoError(err)

	// Act
	err = s.sut.Publish(ctx, testClick())
	s.Require().NoError(err)

	// Assert
	select {
	case msg := <-messages:
		envelope, err := MessageToEnvelope(msg)
		s.NoError(err)
		s.Equal(domain.ClickEventType, envelope.EventName)
		s.Equal("go.example.com:promo", envelope.AggregateID)
		msg.Ack()
	case <-ctx.Done():
		s.Fail("timeout waiting for message")
	}
}
