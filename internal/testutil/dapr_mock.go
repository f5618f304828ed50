package testutil

import (
	"context"

	dapr "github.com/dapr/go-sdk/client"
	"github.com/stretchr/testify/mock"
)

// MockDaprClient is a testify mock covering the dapr client calls the click
// emitter makes. Publish options are accepted but not recorded.
type MockDaprClient struct {
	mock.Mock
}

func (m *MockDaprClient) PublishEvent(ctx context.Context, pubsubName, topicName string, data interface{}, opts ...dapr.PublishEventOption) error {
	args := m.Called(ctx, pubsubName, topicName, data)
	return args.Error(0)
}

func (m *MockDaprClient) Close() {
	m.Called()
}
