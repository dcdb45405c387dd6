// Package anthropictest provides a testify mock of anthropic.Client.
package anthropictest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/flightscan/pkg/anthropic"
)

// MockClient implements anthropic.Client for tests.
type MockClient struct {
	mock.Mock
}

var _ anthropic.Client = (*MockClient)(nil)

// CreateMessage records the call and returns the configured response.
func (m *MockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}
