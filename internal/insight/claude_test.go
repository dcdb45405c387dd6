package insight

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/flightscan/internal/export"
	"github.com/sells-group/flightscan/pkg/anthropic"
	"github.com/sells-group/flightscan/pkg/anthropic/anthropictest"
)

func TestClaude_Summarize(t *testing.T) {
	client := &anthropictest.MockClient{}
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == DefaultModel &&
			req.MaxTokens == DefaultMaxTokens &&
			len(req.Messages) == 1 &&
			req.Messages[0].Role == "user" &&
			strings.Contains(req.Messages[0].Content, `"carrier":"VS"`) &&
			strings.Contains(req.Messages[0].Content, `"amount":"512.50"`) &&
			strings.Contains(req.Messages[0].Content, "JFK-LHR")
	})).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "  VS4 is the best value.  "}},
		Usage:   anthropic.TokenUsage{InputTokens: 300, OutputTokens: 20},
	}, nil)

	c := NewClaude(client, "", 0)
	s, err := c.Summarize(context.Background(), testQuery(t), []export.Record{
		record("VS", "4", "512.50", "USD", 420),
		record("BA", "112", "580", "USD", 430),
	})
	require.NoError(t, err)

	assert.Equal(t, SourceClaude, s.Source)
	assert.Equal(t, "VS4 is the best value.", s.Text)
	require.NotNil(t, s.Cheapest)
	assert.Equal(t, "VS", s.Cheapest.Carrier)
	client.AssertExpectations(t)
}

func TestClaude_FallsBackOnError(t *testing.T) {
	client := &anthropictest.MockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("overloaded"))

	s, err := NewClaude(client, "claude-sonnet-4-5-20250929", 256).Summarize(context.Background(), testQuery(t), []export.Record{
		record("VS", "4", "512.50", "USD", 420),
	})
	require.NoError(t, err)
	assert.Equal(t, SourceBasic, s.Source)
	assert.Contains(t, s.Text, "Found 1 flights")
}

func TestClaude_EmptyResponseFallsBack(t *testing.T) {
	client := &anthropictest.MockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(&anthropic.MessageResponse{}, nil)

	s, err := NewClaude(client, "", 0).Summarize(context.Background(), testQuery(t), []export.Record{
		record("VS", "4", "512.50", "USD", 420),
	})
	require.NoError(t, err)
	assert.Equal(t, SourceBasic, s.Source)
}

func TestClaude_NoRecordsSkipsModel(t *testing.T) {
	client := &anthropictest.MockClient{}

	s, err := NewClaude(client, "", 0).Summarize(context.Background(), testQuery(t), nil)
	require.NoError(t, err)
	assert.Equal(t, SourceBasic, s.Source)
	client.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}
