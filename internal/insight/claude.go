package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/flightscan/internal/export"
	"github.com/sells-group/flightscan/internal/model"
	"github.com/sells-group/flightscan/pkg/anthropic"
)

// Defaults for the Claude summarizer.
const (
	DefaultModel     = "claude-haiku-4-5-20251001"
	DefaultMaxTokens = 1024
)

const systemPrompt = `You are a travel analyst. You receive a flight search and its results as JSON.
Write a short plain-text summary for a traveller: the price range, the best value options,
the trade-off between price and duration, and any carrier that stands out.
Quote prices with their currency. Do not invent flights that are not in the data.`

// Claude asks an Anthropic model for the summary text. Statistics always come
// from Basic; when the model call fails the Basic summary is returned.
type Claude struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	basic     Basic
}

// NewClaude creates a Claude summarizer. Empty model and non-positive
// maxTokens use the defaults.
func NewClaude(client anthropic.Client, model string, maxTokens int64) *Claude {
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Claude{client: client, model: model, maxTokens: maxTokens}
}

// Summarize implements Summarizer.
func (c *Claude) Summarize(ctx context.Context, q model.Query, records []export.Record) (*Summary, error) {
	s, err := c.basic.Summarize(ctx, q, records)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return s, nil
	}

	text, err := c.generate(ctx, q, records)
	if err != nil {
		zap.L().Warn("insight: claude summary failed, using basic summary",
			zap.String("query", q.String()),
			zap.Error(err),
		)
		return s, nil
	}
	s.Source = SourceClaude
	s.Text = text
	return s, nil
}

func (c *Claude) generate(ctx context.Context, q model.Query, records []export.Record) (string, error) {
	payload, err := json.Marshal(struct {
		Query   string          `json:"query"`
		Flights []export.Record `json:"flights"`
	}{Query: q.String(), Flights: records})
	if err != nil {
		return "", eris.Wrap(err, "insight: marshal records")
	}

	temp := 0.2
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		System:      systemPrompt,
		Temperature: &temp,
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: fmt.Sprintf("Search results:\n%s", payload),
		}},
	})
	if err != nil {
		return "", eris.Wrap(err, "insight: claude summary")
	}
	resp.Usage.LogCost(c.model, "insight_summary")

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", eris.New("insight: empty claude response")
	}
	return text, nil
}
