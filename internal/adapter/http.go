package adapter

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// maxPageBytes caps how much of a results page is read.
const maxPageBytes = 2 << 20

// HTTPRenderer fetches server-rendered results pages without a browser.
type HTTPRenderer struct {
	client *http.Client
	agents *agentRotation
}

// NewHTTPRenderer creates an HTTPRenderer. The request deadline comes from the
// caller's context; the client timeout is only a backstop.
func NewHTTPRenderer(userAgents []string) *HTTPRenderer {
	return &HTTPRenderer{
		client: &http.Client{
			Timeout: 2 * time.Minute,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		agents: newAgentRotation(userAgents),
	}
}

// Name implements Renderer.
func (h *HTTPRenderer) Name() string { return "http" }

// Render fetches url. The ready selector is not used; the page is complete
// once the body has been read.
func (h *HTTPRenderer) Render(ctx context.Context, url, _ string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &Error{Kind: KindUnavailable, Err: eris.Wrap(err, "http: create request")}
	}
	req.Header.Set("User-Agent", h.agents.pick())
	req.Header.Set("Accept-Language", acceptLanguage)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", renderFailure(ctx, err, "http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", renderFailure(ctx, err, "http: read body")
	}

	if blocked, bt := DetectBlock(resp, body); blocked {
		return "", &Error{Kind: KindUnavailable, Err: eris.Errorf("http: blocked (%s)", bt)}
	}
	if resp.StatusCode >= 400 {
		return "", &Error{Kind: KindUnavailable, Err: eris.Errorf("http: status %d", resp.StatusCode)}
	}
	return string(body), nil
}
