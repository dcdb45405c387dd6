package adapter

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ChromeRenderer renders pages in headless Chrome. Each Render starts its own
// browser process and tab and closes both before returning.
type ChromeRenderer struct {
	headless     bool
	execPath     string
	readyTimeout time.Duration
	agents       *agentRotation
}

// ChromeOptions configures a ChromeRenderer.
type ChromeOptions struct {
	Headless   bool
	ExecPath   string
	UserAgents []string
	// ReadyTimeout bounds the wait for the ready selector. When it passes the
	// render fails with KindTimeout, or KindUnavailable for a block page.
	// Default: 15s.
	ReadyTimeout time.Duration
}

// NewChromeRenderer creates a ChromeRenderer.
func NewChromeRenderer(opts ChromeOptions) *ChromeRenderer {
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 15 * time.Second
	}
	return &ChromeRenderer{
		headless:     opts.Headless,
		execPath:     opts.ExecPath,
		readyTimeout: opts.ReadyTimeout,
		agents:       newAgentRotation(opts.UserAgents),
	}
}

// Name implements Renderer.
func (c *ChromeRenderer) Name() string { return "chrome" }

// Render navigates to url and returns the document's outer HTML.
func (c *ChromeRenderer) Render(ctx context.Context, url, readySelector string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.headless),
		chromedp.UserAgent(c.agents.pick()),
		chromedp.WindowSize(1366, 768),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.NoSandbox,
	)
	if c.execPath != "" {
		opts = append(opts, chromedp.ExecPath(c.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	chromedp.ListenTarget(tabCtx, func(ev any) {
		if e, ok := ev.(*fetch.EventRequestPaused); ok {
			// Handlers run on the event loop; commands must be sent off it.
			go func() {
				ectx := cdp.WithExecutor(tabCtx, chromedp.FromContext(tabCtx).Target)
				_ = fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient).Do(ectx)
			}()
		}
	})

	if err := chromedp.Run(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": acceptLanguage}),
		fetch.Enable().WithPatterns(blockedResourcePatterns()),
	); err != nil {
		return "", renderFailure(ctx, err, "chrome: start session")
	}

	resp, err := chromedp.RunResponse(tabCtx, chromedp.Navigate(url))
	if err != nil {
		return "", renderFailure(ctx, err, "chrome: navigate")
	}
	if resp != nil && resp.Status >= 400 {
		return "", &Error{Kind: KindUnavailable, Err: eris.Errorf("chrome: status %d", resp.Status)}
	}

	if readySelector != "" {
		waitCtx, cancelWait := context.WithTimeout(tabCtx, c.readyTimeout)
		err := chromedp.Run(waitCtx, chromedp.WaitReady(readySelector, chromedp.ByQuery))
		cancelWait()
		if err != nil {
			if ctx.Err() != nil {
				return "", renderFailure(ctx, err, "chrome: wait for results")
			}
			var html string
			_ = chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
			zap.L().Debug("chrome: results not ready",
				zap.String("selector", readySelector),
				zap.String("url", url),
				zap.Duration("waited", c.readyTimeout),
			)
			return "", readyFailure(html, c.readyTimeout, err)
		}
	}

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", renderFailure(ctx, err, "chrome: read document")
	}

	if blocked, bt := DetectBlock(nil, []byte(html)); blocked {
		return "", &Error{Kind: KindUnavailable, Err: eris.Errorf("chrome: blocked (%s)", bt)}
	}
	return html, nil
}

// blockedResources are never loaded; results pages render without them.
var blockedResources = []network.ResourceType{
	network.ResourceTypeImage,
	network.ResourceTypeMedia,
	network.ResourceTypeFont,
}

func blockedResourcePatterns() []*fetch.RequestPattern {
	patterns := make([]*fetch.RequestPattern, len(blockedResources))
	for i, rt := range blockedResources {
		patterns[i] = &fetch.RequestPattern{URLPattern: "*", ResourceType: rt}
	}
	return patterns
}

// readyFailure classifies a ready wait that ran out of time while the caller
// still had time left. A block page is unavailable; anything else rendered
// too slowly.
func readyFailure(html string, waited time.Duration, err error) error {
	if blocked, bt := DetectBlock(nil, []byte(html)); blocked {
		return &Error{Kind: KindUnavailable, Err: eris.Errorf("chrome: blocked (%s)", bt)}
	}
	return &Error{Kind: KindTimeout, Err: eris.Wrapf(err, "chrome: results not ready after %s", waited)}
}

// renderFailure maps a session error to a timeout when the caller's deadline
// is what stopped it, and to unavailable otherwise.
func renderFailure(ctx context.Context, err error, msg string) error {
	kind := KindUnavailable
	if ctx.Err() != nil || KindOf(err) == KindTimeout {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Err: eris.Wrap(err, msg)}
}
