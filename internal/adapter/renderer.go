package adapter

import "context"

// Renderer loads a page and returns its HTML once the ready selector is
// present. Every call uses its own session; nothing is shared between calls.
type Renderer interface {
	Render(ctx context.Context, url, readySelector string) (string, error)
	Name() string
}
