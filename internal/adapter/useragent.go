package adapter

import "sync/atomic"

// DefaultUserAgents is the desktop browser rotation used when none is configured.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
}

// acceptLanguage is sent with every render.
const acceptLanguage = "en-US,en;q=0.9"

// agentRotation hands out user agents round-robin. Safe for concurrent use.
type agentRotation struct {
	agents []string
	next   atomic.Uint64
}

func newAgentRotation(agents []string) *agentRotation {
	if len(agents) == 0 {
		agents = DefaultUserAgents
	}
	return &agentRotation{agents: append([]string(nil), agents...)}
}

func (r *agentRotation) pick() string {
	n := r.next.Add(1) - 1
	return r.agents[n%uint64(len(r.agents))]
}
