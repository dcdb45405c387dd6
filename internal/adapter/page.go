package adapter

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/flightscan/internal/airport"
	"github.com/sells-group/flightscan/internal/model"
)

// DefaultURLTemplate is the generic query-string form of the reference
// results page.
const DefaultURLTemplate = "https://www.google.com/travel/flights?q=Flights%20from%20{origin}%20to%20{destination}%20on%20{date}"

// PageOptions configures a PageAdapter.
type PageOptions struct {
	Name        string
	URLTemplate string
	Layout      Layout
	Renderer    Renderer
	// Airports resolves local clock times to offsets. Default: airport.Default().
	Airports *airport.Table
	// DebugDir, when set, receives the HTML of pages whose layout did not match.
	DebugDir string
	Now      func() time.Time
}

// PageAdapter renders a templated results URL and extracts rows with a
// selector Layout. Variants differ only in their options.
type PageAdapter struct {
	name     string
	template string
	layout   Layout
	renderer Renderer
	airports *airport.Table
	debugDir string
	now      func() time.Time
}

// NewPageAdapter creates a PageAdapter, filling unset options with defaults.
func NewPageAdapter(opts PageOptions) *PageAdapter {
	if opts.Name == "" {
		opts.Name = "reference"
	}
	if opts.URLTemplate == "" {
		opts.URLTemplate = DefaultURLTemplate
	}
	if opts.Layout.Container == "" {
		opts.Layout = DefaultLayout()
	}
	if opts.Airports == nil {
		opts.Airports = airport.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &PageAdapter{
		name:     opts.Name,
		template: opts.URLTemplate,
		layout:   opts.Layout,
		renderer: opts.Renderer,
		airports: opts.Airports,
		debugDir: opts.DebugDir,
		now:      opts.Now,
	}
}

// Name returns the source identifier.
func (p *PageAdapter) Name() string { return p.name }

// Search renders the results page for q and returns its rows with clock
// times resolved to RFC 3339 timestamps.
func (p *PageAdapter) Search(ctx context.Context, q model.Query) ([]model.RawRow, error) {
	target := p.BuildURL(q)
	zap.L().Debug("adapter: render", zap.String("source", p.name), zap.String("url", target))

	html, err := p.renderer.Render(ctx, target, p.layout.ReadySelector())
	if err != nil {
		return nil, Classify(p.name, err)
	}

	rows, err := Extract(html, p.layout)
	if err != nil {
		p.dumpPage(q, html)
		return nil, Classify(p.name, err)
	}

	fetchedAt := p.now().UTC()
	canon := q.Canonical()
	for _, row := range rows {
		if _, ok := row["origin"]; !ok {
			row["origin"] = canon.Origin
		}
		if _, ok := row["destination"]; !ok {
			row["destination"] = canon.Destination
		}
		if _, ok := row["fetched_at"]; !ok {
			row["fetched_at"] = fetchedAt
		}
		resolveTimeField(row, "depart_time", canon.DepartDate, p.rowLocation(row, "origin"))
		resolveTimeField(row, "arrive_time", canon.DepartDate, p.rowLocation(row, "destination"))
	}
	return rows, nil
}

// BuildURL fills the URL template for q. Values are query-escaped.
func (p *PageAdapter) BuildURL(q model.Query) string {
	c := q.Canonical()
	ret := ""
	if c.ReturnDate != nil {
		ret = c.ReturnDate.String()
	}
	r := strings.NewReplacer(
		"{origin}", url.QueryEscape(c.Origin),
		"{destination}", url.QueryEscape(c.Destination),
		"{date}", url.QueryEscape(c.DepartDate.String()),
		"{return}", url.QueryEscape(ret),
		"{passengers}", strconv.Itoa(c.Passengers),
		"{cabin}", url.QueryEscape(string(c.Cabin)),
	)
	return r.Replace(p.template)
}

// rowLocation returns the zone of the airport the row names. An airport
// missing from the table yields nil.
func (p *PageAdapter) rowLocation(row model.RawRow, key string) *time.Location {
	code, _ := row[key].(string)
	loc, _ := p.airports.Location(code)
	return loc
}

func (p *PageAdapter) dumpPage(q model.Query, html string) {
	if p.debugDir == "" {
		return
	}
	name := fmt.Sprintf("%s_%s_%s.html", p.name, q.Fingerprint()[:8], p.now().UTC().Format("20060102T150405"))
	path := filepath.Join(p.debugDir, name)
	if err := os.MkdirAll(p.debugDir, 0o755); err != nil {
		zap.L().Warn("adapter: create debug dir", zap.String("dir", p.debugDir), zap.Error(err))
		return
	}
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		zap.L().Warn("adapter: write debug page", zap.String("path", path), zap.Error(err))
		return
	}
	zap.L().Info("adapter: saved unreadable page", zap.String("source", p.name), zap.String("path", path))
}

var dayShift = regexp.MustCompile(`\s*\(?\+(\d)(?:\s*days?)?\)?\s*$`)

var clockLayouts = []string{"3:04 PM", "3:04PM", "15:04", "3 PM", "3PM"}

var localLayouts = []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02 15:04"}

// resolveTimeField rewrites row[key] as an RFC 3339 timestamp when it can be
// placed in loc. Values that already carry an offset are left alone. Without
// a location the local wall time is written without an offset, which the
// normalizer rejects unless the row also carries an explicit offset.
func resolveTimeField(row model.RawRow, key string, day model.Date, loc *time.Location) {
	raw, ok := row[key].(string)
	if !ok {
		return
	}
	if resolved, ok := resolveClock(raw, day, loc); ok {
		row[key] = resolved
	}
}

func resolveClock(raw string, day model.Date, loc *time.Location) (string, bool) {
	s := strings.TrimSpace(raw)
	if _, err := time.Parse(time.RFC3339, s); err == nil {
		return s, true
	}

	for _, layout := range localLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return placeWallTime(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), loc), true
		}
	}

	shift := 0
	if m := dayShift.FindStringSubmatch(s); m != nil {
		shift, _ = strconv.Atoi(m[1])
		s = s[:len(s)-len(m[0])]
	}
	s = strings.ToUpper(strings.ReplaceAll(s, ".", ""))
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		d := time.Date(day.Year, day.Month, day.Day+shift, 0, 0, 0, 0, time.UTC)
		return placeWallTime(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, loc), true
	}
	return "", false
}

func placeWallTime(y int, mo time.Month, d, h, mi, sec int, loc *time.Location) string {
	if loc == nil {
		return time.Date(y, mo, d, h, mi, sec, 0, time.UTC).Format("2006-01-02T15:04:05")
	}
	return time.Date(y, mo, d, h, mi, sec, 0, loc).Format(time.RFC3339)
}
