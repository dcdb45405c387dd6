package adapter

import (
	"regexp"
	"strings"
)

// Layout names the CSS selectors that locate flight rows and their fields on
// a results page. A selector suffixed with @attr reads that attribute instead
// of the element text, e.g. "time.depart@datetime".
type Layout struct {
	Container    string `mapstructure:"container" yaml:"container"`
	Row          string `mapstructure:"row" yaml:"row"`
	Carrier      string `mapstructure:"carrier" yaml:"carrier"`
	FlightNumber string `mapstructure:"flight_number" yaml:"flight_number"`
	Origin       string `mapstructure:"origin" yaml:"origin"`
	Destination  string `mapstructure:"destination" yaml:"destination"`
	DepartTime   string `mapstructure:"depart_time" yaml:"depart_time"`
	ArriveTime   string `mapstructure:"arrive_time" yaml:"arrive_time"`
	Duration     string `mapstructure:"duration" yaml:"duration"`
	Price        string `mapstructure:"price" yaml:"price"`
	Currency     string `mapstructure:"currency" yaml:"currency"`
	Stops        string `mapstructure:"stops" yaml:"stops"`
	NoResults    string `mapstructure:"no_results" yaml:"no_results"`
}

// DefaultLayout is the selector set for the reference results page markup.
func DefaultLayout() Layout {
	return Layout{
		Container:    "ul.flight-results",
		Row:          "li.flight",
		Carrier:      ".carrier",
		FlightNumber: ".flight-number",
		DepartTime:   ".depart-time",
		ArriveTime:   ".arrive-time",
		Duration:     ".duration",
		Price:        ".price",
		Currency:     ".price@data-currency",
		Stops:        ".stops .stop-code",
		NoResults:    ".no-results",
	}
}

// ReadySelector matches either the results container or the no-results marker,
// whichever renders.
func (l Layout) ReadySelector() string {
	sel, _ := splitSelector(l.Container)
	if l.NoResults == "" {
		return sel
	}
	marker, _ := splitSelector(l.NoResults)
	return sel + ", " + marker
}

// fields returns the row-level selectors keyed by RawRow field name. Stops is
// handled separately because it yields a list.
func (l Layout) fields() map[string]string {
	out := map[string]string{}
	add := func(key, sel string) {
		if sel != "" {
			out[key] = sel
		}
	}
	add("carrier", l.Carrier)
	add("flight_number", l.FlightNumber)
	add("origin", l.Origin)
	add("destination", l.Destination)
	add("depart_time", l.DepartTime)
	add("arrive_time", l.ArriveTime)
	add("duration", l.Duration)
	add("price", l.Price)
	add("currency", l.Currency)
	return out
}

var attrSuffix = regexp.MustCompile(`@([A-Za-z_][A-Za-z0-9_:.-]*)$`)

// splitSelector separates a trailing @attr from the CSS selector.
func splitSelector(s string) (css, attr string) {
	s = strings.TrimSpace(s)
	m := attrSuffix.FindStringSubmatchIndex(s)
	if m == nil {
		return s, ""
	}
	return strings.TrimSpace(s[:m[0]]), s[m[2]:m[3]]
}
