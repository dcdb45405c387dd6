// Package airport resolves IATA airport codes to their local time zones.
package airport

import (
	_ "embed"
	"sort"
	"strings"
	"sync"
	"time"
	_ "time/tzdata" // zone data for hosts without /usr/share/zoneinfo

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed airports.yaml
var airportsYAML []byte

// Airport is one entry of the embedded airport table.
type Airport struct {
	Code     string `yaml:"code" json:"code"`
	Name     string `yaml:"name" json:"name"`
	City     string `yaml:"city" json:"city"`
	Country  string `yaml:"country" json:"country"`
	TimeZone string `yaml:"tz" json:"tz"`
}

// Table maps airport codes to airports and their loaded locations.
type Table struct {
	airports  map[string]Airport
	locations map[string]*time.Location
}

// Parse builds a Table from YAML. Every entry's zone must load.
func Parse(data []byte) (*Table, error) {
	var list []Airport
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, eris.Wrap(err, "airport: parse table")
	}
	t := &Table{
		airports:  make(map[string]Airport, len(list)),
		locations: make(map[string]*time.Location, len(list)),
	}
	for _, a := range list {
		a.Code = strings.ToUpper(strings.TrimSpace(a.Code))
		if a.Code == "" {
			return nil, eris.New("airport: entry without code")
		}
		loc, err := time.LoadLocation(a.TimeZone)
		if err != nil {
			return nil, eris.Wrapf(err, "airport: load zone %s for %s", a.TimeZone, a.Code)
		}
		t.airports[a.Code] = a
		t.locations[a.Code] = loc
	}
	return t, nil
}

// Lookup returns the airport for code.
func (t *Table) Lookup(code string) (Airport, bool) {
	a, ok := t.airports[strings.ToUpper(strings.TrimSpace(code))]
	return a, ok
}

// Location returns the time zone of the airport with the given code.
func (t *Table) Location(code string) (*time.Location, bool) {
	loc, ok := t.locations[strings.ToUpper(strings.TrimSpace(code))]
	return loc, ok
}

// All returns every airport sorted by code.
func (t *Table) All() []Airport {
	out := make([]Airport, 0, len(t.airports))
	for _, a := range t.airports {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the embedded table. It panics if the embedded data is
// malformed, which is a build defect.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := Parse(airportsYAML)
		if err != nil {
			panic(err)
		}
		defaultTable = t
	})
	return defaultTable
}
