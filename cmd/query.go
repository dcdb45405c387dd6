package main

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/flightscan/internal/model"
)

// queryInput is a search as entered on the command line or in a batch file.
type queryInput struct {
	From       string `yaml:"from"`
	To         string `yaml:"to"`
	Date       string `yaml:"date"`
	Return     string `yaml:"return"`
	Passengers int    `yaml:"passengers"`
	Cabin      string `yaml:"cabin"`
}

// toQuery parses dates and fills defaults. Field checks are left to
// model.Query.Validate.
func (in queryInput) toQuery() (model.Query, error) {
	depart, err := model.ParseDate(strings.TrimSpace(in.Date))
	if err != nil {
		return model.Query{}, eris.Wrapf(model.ErrInvalidQuery, "depart date %q: %v", in.Date, err)
	}
	q := model.Query{
		Origin:      in.From,
		Destination: in.To,
		DepartDate:  depart,
		Passengers:  in.Passengers,
		Cabin:       model.CabinClass(in.Cabin),
	}
	if q.Passengers == 0 {
		q.Passengers = 1
	}
	if q.Cabin == "" {
		q.Cabin = model.CabinEconomy
	}
	if strings.TrimSpace(in.Return) != "" {
		ret, err := model.ParseDate(strings.TrimSpace(in.Return))
		if err != nil {
			return model.Query{}, eris.Wrapf(model.ErrInvalidQuery, "return date %q: %v", in.Return, err)
		}
		q.ReturnDate = &ret
	}
	return q, nil
}
