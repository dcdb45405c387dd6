package adapter

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/flightscan/internal/model"
)

// Extract pulls one RawRow per result row out of html. Fields absent from a
// row are omitted from its map. A page without the results container (and
// without a no-results marker), or whose rows carry none of carrier, price and
// depart time, returns ErrLayoutChanged.
func Extract(html string, l Layout) ([]model.RawRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &Error{Kind: KindLayoutChanged, Err: eris.Wrap(err, "extract: parse html")}
	}

	noResults := false
	if l.NoResults != "" {
		sel, _ := splitSelector(l.NoResults)
		noResults = doc.Find(sel).Length() > 0
	}

	containerSel, _ := splitSelector(l.Container)
	container := doc.Find(containerSel).First()
	if container.Length() == 0 {
		if noResults {
			return []model.RawRow{}, nil
		}
		return nil, &Error{Kind: KindLayoutChanged, Err: eris.Errorf("extract: results container %q not found", l.Container)}
	}

	rowSel, _ := splitSelector(l.Row)
	rows := container.Find(rowSel)
	if rows.Length() == 0 {
		if noResults || l.NoResults == "" {
			return []model.RawRow{}, nil
		}
		return nil, &Error{Kind: KindLayoutChanged, Err: eris.Errorf("extract: no rows match %q", l.Row)}
	}

	fields := l.fields()
	out := make([]model.RawRow, 0, rows.Length())
	anchored := false
	rows.Each(func(_ int, row *goquery.Selection) {
		raw := model.RawRow{}
		for key, sel := range fields {
			if v, ok := readField(row, sel); ok {
				raw[key] = v
			}
		}
		if l.Stops != "" {
			if stops, ok := readList(row, l.Stops); ok {
				raw["stops"] = stops
			}
		}
		if hasAny(raw, "carrier", "price", "depart_time") {
			anchored = true
		}
		out = append(out, raw)
	})

	if !anchored {
		return nil, &Error{Kind: KindLayoutChanged, Err: eris.Errorf("extract: %d rows without carrier, price or depart time", len(out))}
	}
	return out, nil
}

func readField(row *goquery.Selection, selector string) (string, bool) {
	css, attr := splitSelector(selector)
	node := row
	if css != "" {
		node = row.Find(css).First()
	}
	if node.Length() == 0 {
		return "", false
	}
	var v string
	if attr != "" {
		var ok bool
		if v, ok = node.Attr(attr); !ok {
			return "", false
		}
	} else {
		v = node.Text()
	}
	v = collapseSpace(v)
	return v, v != ""
}

// readList returns one string per matched element. A matching container with
// no entries still reports presence so that "no stops" is distinguishable
// from "stops not found".
func readList(row *goquery.Selection, selector string) ([]string, bool) {
	css, attr := splitSelector(selector)
	nodes := row.Find(css)
	if nodes.Length() == 0 {
		return nil, false
	}
	out := make([]string, 0, nodes.Length())
	nodes.Each(func(_ int, n *goquery.Selection) {
		v := n.Text()
		if attr != "" {
			v, _ = n.Attr(attr)
		}
		if v = collapseSpace(v); v != "" {
			out = append(out, v)
		}
	})
	return out, true
}

func hasAny(row model.RawRow, keys ...string) bool {
	for _, k := range keys {
		if _, ok := row[k]; ok {
			return true
		}
	}
	return false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
