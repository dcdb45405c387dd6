package normalize

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/sells-group/flightscan/internal/model"
)

// symbolCurrencies maps price symbols to candidate ISO codes. The first code
// is used unless the configured default is another candidate.
var symbolCurrencies = map[string][]string{
	"US$": {"USD"},
	"A$":  {"AUD"},
	"AU$": {"AUD"},
	"C$":  {"CAD"},
	"CA$": {"CAD"},
	"NZ$": {"NZD"},
	"HK$": {"HKD"},
	"S$":  {"SGD"},
	"R$":  {"BRL"},
	"$":   {"USD", "AUD", "CAD", "NZD", "HKD", "SGD", "MXN"},
	"€":   {"EUR"},
	"£":   {"GBP"},
	"¥":   {"JPY", "CNY"},
	"₹":   {"INR"},
	"₩":   {"KRW"},
	"฿":   {"THB"},
	"KR":  {"SEK", "NOK", "DKK", "ISK"},
	"FR":  {"CHF"},
}

// ParsePrice converts a raw price into a Price. explicit is the row's own
// currency field and wins over any symbol in the text. defaultCurrency is used
// when neither yields a currency.
func ParsePrice(v any, explicit, defaultCurrency string) (model.Price, error) {
	var (
		amount   decimal.Decimal
		inferred string
		err      error
	)
	switch x := v.(type) {
	case nil:
		return model.Price{}, eris.New("price is empty")
	case decimal.Decimal:
		amount = x
	case float64:
		amount = decimal.NewFromFloat(x)
	case float32:
		amount = decimal.NewFromFloat32(x)
	case int:
		amount = decimal.NewFromInt(int64(x))
	case int64:
		amount = decimal.NewFromInt(x)
	case json.Number:
		if amount, err = decimal.NewFromString(x.String()); err != nil {
			return model.Price{}, eris.Wrapf(err, "price %q", x)
		}
	case string:
		if amount, inferred, err = parsePriceText(x, defaultCurrency); err != nil {
			return model.Price{}, err
		}
	default:
		return model.Price{}, eris.Errorf("unsupported price type %T", v)
	}

	code, err := pickCurrency(explicit, inferred, defaultCurrency)
	if err != nil {
		return model.Price{}, err
	}
	return model.Price{Amount: amount, Currency: code}, nil
}

func pickCurrency(explicit, inferred, defaultCurrency string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if code, ok := isoCode(explicit); ok {
			return code, nil
		}
		if code, ok := symbolCode(explicit, defaultCurrency); ok {
			return code, nil
		}
		return "", eris.Errorf("unknown currency %q", explicit)
	}
	if inferred != "" {
		return inferred, nil
	}
	if defaultCurrency != "" {
		if code, ok := isoCode(defaultCurrency); ok {
			return code, nil
		}
		return "", eris.Errorf("unknown default currency %q", defaultCurrency)
	}
	return "", eris.New("no currency in price and no default configured")
}

// parsePriceText splits "US$ 1,234.50" style text into an amount and the
// currency its symbol or code implies.
func parsePriceText(s, defaultCurrency string) (decimal.Decimal, string, error) {
	s = strings.TrimSpace(s)
	first := strings.IndexFunc(s, isDigit)
	last := strings.LastIndexFunc(s, isDigit)
	if first < 0 {
		return decimal.Zero, "", eris.Errorf("no digits in price %q", s)
	}

	prefix, number, suffix := s[:first], s[first:last+1], s[last+1:]
	negative := false
	for _, minus := range []string{"-", "−"} {
		if strings.Contains(prefix, minus) {
			negative = true
			prefix = strings.ReplaceAll(prefix, minus, "")
		}
	}
	// A trailing decimal separator with no digits after it, as in "12.".
	suffix = strings.TrimLeft(suffix, ".,")

	token := strings.TrimSpace(strings.TrimSpace(prefix) + strings.TrimSpace(suffix))
	var code string
	if token != "" {
		var ok bool
		if code, ok = symbolCode(token, defaultCurrency); !ok {
			if code, ok = isoCode(token); !ok {
				return decimal.Zero, "", eris.Errorf("unknown currency %q in price %q", token, s)
			}
		}
	}

	digits, err := canonicalNumber(number)
	if err != nil {
		return decimal.Zero, "", eris.Wrapf(err, "price %q", s)
	}
	amount, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Zero, "", eris.Wrapf(err, "price %q", s)
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, code, nil
}

// canonicalNumber rewrites a locale-formatted number with '.' as the only
// decimal separator and no grouping.
func canonicalNumber(s string) (string, error) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case isDigit(r), r == '.', r == ',':
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '\'', r == '’':
			// grouping
		default:
			return "", eris.Errorf("unexpected %q in number", r)
		}
	}
	n := b.String()

	dot, comma := strings.LastIndex(n, "."), strings.LastIndex(n, ",")
	switch {
	case dot >= 0 && comma >= 0:
		decimalSep, groupSep := ".", ","
		if comma > dot {
			decimalSep, groupSep = ",", "."
		}
		n = strings.ReplaceAll(n, groupSep, "")
		if strings.Count(n, decimalSep) > 1 {
			return "", eris.Errorf("ambiguous separators in %q", s)
		}
		return strings.Replace(n, decimalSep, ".", 1), nil
	case dot >= 0 || comma >= 0:
		sep := "."
		if comma >= 0 {
			sep = ","
		}
		idx := strings.LastIndex(n, sep)
		if strings.Count(n, sep) > 1 || len(n)-idx-1 == 3 {
			return strings.ReplaceAll(n, sep, ""), nil
		}
		return strings.Replace(n, sep, ".", 1), nil
	default:
		return n, nil
	}
}

func symbolCode(token, defaultCurrency string) (string, bool) {
	candidates, ok := symbolCurrencies[token]
	if !ok {
		candidates, ok = symbolCurrencies[strings.ToUpper(token)]
	}
	if !ok {
		return "", false
	}
	def := strings.ToUpper(strings.TrimSpace(defaultCurrency))
	for _, c := range candidates {
		if c == def {
			return c, true
		}
	}
	return candidates[0], true
}

func isoCode(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 3 {
		return "", false
	}
	unit, err := currency.ParseISO(s)
	if err != nil {
		return "", false
	}
	return unit.String(), true
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
