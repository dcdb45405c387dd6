package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	stopSeparators = regexp.MustCompile(`[,;|/]`)
	stopCount      = regexp.MustCompile(`^(\d+)\s*stops?$`)
)

var nonstopWords = map[string]bool{"": true, "nonstop": true, "non-stop": true, "direct": true, "none": true}

// ParseStops returns the ordered layover codes. Absent, zero and "nonstop"
// values mean no stops. A positive count with no codes is rejected.
func ParseStops(v any) ([]string, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return stopCodes(x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, fmt.Sprint(e))
		}
		return stopCodes(parts)
	case int:
		return countOnly(x)
	case int64:
		return countOnly(int(x))
	case float64:
		return countOnly(int(x))
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		if nonstopWords[s] {
			return nil, nil
		}
		if m := stopCount.FindStringSubmatch(s); m != nil {
			n, _ := strconv.Atoi(m[1])
			return countOnly(n)
		}
		return stopCodes(stopSeparators.Split(x, -1))
	default:
		return nil, eris.Errorf("unsupported stops type %T", v)
	}
}

func countOnly(n int) ([]string, error) {
	if n == 0 {
		return nil, nil
	}
	return nil, eris.Errorf("%d stops reported without airport codes", n)
}

func stopCodes(parts []string) ([]string, error) {
	var out []string
	for _, p := range parts {
		code := strings.ToUpper(strings.TrimSpace(p))
		if code == "" {
			continue
		}
		if !isCode(code) {
			return nil, eris.Errorf("stop %q is not an airport code", p)
		}
		out = append(out, code)
	}
	return out, nil
}

func isCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
