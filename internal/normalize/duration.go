package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	clockDuration = regexp.MustCompile(`^(\d+):([0-5]\d)$`)
	unitDuration  = regexp.MustCompile(`^(?:(\d+)\s*(?:h|hr|hrs|hour|hours))?\s*(?:(\d+)\s*(?:m|min|mins|minute|minutes))?$`)
)

// ParseDuration returns the duration in minutes. Numbers are minutes; text
// may be "7h 5m", "7 hr 5 min", "45m", "7:05" or a bare minute count.
func ParseDuration(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		return int(math.Round(x)), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, eris.Wrapf(err, "duration %q", x)
		}
		return int(math.Round(f)), nil
	case string:
		return parseDurationText(x)
	default:
		return 0, eris.Errorf("unsupported duration type %T", v)
	}
}

func parseDurationText(raw string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0, eris.New("duration is empty")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	if m := clockDuration.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mins, _ := strconv.Atoi(m[2])
		return h*60 + mins, nil
	}
	if m := unitDuration.FindStringSubmatch(s); m != nil && (m[1] != "" || m[2] != "") {
		h, _ := strconv.Atoi(m[1])
		mins, _ := strconv.Atoi(m[2])
		return h*60 + mins, nil
	}
	return 0, eris.Errorf("unrecognized duration %q", raw)
}
