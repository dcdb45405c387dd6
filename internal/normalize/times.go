package normalize

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

var zonedLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04Z07:00"}

var localLayouts = []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02 15:04"}

var offsetPattern = regexp.MustCompile(`^([+-])(\d{1,2}):?(\d{2})?$`)

// ParseTimestamp reads a timestamp that must carry a UTC offset, either
// inline or through the separate offset value. It returns a *NormalizationError
// of kind timezone when no offset can be resolved.
func ParseTimestamp(field string, v, offset any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return time.Time{}, reject(KindInvalidValue, field, eris.New("zero time"))
		}
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range zonedLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		for _, layout := range localLayouts {
			t, err := time.Parse(layout, s)
			if err != nil {
				continue
			}
			if offset == nil {
				return time.Time{}, reject(KindTimezone, field, eris.Errorf("local time %q has no UTC offset", s))
			}
			secs, err := ParseOffset(offset)
			if err != nil {
				return time.Time{}, reject(KindTimezone, field, err)
			}
			zone := time.FixedZone("", secs)
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, zone), nil
		}
		return time.Time{}, reject(KindInvalidValue, field, eris.Errorf("unrecognized timestamp %q", s))
	default:
		return time.Time{}, reject(KindInvalidValue, field, eris.Errorf("unsupported timestamp type %T", v))
	}
}

// ParseOffset returns a UTC offset in seconds from "+05:30", "-0400", "+5",
// "Z"/"UTC", or a number of minutes.
func ParseOffset(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x * 60, checkOffset(x * 60)
	case int64:
		return int(x) * 60, checkOffset(int(x) * 60)
	case float64:
		secs := int(x * 60)
		return secs, checkOffset(secs)
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, eris.Wrapf(err, "offset %q", x)
		}
		return int(n) * 60, checkOffset(int(n) * 60)
	case string:
		s := strings.ToUpper(strings.TrimSpace(x))
		s = strings.TrimPrefix(strings.TrimPrefix(s, "UTC"), "GMT")
		if s == "" || s == "Z" {
			return 0, nil
		}
		m := offsetPattern.FindStringSubmatch(s)
		if m == nil {
			return 0, eris.Errorf("unrecognized UTC offset %q", x)
		}
		h, _ := strconv.Atoi(m[2])
		mins := 0
		if m[3] != "" {
			mins, _ = strconv.Atoi(m[3])
		}
		secs := h*3600 + mins*60
		if m[1] == "-" {
			secs = -secs
		}
		return secs, checkOffset(secs)
	default:
		return 0, eris.Errorf("unsupported offset type %T", v)
	}
}

func checkOffset(secs int) error {
	if secs < -12*3600 || secs > 14*3600 {
		return eris.Errorf("UTC offset %ds out of range", secs)
	}
	return nil
}
