package content

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// absoluteLayouts are tried in order for non-relative date literals.
var absoluteLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"Jan 2, 2006",
	"01/02/2006",
}

// ParseDate parses a date literal relative to the current time.
//
// Accepted forms:
//   - ISO calendar date ("2024-01-02") and a handful of common absolute
//     layouts, resolved at local midnight where the layout has no time part
//   - relative keywords "now", "today", "yesterday", "tomorrow", each with
//     an optional "+N" or "-N" day suffix ("today+7" is one week from
//     today at local midnight; "now" is the current instant)
func ParseDate(literal string) (time.Time, error) {
	return ParseDateAt(literal, time.Now())
}

// ParseDateAt is ParseDate with an explicit reference instant, so relative
// keywords resolve deterministically in tests.
func ParseDateAt(literal string, now time.Time) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(literal))
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date literal")
	}

	if t, ok, err := parseRelative(s, now); ok {
		return t, err
	}

	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, literal, now.Location()); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date literal %q", literal)
}

// parseRelative handles the keyword forms. Returns ok=false when the
// literal does not start with a keyword so absolute layouts get a chance.
func parseRelative(s string, now time.Time) (time.Time, bool, error) {
	var base time.Time
	var rest string

	midnight := func(t time.Time) time.Time {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	}

	switch {
	case strings.HasPrefix(s, "now"):
		base, rest = now, s[len("now"):]
	case strings.HasPrefix(s, "today"):
		base, rest = midnight(now), s[len("today"):]
	case strings.HasPrefix(s, "yesterday"):
		base, rest = midnight(now).AddDate(0, 0, -1), s[len("yesterday"):]
	case strings.HasPrefix(s, "tomorrow"):
		base, rest = midnight(now).AddDate(0, 0, 1), s[len("tomorrow"):]
	default:
		return time.Time{}, false, nil
	}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return base, true, nil
	}

	sign := 0
	switch rest[0] {
	case '+':
		sign = 1
	case '-':
		sign = -1
	default:
		return time.Time{}, true, fmt.Errorf("unparseable date offset %q", rest)
	}

	days, err := strconv.Atoi(strings.TrimSpace(rest[1:]))
	if err != nil {
		return time.Time{}, true, fmt.Errorf("unparseable date offset %q: %w", rest, err)
	}
	return base.AddDate(0, 0, sign*days), true, nil
}
