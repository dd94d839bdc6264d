package timeframe

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout            = "2006-01-02"
	clockLayout           = "15:04"
	dateTimeLayout        = "2006-01-02 15:04"
	dateTimeSecondsLayout = "2006-01-02 15:04:05"
)

// point is the value of a single recognized token.
type point struct {
	date   *time.Time
	clock  *time.Time
	offset *time.Duration
}

// rule pairs an anchored token pattern with the constructor for its value.
type rule struct {
	name    string
	pattern *regexp.Regexp
	build   func(token string) (point, error)
}

// Rules are tried in order; the first whose token is followed by a valid
// separator wins, so a date is never read as a bare time.
var (
	relativeRule = rule{"relative", regexp.MustCompile(`^-\d{1,3}`), buildRelative}
	dateTimeRule = rule{"datetime", regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}`), buildDateTime}
	dateRule     = rule{"date", regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`), buildDate}
	clockRule    = rule{"time", regexp.MustCompile(`^\d{2}:\d{2}`), buildClock}

	startRules = []rule{relativeRule, dateTimeRule, dateRule, clockRule}
	endRules   = []rule{dateTimeRule, dateRule, clockRule}
)

func buildRelative(token string) (point, error) {
	minutes, err := strconv.Atoi(strings.TrimPrefix(token, "-"))
	if err != nil {
		return point{}, &FormatError{Input: token, Reason: "bad relative offset"}
	}
	offset := time.Duration(minutes) * time.Minute
	return point{offset: &offset}, nil
}

func buildDateTime(token string) (point, error) {
	t, err := time.ParseInLocation(dateTimeLayout, token, time.Local)
	if err != nil {
		return point{}, &FormatError{Input: token, Reason: "not a valid datetime"}
	}
	if t.Year() == 0 {
		return point{}, &FormatError{Input: token, Reason: "year 0000 is reserved for times of day"}
	}
	date := truncateDay(t)
	clock := Clock(t.Hour(), t.Minute(), 0)
	return point{date: &date, clock: &clock}, nil
}

func buildDate(token string) (point, error) {
	t, err := time.ParseInLocation(dateLayout, token, time.Local)
	if err != nil {
		return point{}, &FormatError{Input: token, Reason: "not a valid date"}
	}
	if t.Year() == 0 {
		return point{}, &FormatError{Input: token, Reason: "year 0000 is reserved for times of day"}
	}
	return point{date: &t}, nil
}

func buildClock(token string) (point, error) {
	t, err := time.ParseInLocation(clockLayout, token, time.Local)
	if err != nil {
		return point{}, &FormatError{Input: token, Reason: "not a valid time"}
	}
	return point{clock: &t}, nil
}

// matchToken finds the first rule whose token ends at a separator. A single
// space or the end of text is always a separator; a bare '-' is one only when
// allowDash is set, in which case rest still starts with the dash.
func matchToken(rules []rule, text string, allowDash bool) (p point, rest string, dash bool, ok bool, err error) {
	for _, r := range rules {
		token := r.pattern.FindString(text)
		if token == "" {
			continue
		}
		after := text[len(token):]
		switch {
		case after == "":
		case after[0] == ' ':
			after = after[1:]
		case allowDash && after[0] == '-':
			dash = true
		default:
			continue
		}
		p, err = r.build(token)
		if err != nil {
			return point{}, "", false, false, err
		}
		return p, after, dash, true, nil
	}
	return point{}, text, false, false, nil
}

// Extract reads a leading time expression from text and returns it together
// with the unconsumed remainder. Text without a leading time expression yields
// an empty TimeFrame and the whole (trimmed) text.
func Extract(text string) (TimeFrame, string, error) {
	text = strings.TrimSpace(text)

	start, rest, dash, ok, err := matchToken(startRules, text, true)
	if err != nil {
		return TimeFrame{}, "", err
	}
	if !ok {
		return TimeFrame{}, text, nil
	}
	if start.offset != nil {
		if dash {
			// "-30-..." is not a relative offset.
			return TimeFrame{}, text, nil
		}
		return TimeFrame{Offset: start.offset}, strings.TrimSpace(rest), nil
	}

	tf := TimeFrame{StartDate: start.date, StartTime: start.clock}

	var candidate string
	switch {
	case dash:
		candidate = rest[1:]
	case strings.HasPrefix(rest, "- "):
		candidate = rest[2:]
	default:
		return tf, strings.TrimSpace(rest), nil
	}

	end, endRest, _, ok, err := matchToken(endRules, candidate, false)
	if err != nil {
		return TimeFrame{}, "", err
	}
	if !ok {
		if dash {
			// A start glued to something that is not an end, e.g. "12:00-foo".
			return TimeFrame{}, text, nil
		}
		return tf, strings.TrimSpace(rest), nil
	}
	tf.EndDate = end.date
	tf.EndTime = end.clock
	return tf, strings.TrimSpace(endRest), nil
}

// ParseTime parses a standalone "YYYY-MM-DD HH:MM", "YYYY-MM-DD" or "HH:MM"
// string and reports which of the three it was.
func ParseTime(s string) (time.Time, Kind, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 || len(fields) > 2 {
		return time.Time{}, 0, &FormatError{Input: s, Reason: "expected a date, a time or a date and a time"}
	}
	normalized := strings.Join(fields, " ")

	for _, r := range endRules {
		if r.pattern.FindString(normalized) != normalized {
			continue
		}
		p, err := r.build(normalized)
		if err != nil {
			return time.Time{}, 0, err
		}
		switch {
		case p.date != nil && p.clock != nil:
			return Combine(*p.date, *p.clock), KindDateTime, nil
		case p.date != nil:
			return *p.date, KindDate, nil
		default:
			return *p.clock, KindTime, nil
		}
	}
	return time.Time{}, 0, &FormatError{Input: s, Reason: "expected YYYY-MM-DD HH:MM, YYYY-MM-DD or HH:MM"}
}
