// Package timeframe recognizes leading date/time expressions in raw facts and
// turns partial time information into concrete start/end instants.
//
// All values are naive local times: a date is a time.Time at midnight, a
// time-of-day is a time.Time on 0000-01-01.
package timeframe

import (
	"fmt"
	"strings"
	"time"
)

// Kind names the semantic type held by a TimeFrame field.
type Kind int

const (
	KindDate Kind = iota + 1
	KindTime
	KindDateTime
)

func (k Kind) String() string {
	switch k {
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindDateTime:
		return "datetime"
	default:
		return "unknown"
	}
}

// TimeFrame holds the time information supplied with a raw fact. Any field may
// be nil. Offset is mutually exclusive with the four absolute fields.
type TimeFrame struct {
	StartDate *time.Time     `json:"start_date,omitempty"`
	StartTime *time.Time     `json:"start_time,omitempty"`
	EndDate   *time.Time     `json:"end_date,omitempty"`
	EndTime   *time.Time     `json:"end_time,omitempty"`
	Offset    *time.Duration `json:"offset,omitempty"`
}

// IsEmpty reports whether no time information was supplied at all.
func (tf TimeFrame) IsEmpty() bool {
	return !tf.hasStart() && !tf.hasEnd()
}

func (tf TimeFrame) hasStart() bool {
	return tf.Offset != nil || tf.StartDate != nil || tf.StartTime != nil
}

func (tf TimeFrame) hasEnd() bool {
	return tf.EndDate != nil || tf.EndTime != nil
}

// String renders the frame roughly the way it would be typed.
func (tf TimeFrame) String() string {
	if tf.Offset != nil {
		return fmt.Sprintf("-%d", int(tf.Offset.Minutes()))
	}
	var start, end []string
	if tf.StartDate != nil {
		start = append(start, tf.StartDate.Format(dateLayout))
	}
	if tf.StartTime != nil {
		start = append(start, tf.StartTime.Format(clockLayout))
	}
	if tf.EndDate != nil {
		end = append(end, tf.EndDate.Format(dateLayout))
	}
	if tf.EndTime != nil {
		end = append(end, tf.EndTime.Format(clockLayout))
	}
	if len(end) == 0 {
		return strings.Join(start, " ")
	}
	return strings.Join(start, " ") + " - " + strings.Join(end, " ")
}

// validate checks the field kinds and the offset exclusivity.
func (tf TimeFrame) validate() error {
	checks := []struct {
		field string
		value *time.Time
		want  Kind
	}{
		{"start_date", tf.StartDate, KindDate},
		{"start_time", tf.StartTime, KindTime},
		{"end_date", tf.EndDate, KindDate},
		{"end_time", tf.EndTime, KindTime},
	}
	for _, c := range checks {
		if c.value == nil {
			continue
		}
		if got := KindOf(*c.value); got != c.want {
			return &TypeError{Field: c.field, Expected: c.want, Got: got}
		}
	}
	if tf.Offset != nil && (tf.StartDate != nil || tf.StartTime != nil || tf.EndDate != nil || tf.EndTime != nil) {
		return &FormatError{Input: tf.String(), Reason: "relative offset cannot be combined with absolute dates or times"}
	}
	if tf.Offset != nil && *tf.Offset < 0 {
		return &FormatError{Input: tf.String(), Reason: "offset must not be negative"}
	}
	return nil
}

// Date returns the local midnight of the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.Local)
}

// Clock returns a time-of-day value.
func Clock(hour, minute, second int) time.Time {
	return time.Date(0, time.January, 1, hour, minute, second, 0, time.Local)
}

// KindOf classifies t as a time-of-day, a date or a full datetime.
func KindOf(t time.Time) Kind {
	if t.Year() == 0 && t.Month() == time.January && t.Day() == 1 {
		return KindTime
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return KindDate
	}
	return KindDateTime
}

// Combine joins the calendar day of date with the clock of clock.
func Combine(date, clock time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, date.Location())
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
