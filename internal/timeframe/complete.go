package timeframe

import "time"

// Config carries the settings the completion engine depends on.
type Config struct {
	// DayStart is the time-of-day at which a tracking day begins. The zero
	// value means midnight.
	DayStart time.Time
	// Now is the clock used for "today" and relative offsets. Nil means time.Now.
	Now func() time.Time
}

// CurrentTime reads the configured clock.
func (c Config) CurrentTime() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c Config) dayStart() time.Time {
	if c.DayStart.IsZero() {
		return Clock(0, 0, 0)
	}
	return c.DayStart
}

// DayEnd returns the last second of a tracking day, one second before DayStart.
func (c Config) DayEnd() time.Time {
	end := c.dayStart().Add(-time.Second)
	return Clock(end.Hour(), end.Minute(), end.Second())
}

func (c Config) startsAtMidnight() bool {
	s := c.dayStart()
	return s.Hour() == 0 && s.Minute() == 0 && s.Second() == 0
}

// DayEndToTime returns the instant a tracking day that begins on endDate ends.
// With a non-midnight day start that instant falls on the following calendar day.
func DayEndToTime(endDate time.Time, cfg Config) time.Time {
	end := Combine(endDate, cfg.DayEnd())
	if cfg.startsAtMidnight() {
		return end
	}
	return end.AddDate(0, 0, 1)
}

// Complete resolves tf into concrete start and end instants.
//
// Missing parts fall back to today, the configured day start and the end of
// the tracking day. With partial set, a bound for which tf carries no
// information at all is returned as nil instead of being defaulted.
func Complete(tf TimeFrame, cfg Config, partial bool) (start, end *time.Time, err error) {
	if err := tf.validate(); err != nil {
		return nil, nil, err
	}
	if got := KindOf(cfg.dayStart()); got != KindTime {
		return nil, nil, &TypeError{Field: "day_start", Expected: KindTime, Got: got}
	}

	now := cfg.CurrentTime()

	if !partial || tf.hasStart() {
		s := completeStart(tf, cfg, now)
		start = &s
	}
	if !partial || tf.hasEnd() {
		e := completeEnd(tf, cfg, now, start)
		end = &e
	}
	return start, end, nil
}

func completeStart(tf TimeFrame, cfg Config, now time.Time) time.Time {
	if tf.Offset != nil {
		return now.Add(-*tf.Offset)
	}
	date := truncateDay(now)
	if tf.StartDate != nil {
		date = *tf.StartDate
	}
	clock := cfg.dayStart()
	if tf.StartTime != nil {
		clock = *tf.StartTime
	}
	return Combine(date, clock)
}

// completeEnd defaults the end date to the start's date, or to today when start
// is relative or skipped.
func completeEnd(tf TimeFrame, cfg Config, now time.Time, start *time.Time) time.Time {
	var date time.Time
	switch {
	case tf.EndDate != nil:
		date = *tf.EndDate
	case start != nil && tf.Offset == nil:
		date = truncateDay(*start)
	default:
		date = truncateDay(now)
	}
	if tf.EndTime != nil {
		return Combine(date, *tf.EndTime)
	}
	return DayEndToTime(date, cfg)
}

// ValidateRange returns start and end unchanged unless both are set and start
// lies after end.
func ValidateRange(start, end *time.Time) (*time.Time, *time.Time, error) {
	if start != nil && end != nil && start.After(*end) {
		return nil, nil, &RangeError{Start: *start, End: *end}
	}
	return start, end, nil
}

// DayBounds returns the first and last instant of the tracking day that
// begins on date.
func DayBounds(date time.Time, cfg Config) (time.Time, time.Time) {
	return Combine(date, cfg.dayStart()), DayEndToTime(date, cfg)
}

// ResolveBound parses s with ParseTime for use as a range bound. A bare date
// expands to the beginning (or, with end set, the end) of that tracking day;
// a bare time refers to today.
func ResolveBound(s string, cfg Config, end bool) (time.Time, error) {
	t, kind, err := ParseTime(s)
	if err != nil {
		return time.Time{}, err
	}
	switch kind {
	case KindDate:
		first, last := DayBounds(t, cfg)
		if end {
			return last, nil
		}
		return first, nil
	case KindTime:
		return Combine(truncateDay(cfg.CurrentTime()), t), nil
	default:
		return t, nil
	}
}

// TrackingDay returns the date of the tracking day containing t. Before the
// day start, that is the previous calendar date.
func (c Config) TrackingDay(t time.Time) time.Time {
	day := truncateDay(t)
	if t.Before(Combine(day, c.dayStart())) {
		return day.AddDate(0, 0, -1)
	}
	return day
}
