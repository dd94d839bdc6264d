package timeframe

import (
	"fmt"
	"time"
)

// FormatError reports text that does not follow a supported time grammar.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid format %q: %s", e.Input, e.Reason)
}

// TypeError reports a TimeFrame field holding the wrong kind of value.
type TypeError struct {
	Field    string
	Expected Kind
	Got      Kind
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Field, e.Expected, e.Got)
}

// RangeError reports a start that lies after its end.
type RangeError struct {
	Start time.Time
	End   time.Time
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("start after end: %s > %s",
		e.Start.Format(dateTimeSecondsLayout), e.End.Format(dateTimeSecondsLayout))
}
