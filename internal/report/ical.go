package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/pbaille/timelog/internal/domain"
)

// Facts carry naive local times, written as floating DATE-TIME values.
const icalLayout = "20060102T150405"

// factNamespace seeds the name-based UIDs of exported events.
var factNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("timelog:fact"))

// ICalWriter writes a VCALENDAR with one VEVENT per fact. Ongoing facts get
// no DTEND.
type ICalWriter struct {
	// Now stamps DTSTAMP; nil means time.Now.
	Now func() time.Time
}

func (ICalWriter) ContentType() string { return "text/calendar" }

func (iw ICalWriter) WriteFacts(w io.Writer, facts []domain.Fact) error {
	now := time.Now
	if iw.Now != nil {
		now = iw.Now
	}
	stamp := now()

	cal := ics.NewCalendarFor("timelog")
	for _, f := range facts {
		event := cal.AddEvent(FactUID(f).String())
		event.SetDtStampTime(stamp)
		event.SetProperty(ics.ComponentPropertyDtStart, f.Start.Format(icalLayout))
		if f.End != nil {
			event.SetProperty(ics.ComponentPropertyDtEnd, f.End.Format(icalLayout))
		}
		event.SetSummary(f.Activity.Name)
		if c := categoryName(f); c != "" {
			event.AddCategory(c)
		}
		if f.Description != "" || len(f.Tags) > 0 {
			desc := f.Description
			for _, t := range f.Tags {
				desc = strings.TrimSpace(desc + " #" + t.Name)
			}
			event.SetDescription(desc)
		}
	}

	if err := cal.SerializeTo(w, ics.WithNewLineWindows); err != nil {
		return fmt.Errorf("write calendar: %w", err)
	}
	return nil
}

// FactUID is stable for persisted facts and random for unsaved ones.
func FactUID(f domain.Fact) uuid.UUID {
	if f.ID == nil {
		return uuid.New()
	}
	return uuid.NewSHA1(factNamespace, []byte(strconv.FormatInt(*f.ID, 10)))
}
