package report

import (
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/pbaille/timelog/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFacts() []domain.Fact {
	id := int64(7)
	start := time.Date(2015, 12, 10, 12, 0, 0, 0, time.Local)
	end := time.Date(2015, 12, 10, 14, 14, 0, 0, time.Local)
	return []domain.Fact{
		{
			ID:          &id,
			Activity:    domain.Activity{Name: "coding", Category: &domain.Category{Name: "work"}},
			Start:       start,
			End:         &end,
			Description: "fixed bug; tests, too",
			Tags:        []domain.Tag{{Name: "urgent"}},
		},
		{
			Activity: domain.Activity{Name: "reading"},
			Start:    end.Add(time.Hour),
		},
	}
}

func TestNew(t *testing.T) {
	for _, format := range Formats() {
		w, err := New(strings.ToUpper(format))
		require.NoError(t, err)
		assert.NotEmpty(t, w.ContentType())
	}
	_, err := New("pdf")
	require.Error(t, err)
	assert.Equal(t, []string{"ical", "tsv", "xml"}, Formats())
}

func TestTSVWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TSVWriter{}.WriteFacts(&buf, sampleFacts()))

	r := csv.NewReader(&buf)
	r.Comma = '\t'
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "start", records[0][0])
	assert.Equal(t, []string{
		"2015-12-10 12:00:00", "2015-12-10 14:14:00", "coding", "work",
		"fixed bug; tests, too", "urgent", "134",
	}, records[1])
	assert.Equal(t, "", records[2][1])
	assert.Equal(t, "", records[2][6])
}

func TestICalWriter(t *testing.T) {
	stamp := time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
	facts := sampleFacts()

	var buf bytes.Buffer
	require.NoError(t, ICalWriter{Now: func() time.Time { return stamp }}.WriteFacts(&buf, facts))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR\r\n"))
	assert.True(t, strings.HasSuffix(out, "END:VCALENDAR\r\n"))
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
	assert.Equal(t, 1, strings.Count(out, "DTEND:"))
	assert.Contains(t, out, "DTSTART:20151210T120000\r\n")
	assert.Contains(t, out, "DTSTAMP:20160101T000000Z\r\n")
	assert.Contains(t, out, "CATEGORIES:work\r\n")
	assert.Contains(t, out, `DESCRIPTION:fixed bug\; tests\, too #urgent`)
	assert.Contains(t, out, "UID:"+FactUID(facts[0]).String())

	cal, err := ics.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 2)
	assert.Equal(t, FactUID(facts[0]).String(), events[0].Id())
	assert.Equal(t, "coding", events[0].GetProperty(ics.ComponentPropertySummary).Value)
	assert.Nil(t, events[1].GetProperty(ics.ComponentPropertyDtEnd))

	assert.Equal(t, FactUID(facts[0]), FactUID(facts[0]))
	assert.NotEqual(t, FactUID(facts[1]), FactUID(facts[1]))
}

func TestXMLWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, XMLWriter{}.WriteFacts(&buf, sampleFacts()))
	assert.True(t, strings.HasPrefix(buf.String(), xml.Header))

	var doc xmlFacts
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Facts, 2)

	first := doc.Facts[0]
	assert.Equal(t, int64(7), first.ID)
	assert.Equal(t, "coding", first.Activity)
	assert.Equal(t, "work", first.Category)
	assert.Equal(t, "134", first.Duration)
	assert.Equal(t, []string{"urgent"}, first.Tags)

	second := doc.Facts[1]
	assert.Empty(t, second.End)
	assert.Empty(t, second.Tags)
}
