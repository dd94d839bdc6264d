package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/pbaille/timelog/internal/domain"
	"github.com/pbaille/timelog/internal/timeframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0min", formatDuration(0))
	assert.Equal(t, "45min", formatDuration(45*time.Minute))
	assert.Equal(t, "2h 14min", formatDuration(2*time.Hour+14*time.Minute))
	assert.Equal(t, "1h 00min", formatDuration(59*time.Minute+45*time.Second))
}

func TestPrintFacts(t *testing.T) {
	var buf bytes.Buffer
	printFacts(&buf, nil, time.Now())
	assert.Equal(t, "No facts found.\n", buf.String())

	id := int64(3)
	start := time.Date(2015, 12, 10, 12, 0, 0, 0, time.Local)
	end := start.Add(2*time.Hour + 14*time.Minute)
	buf.Reset()
	printFacts(&buf, []domain.Fact{{
		ID:       &id,
		Activity: domain.Activity{Name: "foo", Category: &domain.Category{Name: "bar"}},
		Start:    start,
		End:      &end,
	}}, end)
	assert.Contains(t, buf.String(), "   3  2015-12-10 12:00 - 2015-12-10 14:14 foo@bar  (2h 14min)")
	assert.Contains(t, buf.String(), "Total: 2h 14min")
}

func TestRangeFilter(t *testing.T) {
	tf := timeframe.Config{Now: func() time.Time { return time.Date(2015, 12, 10, 12, 30, 0, 0, time.Local) }}

	filter, err := rangeFilter(tf, "2015-12-01", "2015-12-02")
	require.NoError(t, err)
	require.NotNil(t, filter.Start)
	require.NotNil(t, filter.End)
	assert.True(t, filter.Start.Equal(time.Date(2015, 12, 1, 0, 0, 0, 0, time.Local)))
	assert.Equal(t, 2, filter.End.Day())

	filter, err = rangeFilter(tf, "", "")
	require.NoError(t, err)
	assert.Nil(t, filter.Start)
	assert.Nil(t, filter.End)

	_, err = rangeFilter(tf, "soon", "")
	assert.ErrorContains(t, err, "--from")
}

func TestDefaultDay(t *testing.T) {
	night := time.Date(2015, 12, 10, 2, 0, 0, 0, time.Local)
	clock := func() time.Time { return night }

	assert.Equal(t, "2015-12-10", defaultDay(timeframe.Config{Now: clock}))
	assert.Equal(t, "2015-12-09", defaultDay(timeframe.Config{DayStart: timeframe.Clock(5, 30, 0), Now: clock}))
}
