package rawfact

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pbaille/timelog/internal/timeframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegment(t *testing.T) {
	tests := []struct {
		input        string
		wantActivity string
		wantCategory string
		wantDesc     string
	}{
		{"foo", "foo", "", ""},
		{"  foo bar  ", "foo bar", "", ""},
		{"foo@bar", "foo", "bar", ""},
		{"foo @ bar , baz", "foo", "bar", "baz"},
		{"foo@, something", "foo", "", "something"},
		{"foo@bar, mail me @home", "foo", "bar", "mail me @home"},
		{"foo@bar, one, two, three", "foo", "bar", "one, two, three"},
		{"foo, not a description", "foo, not a description", "", ""},
		{"", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			activity, category, desc, err := Segment(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantActivity, activity)
			assert.Equal(t, tt.wantCategory, category)
			assert.Equal(t, tt.wantDesc, desc)
		})
	}
}

func TestSegmentTooManyAt(t *testing.T) {
	_, _, _, err := Segment("foo@bar@baz, desc")
	var fe *timeframe.FormatError
	require.ErrorAs(t, err, &fe)
}

func TestSegmentDoesNotReadTime(t *testing.T) {
	activity, _, _, err := Segment("12:00 foo")
	require.NoError(t, err)
	assert.Equal(t, "12:00 foo", activity)
}

func TestParse(t *testing.T) {
	raw := "12:00-14:14 foo@bar, palimpalum"
	got, err := Parse(raw)
	require.NoError(t, err)

	tf, _, err := timeframe.Extract(raw)
	require.NoError(t, err)

	if diff := cmp.Diff(tf, got.TimeInfo); diff != "" {
		t.Errorf("time info mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "foo", got.Activity)
	assert.Equal(t, "bar", got.Category)
	assert.Equal(t, "palimpalum", got.Description)
}

func TestParseWithoutTime(t *testing.T) {
	got, err := Parse("coding@work")
	require.NoError(t, err)
	assert.True(t, got.TimeInfo.IsEmpty())
	assert.Equal(t, "coding", got.Activity)
	assert.Equal(t, "work", got.Category)
}

func TestSplitTags(t *testing.T) {
	tests := []struct {
		input    string
		wantTags []string
		wantRest string
	}{
		{"fixed bug #urgent", []string{"urgent"}, "fixed bug"},
		{"fixed #1 bug", nil, "fixed #1 bug"},
		{"#a #b #a", []string{"a", "b"}, ""},
		{"plain", nil, "plain"},
		{"", nil, ""},
		{"trailing # sign", nil, "trailing # sign"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tags, rest := SplitTags(tt.input)
			assert.Equal(t, tt.wantTags, tags)
			assert.Equal(t, tt.wantRest, rest)
		})
	}
}

func TestParseFact(t *testing.T) {
	now := time.Date(2015, 12, 10, 12, 30, 45, 0, time.Local)
	cfg := timeframe.Config{DayStart: timeframe.Clock(5, 30, 0), Now: func() time.Time { return now }}

	fact, err := ParseFact("12:00-14:14 coding@work, fixed bug #urgent", cfg)
	require.NoError(t, err)
	assert.Equal(t, "coding", fact.Activity.Name)
	require.NotNil(t, fact.Activity.Category)
	assert.Equal(t, "work", fact.Activity.Category.Name)
	assert.Nil(t, fact.Activity.Category.ID)
	assert.Equal(t, "fixed bug", fact.Description)
	assert.Equal(t, []string{"urgent"}, fact.TagNames())
	assert.Equal(t, "2015-12-10 12:00", fact.Start.Format("2006-01-02 15:04"))
	require.NotNil(t, fact.End)
	assert.Equal(t, "2015-12-10 14:14", fact.End.Format("2006-01-02 15:04"))
}

func TestParseFactOngoing(t *testing.T) {
	now := time.Date(2015, 12, 10, 12, 30, 45, 0, time.Local)
	cfg := timeframe.Config{Now: func() time.Time { return now }}

	fact, err := ParseFact("foo", cfg)
	require.NoError(t, err)
	assert.True(t, fact.IsOngoing())
	assert.Nil(t, fact.Activity.Category)
	assert.True(t, now.Equal(fact.Start))

	fact, err = ParseFact("-30 foo@bar", cfg)
	require.NoError(t, err)
	assert.True(t, fact.IsOngoing())
	assert.Equal(t, "2015-12-10 12:00:45", fact.Start.Format("2006-01-02 15:04:05"))
}

func TestParseFactErrors(t *testing.T) {
	cfg := timeframe.Config{}

	_, err := ParseFact("14:00-12:00 foo", cfg)
	var re *timeframe.RangeError
	require.ErrorAs(t, err, &re)

	_, err = ParseFact("12:00 @bar", cfg)
	require.Error(t, err)

	_, err = ParseFact("99:99 foo", cfg)
	var fe *timeframe.FormatError
	require.ErrorAs(t, err, &fe)
}

func TestBuildDeduplicatesTags(t *testing.T) {
	start := timeframe.Date(2015, 12, 10)
	clock := timeframe.Clock(9, 0, 0)
	rf := RawFact{TimeInfo: timeframe.TimeFrame{StartDate: &start, StartTime: &clock}, Activity: "foo"}

	fact, err := Build(rf, []string{"a", "b", "a"}, timeframe.Config{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, fact.TagNames())
	assert.Equal(t, "2015-12-10 09:00", fact.Start.Format("2006-01-02 15:04"))
}
