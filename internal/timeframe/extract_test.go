package timeframe

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := Date(y, m, d)
	return &t
}

func clockPtr(h, m int) *time.Time {
	t := Clock(h, m, 0)
	return &t
}

func minutes(n int) *time.Duration {
	d := time.Duration(n) * time.Minute
	return &d
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     TimeFrame
		wantRest string
	}{
		{
			name:     "no time information",
			input:    "  foo@bar, baz  ",
			want:     TimeFrame{},
			wantRest: "foo@bar, baz",
		},
		{
			name:     "empty",
			input:    "",
			want:     TimeFrame{},
			wantRest: "",
		},
		{
			name:     "relative offset",
			input:    "-30 foo",
			want:     TimeFrame{Offset: minutes(30)},
			wantRest: "foo",
		},
		{
			name:     "relative offset ignores a following range",
			input:    "-30 - 12:00 foo",
			want:     TimeFrame{Offset: minutes(30)},
			wantRest: "- 12:00 foo",
		},
		{
			name:     "relative offset with too many digits",
			input:    "-1234 foo",
			want:     TimeFrame{},
			wantRest: "-1234 foo",
		},
		{
			name:     "time only",
			input:    "12:00 foo@bar",
			want:     TimeFrame{StartTime: clockPtr(12, 0)},
			wantRest: "foo@bar",
		},
		{
			name:     "date only",
			input:    "2015-04-01 foo",
			want:     TimeFrame{StartDate: datePtr(2015, 4, 1)},
			wantRest: "foo",
		},
		{
			name:     "datetime",
			input:    "2015-04-01 18:15 foo",
			want:     TimeFrame{StartDate: datePtr(2015, 4, 1), StartTime: clockPtr(18, 15)},
			wantRest: "foo",
		},
		{
			name:  "datetime range",
			input: "2014-01-05 18:15 - 2014-04-01 05:19 foobar",
			want: TimeFrame{
				StartDate: datePtr(2014, 1, 5), StartTime: clockPtr(18, 15),
				EndDate: datePtr(2014, 4, 1), EndTime: clockPtr(5, 19),
			},
			wantRest: "foobar",
		},
		{
			name:     "date range",
			input:    "2014-01-05 - 2014-04-01 foobar",
			want:     TimeFrame{StartDate: datePtr(2014, 1, 5), EndDate: datePtr(2014, 4, 1)},
			wantRest: "foobar",
		},
		{
			name:     "datetime to time",
			input:    "2014-01-05 18:15 - 19:00",
			want:     TimeFrame{StartDate: datePtr(2014, 1, 5), StartTime: clockPtr(18, 15), EndTime: clockPtr(19, 0)},
			wantRest: "",
		},
		{
			name:     "compact time range",
			input:    "12:00-14:14 foo@bar, palimpalum",
			want:     TimeFrame{StartTime: clockPtr(12, 0), EndTime: clockPtr(14, 14)},
			wantRest: "foo@bar, palimpalum",
		},
		{
			name:     "multiple spaces after dash leave the dash dangling",
			input:    "2014-01-05 -     2014-04-01",
			want:     TimeFrame{StartDate: datePtr(2014, 1, 5)},
			wantRest: "-     2014-04-01",
		},
		{
			name:     "multiple spaces before the activity",
			input:    "12:00  foo",
			want:     TimeFrame{StartTime: clockPtr(12, 0)},
			wantRest: "foo",
		},
		{
			name:     "token glued to text",
			input:    "12:00foo",
			want:     TimeFrame{},
			wantRest: "12:00foo",
		},
		{
			name:     "compact start without an end",
			input:    "12:00-foo",
			want:     TimeFrame{},
			wantRest: "12:00-foo",
		},
		{
			name:     "not anchored",
			input:    "foo 12:00",
			want:     TimeFrame{},
			wantRest: "foo 12:00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rest, err := Extract(tt.input)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Extract(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
			assert.Equal(t, tt.wantRest, rest)
		})
	}
}

func TestExtractInvalidValue(t *testing.T) {
	for _, input := range []string{"25:61 foo", "2015-13-01 foo", "12:00 - 24:30 foo", "0000-01-01 foo", "0000-01-01 12:00 foo"} {
		_, _, err := Extract(input)
		var fe *FormatError
		assert.True(t, errors.As(err, &fe), "input %q: got %v", input, err)
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		input    string
		want     string
		wantKind Kind
	}{
		{"2015-04-01 18:15", "2015-04-01 18:15", KindDateTime},
		{"2015-04-01   18:15", "2015-04-01 18:15", KindDateTime},
		{"2015-04-01", "2015-04-01 00:00", KindDate},
		{"18:15", "0000-01-01 18:15", KindTime},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, kind, err := ParseTime(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format(dateTimeLayout))
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantKind, KindOf(got))
		})
	}
}

func TestParseTimeInvalid(t *testing.T) {
	for _, input := range []string{"18:555", "18 55", "2015-04-01 18:15 foo", "", "foo", "25:00", "0000-01-01"} {
		t.Run(input, func(t *testing.T) {
			_, _, err := ParseTime(input)
			var fe *FormatError
			require.ErrorAs(t, err, &fe)
		})
	}
}

func TestTimeFrameString(t *testing.T) {
	tf := TimeFrame{StartDate: datePtr(2014, 1, 5), StartTime: clockPtr(18, 15), EndTime: clockPtr(19, 0)}
	assert.Equal(t, "2014-01-05 18:15 - 19:00", tf.String())
	assert.Equal(t, "-45", TimeFrame{Offset: minutes(45)}.String())
	assert.True(t, TimeFrame{}.IsEmpty())
	assert.False(t, tf.IsEmpty())
}
