package recur

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"

	"evparse/internal/recognize"
)

func TestRecognize(t *testing.T) {
	tests := []struct {
		text string
		want Rule
	}{
		{"daily standup at 9", Rule{Freq: rrule.DAILY, Interval: 1}},
		{"weekly review", Rule{Freq: rrule.WEEKLY, Interval: 1}},
		{"rent due monthly", Rule{Freq: rrule.MONTHLY, Interval: 1}},
		{"Checkup annually", Rule{Freq: rrule.YEARLY, Interval: 1}},
		{"water plants every day", Rule{Freq: rrule.DAILY, Interval: 1}},
		{"each month", Rule{Freq: rrule.MONTHLY, Interval: 1}},
		{"every 2 weeks", Rule{Freq: rrule.WEEKLY, Interval: 2}},
		{"every 3 days", Rule{Freq: rrule.DAILY, Interval: 3}},
		{"every 1 year", Rule{Freq: rrule.YEARLY, Interval: 1}},
		{"Yoga every monday", Rule{Freq: rrule.WEEKLY, Interval: 1, Weekdays: []time.Weekday{time.Monday}}},
		{
			"Gym every mon, wed and fri at 6",
			Rule{Freq: rrule.WEEKLY, Interval: 1, Weekdays: []time.Weekday{time.Monday, time.Wednesday, time.Friday}},
		},
		{
			"every tuesday and thursday",
			Rule{Freq: rrule.WEEKLY, Interval: 1, Weekdays: []time.Weekday{time.Tuesday, time.Thursday}},
		},
		{
			"standup every weekday",
			Rule{Freq: rrule.WEEKLY, Interval: 1, Weekdays: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}},
		},
		{
			"brunch every weekend",
			Rule{Freq: rrule.WEEKLY, Interval: 1, Weekdays: []time.Weekday{time.Saturday, time.Sunday}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := Recognize(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecognize_Absent(t *testing.T) {
	for _, text := range []string{"Lunch at noon next Friday", "help each other", "every so often", ""} {
		_, err := Recognize(text)
		assert.True(t, recognize.IsNotFound(err), text)
	}

	_, err := Recognize("every 0 days")
	assert.True(t, recognize.IsMalformed(err))
}

func TestRule_String(t *testing.T) {
	assert.Equal(t, "FREQ=DAILY", Rule{Freq: rrule.DAILY, Interval: 1}.String())
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO", Rule{Freq: rrule.WEEKLY, Interval: 1, Weekdays: []time.Weekday{time.Monday}}.String())

	s := Rule{Freq: rrule.WEEKLY, Interval: 2, Weekdays: []time.Weekday{time.Monday, time.Wednesday}}.String()
	assert.Contains(t, s, "FREQ=WEEKLY")
	assert.Contains(t, s, "INTERVAL=2")
	assert.Contains(t, s, "BYDAY=MO,WE")
}

func TestRule_RRule(t *testing.T) {
	// Wednesday
	start := time.Date(2020, time.June, 3, 18, 0, 0, 0, time.UTC)
	rule := Rule{Freq: rrule.WEEKLY, Interval: 1, Weekdays: []time.Weekday{time.Monday}}

	rr, err := rule.RRule(start)
	require.NoError(t, err)

	got := rr.Between(start, start.AddDate(0, 0, 14), true)
	require.Len(t, got, 2)
	assert.True(t, got[0].Equal(time.Date(2020, time.June, 8, 18, 0, 0, 0, time.UTC)))
	assert.True(t, got[1].Equal(time.Date(2020, time.June, 15, 18, 0, 0, 0, time.UTC)))

	daily, err := Rule{Freq: rrule.DAILY}.RRule(start)
	require.NoError(t, err)
	assert.Len(t, daily.Between(start, start.AddDate(0, 0, 2), true), 3)
}
