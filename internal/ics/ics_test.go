package ics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evparse/internal/model"
)

var stamp = time.Date(2020, time.June, 5, 10, 0, 0, 0, time.UTC)

func utc(m time.Month, d, hour, min int) time.Time {
	return time.Date(2020, m, d, hour, min, 0, 0, time.UTC)
}

func sampleEvents() []model.Event {
	return []model.Event{
		{UID: "lunch-1", Summary: "Lunch", Start: utc(time.June, 10, 13, 0), End: utc(time.June, 10, 14, 0)},
		{UID: "july-4", Summary: "America's Birthday", AllDay: true, Start: utc(time.July, 4, 0, 0), End: utc(time.July, 4, 0, 0)},
		{UID: "yoga", Summary: "Yoga", Start: utc(time.June, 8, 18, 0), End: utc(time.June, 8, 19, 0), RRule: "FREQ=WEEKLY;BYDAY=MO"},
	}
}

func TestEncode(t *testing.T) {
	out := Encode(sampleEvents(), stamp)

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR"))
	assert.Contains(t, out, "SUMMARY:Lunch")
	assert.Contains(t, out, "DTSTART:20200610T130000Z")
	assert.Contains(t, out, "DTEND:20200610T140000Z")
	assert.Contains(t, out, "DTSTART;VALUE=DATE:20200704")
	assert.Contains(t, out, "DTEND;VALUE=DATE:20200705")
	assert.Contains(t, out, "RRULE:FREQ=WEEKLY;BYDAY=MO")
	assert.Contains(t, out, "UID:lunch-1")
	assert.Equal(t, 3, strings.Count(out, "BEGIN:VEVENT"))
}

func TestEncode_AssignsUID(t *testing.T) {
	out := Encode([]model.Event{{Summary: "Call", Start: stamp, End: stamp.Add(time.Hour)}}, stamp)

	events, err := ParseICS([]byte(out), time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Len(t, events[0].UID, 36)
}

func TestParseICS_RoundTrip(t *testing.T) {
	want := sampleEvents()

	got, err := ParseICS([]byte(Encode(want, stamp)), time.UTC)
	require.NoError(t, err)
	require.Len(t, got, len(want))

	for i := range want {
		assert.Equal(t, want[i].UID, got[i].UID)
		assert.Equal(t, want[i].Summary, got[i].Summary)
		assert.Equal(t, want[i].AllDay, got[i].AllDay)
		assert.Equal(t, want[i].RRule, got[i].RRule)
		assert.True(t, want[i].Start.Equal(got[i].Start), "start %d: %s vs %s", i, want[i].Start, got[i].Start)
		assert.True(t, want[i].End.Equal(got[i].End), "end %d: %s vs %s", i, want[i].End, got[i].End)
	}
}

func TestParseICS_SkipsBrokenEvents(t *testing.T) {
	body := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"SUMMARY:No UID",
		"DTSTART:20200610T130000Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:ok",
		"SUMMARY:Fine",
		"DTSTART;VALUE=DATE:20200704",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	events, err := ParseICS([]byte(body), time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ok", events[0].UID)
	assert.True(t, events[0].AllDay)
	assert.True(t, utc(time.July, 4, 0, 0).Equal(events[0].End))

	_, err = ParseICS(nil, time.UTC)
	assert.Error(t, err)
}

func TestAppendFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cal", "events.ics")
	events := sampleEvents()

	require.NoError(t, AppendFile(path, events[:1], stamp))
	require.NoError(t, AppendFile(path, events[1:], stamp))

	got, err := ReadFile(path, time.UTC)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "lunch-1", got[0].UID)
	assert.Equal(t, "yoga", got[2].UID)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestReadFile_Missing(t *testing.T) {
	got, err := ReadFile(filepath.Join(t.TempDir(), "none.ics"), time.UTC)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadFile_Blank(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ics")
	require.NoError(t, os.WriteFile(path, []byte("\n  \n"), 0o600))

	got, err := ReadFile(path, time.UTC)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, AppendFile(path, sampleEvents()[:1], stamp))
	got, err = ReadFile(path, time.UTC)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestAppendFile_Concurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ics")
	const n = 20

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ev := model.Event{UID: fmt.Sprintf("dinner-%d", i), Summary: "Dinner", Start: utc(time.June, 5, 19, 0), End: utc(time.June, 5, 20, 0)}
			errs <- AppendFile(path, []model.Event{ev}, stamp)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := ReadFile(path, time.UTC)
	require.NoError(t, err)
	assert.Len(t, got, n)
}

func TestExpandOccurrences(t *testing.T) {
	cfg := ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      utc(time.June, 8, 0, 0),
		RangeEnd:        utc(time.June, 30, 0, 0),
	}
	events := append(sampleEvents(),
		model.Event{UID: "range", Summary: "Senior Week", AllDay: true, Start: utc(time.June, 17, 0, 0), End: utc(time.June, 21, 0, 0)},
	)

	res, err := ExpandOccurrences(events, cfg)
	require.NoError(t, err)
	assert.Empty(t, res.TruncatedEvents)

	var yoga []time.Time
	var summaries []string
	for _, o := range res.Occurrences {
		summaries = append(summaries, o.Summary)
		if o.UID == "yoga" {
			yoga = append(yoga, o.Start)
			assert.Equal(t, time.Hour, o.End.Sub(o.Start))
		}
		if o.UID == "range" {
			assert.True(t, utc(time.June, 22, 0, 0).Equal(o.End))
		}
	}
	require.Len(t, yoga, 4)
	assert.True(t, utc(time.June, 29, 18, 0).Equal(yoga[3]))
	assert.NotContains(t, summaries, "America's Birthday")
	assert.Contains(t, summaries, "Lunch")

	for i := 1; i < len(res.Occurrences); i++ {
		assert.False(t, res.Occurrences[i].Start.Before(res.Occurrences[i-1].Start))
	}
}

func TestExpandOccurrences_Cap(t *testing.T) {
	cfg := ExpandConfig{
		DisplayLocation:        time.UTC,
		RangeStart:             utc(time.June, 1, 0, 0),
		RangeEnd:               utc(time.December, 31, 0, 0),
		MaxOccurrencesPerEvent: 2,
	}
	res, err := ExpandOccurrences(sampleEvents()[2:], cfg)
	require.NoError(t, err)
	assert.Len(t, res.Occurrences, 2)
	assert.Equal(t, []string{"yoga"}, res.TruncatedEvents)

	_, err = ExpandOccurrences(nil, ExpandConfig{RangeStart: stamp, RangeEnd: stamp.Add(-time.Hour)})
	assert.Error(t, err)
}
