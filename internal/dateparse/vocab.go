package dateparse

import (
	"regexp"
	"strings"
	"time"

	"evparse/internal/recognize"
)

// Month and weekday words are a three-letter prefix plus an optional
// suffix, so "jun" and "june" both land on time.June.
const (
	monthWord   = `\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)(?:uary|ruary|ch|il|e|y|ust|tember|t|ober|ember)?\b`
	weekdayWord = `\b(sun|mon|tue|wed|thu|fri|sat)(?:day|sday|nesday|rsday|urday|rs|r|s)?\b`
)

// WeekdayWord is the uncompiled weekday name pattern, for callers that
// build larger phrases around it.
const WeekdayWord = weekdayWord

var (
	monthPattern   = regexp.MustCompile(`(?i)` + monthWord)
	weekdayPattern = regexp.MustCompile(`(?i)` + weekdayWord)
)

var monthPrefixes = map[string]time.Month{
	"jan": time.January,
	"feb": time.February,
	"mar": time.March,
	"apr": time.April,
	"may": time.May,
	"jun": time.June,
	"jul": time.July,
	"aug": time.August,
	"sep": time.September,
	"oct": time.October,
	"nov": time.November,
	"dec": time.December,
}

var weekdayPrefixes = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Months finds the first English month name or abbreviation in the text.
var Months recognize.Recognizer[time.Month] = recognize.Func[time.Month]{
	Label: "month of year",
	Fn:    recognizeMonth,
}

// Weekdays finds the first English weekday name or abbreviation in the text.
var Weekdays recognize.Recognizer[time.Weekday] = recognize.Func[time.Weekday]{
	Label: "day of week",
	Fn:    recognizeWeekday,
}

func recognizeMonth(text string) (time.Month, error) {
	m := monthPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, recognize.ErrNotFound
	}
	return monthPrefixes[strings.ToLower(m[1])], nil
}

func recognizeWeekday(text string) (time.Weekday, error) {
	m := weekdayPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, recognize.ErrNotFound
	}
	return weekdayPrefixes[strings.ToLower(m[1])], nil
}
