// Package recur detects repetition phrases ("every monday", "daily",
// "every 2 weeks") and turns them into RFC 5545 recurrence rules.
package recur

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/teambition/rrule-go"

	"evparse/internal/dateparse"
	"evparse/internal/recognize"
)

const label = "recurrence"

var (
	intervalPattern = regexp.MustCompile(`(?i)\bevery\s+(\d{1,3})\s+(day|week|month|year)s?\b`)
	weekPartPattern = regexp.MustCompile(`(?i)\b(?:every|each)\s+(weekday|weekend)s?\b`)
	unitPattern     = regexp.MustCompile(`(?i)\b(?:every|each)\s+(day|week|month|year)\b`)
	dayListPattern  = regexp.MustCompile(`(?i)\b(?:every|each)\s+(\w+(?:` + daySeparator + `\w+)*)`)
	adverbPattern   = regexp.MustCompile(`(?i)\b(daily|weekly|monthly|yearly|annually)\b`)

	daySeparator     = `(?:\s*,\s*and\s+|\s+and\s+|\s*,\s*|\s*&\s*)`
	dayPhrasePattern = regexp.MustCompile(`(?i)\b(?:every|each)\s+` + dateparse.WeekdayWord +
		`(?:` + daySeparator + dateparse.WeekdayWord + `)*`)
)

var units = map[string]rrule.Frequency{
	"day":      rrule.DAILY,
	"daily":    rrule.DAILY,
	"week":     rrule.WEEKLY,
	"weekly":   rrule.WEEKLY,
	"month":    rrule.MONTHLY,
	"monthly":  rrule.MONTHLY,
	"year":     rrule.YEARLY,
	"yearly":   rrule.YEARLY,
	"annually": rrule.YEARLY,
}

var byDay = map[time.Weekday]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

var (
	workWeek = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	weekend  = []time.Weekday{time.Saturday, time.Sunday}
)

// Rule is a simple repetition: every Interval units of Freq, optionally
// restricted to Weekdays.
type Rule struct {
	Freq     rrule.Frequency
	Interval int
	Weekdays []time.Weekday
}

// Recognizer finds the first repetition phrase in the text.
var Recognizer recognize.Recognizer[Rule] = recognize.Chain[Rule]{
	Label: label,
	Steps: []recognize.Recognizer[Rule]{
		recognize.Func[Rule]{Label: "every n units", Fn: recognizeInterval},
		recognize.Func[Rule]{Label: "every weekday", Fn: recognizeWeekPart},
		recognize.Func[Rule]{Label: "every unit", Fn: recognizeUnit},
		recognize.Func[Rule]{Label: "every named day", Fn: recognizeDayList},
		recognize.Func[Rule]{Label: "repetition adverb", Fn: recognizeAdverb},
	},
}

// Recognize is a shorthand for Recognizer.Recognize.
func Recognize(text string) (Rule, error) {
	return Recognizer.Recognize(text)
}

func recognizeInterval(text string) (Rule, error) {
	m := intervalPattern.FindStringSubmatch(text)
	if m == nil {
		return Rule{}, recognize.ErrNotFound
	}
	n, _ := strconv.Atoi(m[1])
	if n < 1 {
		return Rule{}, recognize.Malformed(label, m[0], "interval must be positive")
	}
	return Rule{Freq: units[strings.ToLower(m[2])], Interval: n}, nil
}

func recognizeWeekPart(text string) (Rule, error) {
	m := weekPartPattern.FindStringSubmatch(text)
	if m == nil {
		return Rule{}, recognize.ErrNotFound
	}
	days := workWeek
	if strings.EqualFold(m[1], "weekend") {
		days = weekend
	}
	return Rule{Freq: rrule.WEEKLY, Interval: 1, Weekdays: append([]time.Weekday(nil), days...)}, nil
}

func recognizeUnit(text string) (Rule, error) {
	m := unitPattern.FindStringSubmatch(text)
	if m == nil {
		return Rule{}, recognize.ErrNotFound
	}
	return Rule{Freq: units[strings.ToLower(m[1])], Interval: 1}, nil
}

// recognizeDayList reads "every monday, wednesday and friday". Words after
// the last weekday are ignored.
func recognizeDayList(text string) (Rule, error) {
	for _, m := range dayListPattern.FindAllStringSubmatch(text, -1) {
		var days []time.Weekday
		seen := make(map[time.Weekday]bool)
		for _, word := range strings.FieldsFunc(m[1], func(r rune) bool { return !unicode.IsLetter(r) }) {
			if strings.EqualFold(word, "and") {
				continue
			}
			d, err := dateparse.Weekdays.Recognize(word)
			if err != nil {
				break
			}
			if !seen[d] {
				seen[d] = true
				days = append(days, d)
			}
		}
		if len(days) > 0 {
			return Rule{Freq: rrule.WEEKLY, Interval: 1, Weekdays: days}, nil
		}
	}
	return Rule{}, recognize.ErrNotFound
}

func recognizeAdverb(text string) (Rule, error) {
	m := adverbPattern.FindStringSubmatch(text)
	if m == nil {
		return Rule{}, recognize.ErrNotFound
	}
	return Rule{Freq: units[strings.ToLower(m[1])], Interval: 1}, nil
}

func (r Rule) options() rrule.ROption {
	opt := rrule.ROption{Freq: r.Freq}
	if r.Interval > 1 {
		opt.Interval = r.Interval
	}
	for _, d := range r.Weekdays {
		opt.Byweekday = append(opt.Byweekday, byDay[d])
	}
	return opt
}

// String returns the RRULE value, e.g. "FREQ=WEEKLY;BYDAY=MO,WE".
func (r Rule) String() string {
	opt := r.options()
	return opt.RRuleString()
}

// RRule builds the rule anchored at dtstart.
func (r Rule) RRule(dtstart time.Time) (*rrule.RRule, error) {
	opt := r.options()
	opt.Dtstart = dtstart
	if opt.Interval == 0 {
		opt.Interval = 1
	}
	rr, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("build rrule %q: %w", r.String(), err)
	}
	return rr, nil
}

// Patterns returns the patterns used to find repetition phrases.
func Patterns() []*regexp.Regexp {
	return []*regexp.Regexp{intervalPattern, weekPartPattern, unitPattern, dayPhrasePattern, adverbPattern}
}
