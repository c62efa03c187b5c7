package event

import (
	"regexp"
	"strings"
	"time"

	"evparse/internal/dateparse"
	"evparse/internal/log"
	"evparse/internal/recognize"
	"evparse/internal/recur"
	"evparse/internal/timeparse"
)

// DefaultDuration is the length of an event that only states when it
// starts.
const DefaultDuration = time.Hour

// separatorPattern finds the "-" or "to" between the two halves of a
// range. The halves are the tokens touching it on either side, such as
// "1", "2pm", "9/8" or "10:30".
var separatorPattern = regexp.MustCompile(`(?i)\s*-\s*|\s+to\s+`)

// Composer builds spans with a configurable default duration.
type Composer struct {
	// DefaultDuration is used when no end time is given. Zero means one
	// hour.
	DefaultDuration time.Duration
}

// Build uses the default Composer.
func Build(text string, ref time.Time) Span {
	return Composer{}.Build(text, ref)
}

// Build decides the span of text relative to ref. A zero ref means now.
// Build never fails: text with nothing recognizable becomes a whole-day
// span on the reference date.
func (c Composer) Build(text string, ref time.Time) Span {
	if ref.IsZero() {
		ref = time.Now()
	}
	dur := c.DefaultDuration
	if dur <= 0 {
		dur = DefaultDuration
	}

	span, fragment := c.shape(text, ref, dur)
	span.Summary = Summarize(removeFragment(text, fragment))

	if rule, err := recur.Recognize(text); err == nil {
		span.Recurrence = &rule
	} else if recognize.IsMalformed(err) {
		log.Debug("recurrence not usable", "text", text, "err", err)
	}

	log.Debug("span built", "text", text, "kind", span.Kind, "start", span.Start.Format(time.RFC3339), "end", span.End.Format(time.RFC3339))
	return span
}

// shape returns the span without summary, and the start-end fragment
// that produced it, if any.
func (c Composer) shape(text string, ref time.Time, dur time.Duration) (Span, [2]int) {
	today := midnight(ref)
	noFragment := [2]int{-1, -1}

	for _, c := range rangeCandidates(text) {
		left, right := text[c.left[0]:c.left[1]], text[c.right[0]:c.right[1]]
		fragment := [2]int{c.left[0], c.right[1]}

		start, okStart := parseTime(left, ref)
		end, okEnd := parseTime(right, ref)
		if okStart && okEnd {
			date, kind := today, StartsAndEnds
			if d, ok := dateparse.Parse(text, ref); ok {
				date, kind = d, StartsAndEndsWithDate
			}
			s := Span{Kind: kind, Start: start.On(date), End: end.On(date)}
			if end.Before(start) {
				s.End = s.End.AddDate(0, 0, 1)
			}
			return s, fragment
		}

		first, okFirst := dateparse.Parse(left, ref)
		last, okLast := dateparse.Parse(right, ref)
		if okFirst && okLast {
			// "12/20-1/5" crosses into the next year.
			if last.Before(first) {
				last = last.AddDate(1, 0, 0)
			}
			return Span{Kind: AllDayRange, Start: first, End: last}, fragment
		}
	}

	if tod, ok := parseTime(text, ref); ok {
		date, kind := today, Starts
		if d, ok := dateparse.Parse(text, ref); ok {
			date, kind = d, StartsWithDate
		}
		start := tod.On(date)
		return Span{Kind: kind, Start: start, End: start.Add(dur)}, noFragment
	}

	if d, ok := dateparse.Parse(text, ref); ok {
		return Span{Kind: AllDay, Start: d, End: d}, noFragment
	}

	return Span{Kind: Unknown, Start: today, End: today}, noFragment
}

type rangeCandidate struct {
	left, right [2]int
}

// rangeCandidates lists, left to right, the token pairs around every
// separator in text. Neighbouring candidates may share a token, so in
// "trip to 9/1-9/8" both "trip to 9/1" and "9/1-9/8" are tried.
func rangeCandidates(text string) []rangeCandidate {
	var out []rangeCandidate
	for _, sep := range separatorPattern.FindAllStringIndex(text, -1) {
		start := sep[0]
		for start > 0 && isTokenByte(text[start-1]) {
			start--
		}
		end := sep[1]
		for end < len(text) && isTokenByte(text[end]) {
			end++
		}
		if start == sep[0] || end == sep[1] {
			continue
		}
		out = append(out, rangeCandidate{left: [2]int{start, sep[0]}, right: [2]int{sep[1], end}})
	}
	return out
}

func isTokenByte(b byte) bool {
	switch {
	case b >= '0' && b <= '9', b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z':
		return true
	}
	return b == '_' || b == '/' || b == ':'
}

func parseTime(text string, ref time.Time) (timeparse.TimeOfDay, bool) {
	return timeparse.Parse(text, ref)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func removeFragment(text string, fragment [2]int) string {
	if fragment[0] < 0 {
		return text
	}
	return text[:fragment[0]] + " " + text[fragment[1]:]
}

var (
	fillerPattern = regexp.MustCompile(`(?i)\b(?:at|in|on|from|next|this|last|every|each|night)\b`)
	// A hyphen inside a word ("follow-up") is kept.
	dashPattern = regexp.MustCompile(`-\B|\B-`)
)

// Summarize removes every date, time and repetition phrase from text and
// returns what is left with whitespace collapsed. The result may be empty.
func Summarize(text string) string {
	var patterns []*regexp.Regexp
	patterns = append(patterns, recur.Patterns()...)
	patterns = append(patterns, dateparse.Patterns()...)
	patterns = append(patterns, timeparse.Patterns()...)
	patterns = append(patterns, fillerPattern, dashPattern)

	for _, re := range patterns {
		text = re.ReplaceAllString(text, " ")
	}
	return strings.Join(strings.Fields(text), " ")
}
