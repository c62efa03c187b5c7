// Package event turns a line of text into an event span: when it starts,
// when it ends, whether it covers whole days, and what it is called.
package event

import (
	"fmt"
	"strings"
	"time"

	"evparse/internal/model"
	"evparse/internal/recur"
)

// Kind is the temporal shape of a span.
type Kind int

const (
	// Unknown means nothing was recognized; the span is the whole
	// reference day.
	Unknown Kind = iota
	Starts
	StartsAndEnds
	StartsWithDate
	StartsAndEndsWithDate
	AllDay
	AllDayRange
)

var kindNames = [...]string{
	Unknown:               "unknown",
	Starts:                "starts",
	StartsAndEnds:         "starts_and_ends",
	StartsWithDate:        "starts_with_date",
	StartsAndEndsWithDate: "starts_and_ends_with_date",
	AllDay:                "all_day",
	AllDayRange:           "all_day_range",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText lets Kind render by name in JSON.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	for i, name := range kindNames {
		if name == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown span kind %q", b)
}

// Span is the resolved result of Build.
//
// For timed kinds Start and End are instants. For whole-day kinds
// (Unknown, AllDay, AllDayRange) they are midnights of the first and last
// included dates.
type Span struct {
	Kind    Kind
	Start   time.Time
	End     time.Time
	Summary string

	// Recurrence is set when the text also says how the event repeats.
	Recurrence *recur.Rule
}

// AllDay reports whether the span covers whole dates.
func (s Span) AllDay() bool {
	switch s.Kind {
	case Unknown, AllDay, AllDayRange:
		return true
	}
	return false
}

// Event converts the span into a calendar record. An empty summary is
// replaced with defaultSummary.
func (s Span) Event(uid, defaultSummary string) model.Event {
	ev := model.Event{
		UID:     uid,
		Summary: s.Summary,
		AllDay:  s.AllDay(),
		Start:   s.Start,
		End:     s.End,
	}
	if ev.Summary == "" {
		ev.Summary = defaultSummary
	}
	if s.Recurrence != nil {
		ev.RRule = s.Recurrence.String()
	}
	return ev
}

const (
	clockLayout = "03:04pm"
	dateLayout  = "January 02 2006"
)

// Format renders the span the way the command line prints it:
//
//	Event: "Lunch"
//	12:00pm May 01 2020 - 01:00pm May 01 2020
func (s Span) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Event: %q\n", s.Summary)
	if s.Recurrence != nil {
		fmt.Fprintf(&b, "Repeats: %s\n", s.Recurrence)
	}
	fmt.Fprintf(&b, "%s %s - %s %s",
		s.Start.Format(clockLayout), s.Start.Format(dateLayout),
		s.End.Format(clockLayout), s.End.Format(dateLayout))
	return b.String()
}
