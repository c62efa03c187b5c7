package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "evparse/internal/log"
	"evparse/internal/model"
)

const (
	defaultMaxOccurrencesPerEvent = 5000
)

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// DisplayLocation is the timezone to which all occurrences will be converted.
	// If nil, time.Local is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd define the inclusive time window for occurrences.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent is a safety cap to avoid infinite or extremely
	// large expansions. If zero, defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// ExpandResult wraps the list of expanded occurrences and optionally
// information about truncation.
type ExpandResult struct {
	Occurrences []model.Occurrence
	// TruncatedEvents records UIDs that hit the MaxOccurrencesPerEvent cap.
	TruncatedEvents []string
}

// ExpandOccurrences expands events into concrete occurrences within the
// configured window, sorted by start. One-off events are kept when they
// overlap the window; events with an RRULE are expanded with rrule-go.
// All-day occurrences cover [date 00:00, day after last date 00:00).
func ExpandOccurrences(events []model.Event, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	allOccurrences := make([]model.Occurrence, 0)

	for _, ev := range events {
		occ, hitCap := expandEvent(ev, cfg)
		allOccurrences = append(allOccurrences, occ...)

		if hitCap {
			result.TruncatedEvents = append(result.TruncatedEvents, ev.UID)
			appLog.Error("expand: truncated occurrences for UID due to cap",
				errors.New("max occurrences reached"),
				"uid", ev.UID,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}

	sort.SliceStable(allOccurrences, func(i, j int) bool {
		return allOccurrences[i].Start.Before(allOccurrences[j].Start)
	})

	result.Occurrences = allOccurrences
	return result, nil
}

func expandEvent(ev model.Event, cfg ExpandConfig) ([]model.Occurrence, bool) {
	if ev.RRule == "" {
		return expandSingleEvent(ev, cfg), false
	}
	return expandRecurringEvent(ev, cfg)
}

func expandSingleEvent(ev model.Event, cfg ExpandConfig) []model.Occurrence {
	start, end := bounds(ev, ev.Start)
	if !timeRangesOverlap(start, end, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}
	return []model.Occurrence{makeOccurrence(ev, start, end, cfg.DisplayLocation)}
}

func expandRecurringEvent(ev model.Event, cfg ExpandConfig) ([]model.Occurrence, bool) {
	out := make([]model.Occurrence, 0)
	hitCap := false

	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RRule)
		return out, false
	}

	// Ensure Dtstart is set to the event's DTSTART.
	r.DTStart(ev.Start)

	// Widen the lower bound by the event length so an occurrence that
	// started before the window but is still running is included.
	first, last := bounds(ev, ev.Start)
	rangeStart := cfg.RangeStart.Add(-last.Sub(first)).In(ev.Start.Location())
	rangeEnd := cfg.RangeEnd.In(ev.Start.Location())

	occTimes := r.Between(rangeStart, rangeEnd, true)

	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	for _, occStart := range occTimes {
		start, end := bounds(ev, occStart)
		if !timeRangesOverlap(start, end, cfg.RangeStart, cfg.RangeEnd) {
			continue
		}
		out = append(out, makeOccurrence(ev, start, end, cfg.DisplayLocation))
	}

	return out, hitCap
}

// bounds returns the half-open interval of an occurrence starting at
// start, keeping the event's original length.
func bounds(ev model.Event, start time.Time) (time.Time, time.Time) {
	if ev.AllDay {
		days := 1
		if ev.End.After(ev.Start) {
			days += int(ev.End.Sub(ev.Start).Hours()+12) / 24
		}
		date := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
		return date, date.AddDate(0, 0, days)
	}
	return start, start.Add(ev.End.Sub(ev.Start))
}

// makeOccurrence converts an event + specific start/end time into a
// model.Occurrence normalized into displayLoc.
func makeOccurrence(ev model.Event, start, end time.Time, displayLoc *time.Location) model.Occurrence {
	startLocal := start.In(displayLoc)
	endLocal := end.In(displayLoc)

	occ := model.Occurrence{
		UID:     ev.UID,
		Summary: ev.Summary,
		AllDay:  ev.AllDay,
		Start:   startLocal,
		End:     endLocal,
	}

	// InstanceKey: use start time in RFC3339 as a stable per-instance key.
	occ.InstanceKey = startLocal.Format(time.RFC3339Nano)

	return occ
}

func timeRangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Before(bStart) {
		return false
	}
	if bEnd.Before(aStart) {
		return false
	}
	return true
}
