package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "evparse/internal/log"
	"evparse/internal/model"
)

const dateLayout = "20060102"

// ParseICS parses a calendar payload into events.
//
//   - Timed events are converted to loc.
//   - All-day events (VALUE=DATE or a value without 'T') become midnights
//     in loc, with End set to the last included date.
//   - A VEVENT that cannot be read is logged and skipped.
func ParseICS(body []byte, loc *time.Location) ([]model.Event, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err)
		return nil, err
	}

	events := make([]model.Event, 0)

	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp, loc)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Error("ics vevent parse failed", perr)
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (model.Event, error) {
	var out model.Event

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, errors.New("missing DTSTART")
	}
	out.AllDay = isDateValue(dtStart)

	if out.AllDay {
		start, err := time.ParseInLocation(dateLayout, strings.TrimSpace(dtStart.Value), loc)
		if err != nil {
			return out, err
		}
		out.Start = start
		out.End = start
		if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
			if end, err := time.ParseInLocation(dateLayout, strings.TrimSpace(dtEnd.Value), loc); err == nil && end.After(start) {
				out.End = end.AddDate(0, 0, -1)
			}
		}
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			return out, err
		}
		out.Start = start.In(loc)
		out.End = out.Start
		if end, err := ve.GetEndAt(); err == nil {
			out.End = end.In(loc)
		}
	}

	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil {
		out.RRule = rruleProp.Value
	}

	return out, nil
}

// isDateValue reports VALUE=DATE or a date-only value.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}
