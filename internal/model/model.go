package model

import "time"

// Event is a calendar record built from one line of text, or read back
// from a calendar file.
type Event struct {
	UID     string `json:"uid"` // iCalendar UID
	Summary string `json:"summary"`

	// AllDay events span whole dates; End is the last included date.
	AllDay bool `json:"all_day"`

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	// RRule is an RFC 5545 RRULE value without the "RRULE:" prefix, e.g.
	// "FREQ=WEEKLY;BYDAY=MO". Empty for one-off events.
	RRule string `json:"rrule,omitempty"`
}

// Occurrence represents a single concrete instance of an event
// (after recurrence expansion and timezone normalization).
type Occurrence struct {
	UID string // iCalendar UID

	// InstanceKey uniquely identifies a single occurrence of a recurring
	// event, derived from the local start time.
	InstanceKey string

	Summary string
	AllDay  bool

	// Start / End are in the configured display timezone.
	Start time.Time
	End   time.Time
}
