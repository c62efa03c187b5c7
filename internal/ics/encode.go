package ics

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"evparse/internal/atomicfile"
	appLog "evparse/internal/log"
	"evparse/internal/model"
)

const productID = "-//evparse//EN"

// Encode renders events as a VCALENDAR. Events without a UID get a fresh
// one; now is used for DTSTAMP.
func Encode(events []model.Event, now time.Time) string {
	cal := newCalendar()
	for _, ev := range events {
		addEvent(cal, ev, now)
	}
	return cal.Serialize()
}

// fileLocks holds one *sync.Mutex per calendar path.
var fileLocks sync.Map

func lockFile(path string) func() {
	v, _ := fileLocks.LoadOrStore(filepath.Clean(path), &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// AppendFile adds events to the calendar file at path, creating it when
// missing. The file is rewritten atomically with 0600 perms. Concurrent
// appends to the same path within the process are serialized.
func AppendFile(path string, events []model.Event, now time.Time) error {
	unlock := lockFile(path)
	defer unlock()

	cal, err := loadCalendar(path)
	if err != nil {
		return err
	}
	for _, ev := range events {
		addEvent(cal, ev, now)
	}
	if err := atomicfile.Write(path, []byte(cal.Serialize()), 0o600); err != nil {
		return fmt.Errorf("write calendar %s: %w", path, err)
	}
	appLog.Info("calendar updated", "path", path, "added", len(events), "total", len(cal.Events()))
	return nil
}

// ReadFile loads every event in the calendar file at path. A missing or
// blank file is an empty calendar.
func ReadFile(path string, loc *time.Location) ([]model.Event, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read calendar %s: %w", path, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	return ParseICS(body, loc)
}

func loadCalendar(path string) (*ical.Calendar, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return newCalendar(), nil
		}
		return nil, fmt.Errorf("read calendar %s: %w", path, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return newCalendar(), nil
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse calendar %s: %w", path, err)
	}
	return cal, nil
}

func newCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)
	return cal
}

func addEvent(cal *ical.Calendar, ev model.Event, now time.Time) {
	uid := ev.UID
	if uid == "" {
		uid = uuid.NewString()
	}

	ve := cal.AddEvent(uid)
	ve.SetDtStampTime(now)
	ve.SetSummary(ev.Summary)

	if ev.AllDay {
		// DTEND of a VALUE=DATE event is exclusive.
		end := ev.End
		if end.Before(ev.Start) {
			end = ev.Start
		}
		ve.SetAllDayStartAt(ev.Start)
		ve.SetAllDayEndAt(end.AddDate(0, 0, 1))
	} else {
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
	}

	if ev.RRule != "" {
		ve.AddRrule(ev.RRule)
	}
}
