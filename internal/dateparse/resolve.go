package dateparse

import (
	"fmt"
	"time"

	"evparse/internal/log"
	"evparse/internal/recognize"
)

// Resolve turns expr into a date at midnight in ref's location.
func Resolve(expr Expr, ref time.Time) (time.Time, error) {
	today := midnight(ref)

	switch e := expr.(type) {
	case InNDays:
		return today.AddDate(0, 0, e.Offset), nil

	case DayInNWeeks:
		diff := int(e.Day) - int(today.Weekday())
		if diff < 0 {
			diff += 7
		}
		return today.AddDate(0, 0, diff+7*e.Weeks), nil

	case InNMonths:
		months := int(today.Month()) - 1 + e.Offset
		year := today.Year() + floorDiv(months, 12)
		month := time.Month(floorMod(months, 12) + 1)
		day := min(today.Day(), daysIn(year, month))
		return time.Date(year, month, day, 0, 0, 0, 0, today.Location()), nil

	case InMonth:
		return makeDate(today.Year(), e.Month, e.Day, today.Location(), e)

	case InYear:
		return makeDate(expandYear(e.Year, today.Year()), e.Month, e.Day, today.Location(), e)

	case nil:
		return time.Time{}, fmt.Errorf("resolve date: %w", recognize.ErrNotFound)

	default:
		return time.Time{}, fmt.Errorf("resolve date: unsupported expression %T", expr)
	}
}

// Parse recognizes and resolves the first date in text. A zero ref means
// now. Malformed or impossible dates are logged and reported as absent.
func Parse(text string, ref time.Time) (time.Time, bool) {
	if ref.IsZero() {
		ref = time.Now()
	}
	expr, err := Recognize(text)
	if err != nil {
		if recognize.IsMalformed(err) {
			log.Debug("date not usable", "text", text, "err", err)
		}
		return time.Time{}, false
	}
	d, err := Resolve(expr, ref)
	if err != nil {
		log.Debug("date not resolvable", "text", text, "expr", expr.String(), "err", err)
		return time.Time{}, false
	}
	return d, true
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// makeDate rejects dates time.Date would normalize, such as Feb 30.
func makeDate(year int, month time.Month, day int, loc *time.Location, expr Expr) (time.Time, error) {
	t := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if t.Month() != month || t.Day() != day {
		return time.Time{}, recognize.Malformed(label, expr.String(),
			"%s has no day %d in %d", month, day, year)
	}
	return t, nil
}

// expandYear maps a two-digit year onto the century that keeps it within
// 50 years of the reference year.
func expandYear(year, refYear int) int {
	if year >= 100 {
		return year
	}
	y := refYear - refYear%100 + year
	switch {
	case y > refYear+50:
		y -= 100
	case y <= refYear-50:
		y += 100
	}
	return y
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
