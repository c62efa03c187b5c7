package timeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"evparse/internal/dateparse"
	"evparse/internal/log"
	"evparse/internal/recognize"
)

const label = "time of day"

var (
	inNMinutesPattern = regexp.MustCompile(`(?i)\bin\s+(\d{1,4})\s+(?:minutes?|mins?)\b`)
	inNHoursPattern   = regexp.MustCompile(`(?i)\bin\s+(\d{1,4})\s+(?:hours?|hrs?)\b`)
	// hour, optional :MM, then "am"/"p.m."/"a"/"p". A bare letter must touch
	// the digits so "5 apples" stays an hour without meridiem.
	clockPattern = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?(?:\s?([ap])\.?m\.?|([ap]))?\b`)
)

type casual struct {
	pattern *regexp.Regexp
	hour    int
}

// casuals are tried in this order; the first phrase present wins.
var casuals = []casual{
	{regexp.MustCompile(`(?i)\bmorning\b`), 9},
	{regexp.MustCompile(`(?i)\bafternoon\b`), 14},
	{regexp.MustCompile(`(?i)\bevening\b`), 18},
	{regexp.MustCompile(`(?i)\btonight\b`), 21},
	{regexp.MustCompile(`(?i)\bnoon\b`), 12},
	{regexp.MustCompile(`(?i)\bmidnight\b`), 0},
}

var recognizer = recognize.Chain[Expr]{
	Label: label,
	Steps: []recognize.Recognizer[Expr]{
		recognize.Func[Expr]{Label: "relative minutes", Fn: recognizeInNMinutes},
		recognize.Func[Expr]{Label: "relative hours", Fn: recognizeInNHours},
		recognize.Func[Expr]{Label: "clock time", Fn: recognizeClock},
		recognize.Func[Expr]{Label: "casual time", Fn: recognizeCasual},
	},
}

// Recognize extracts the first time expression from text.
func Recognize(text string) (Expr, error) {
	return recognizer.Recognize(text)
}

// Recognizer exposes the chain as a recognize.Recognizer.
func Recognizer() recognize.Recognizer[Expr] {
	return recognizer
}

// Resolve turns expr into a time of day. Relative offsets wrap around
// midnight without carrying into the date.
func Resolve(expr Expr, ref TimeOfDay) (TimeOfDay, error) {
	switch e := expr.(type) {
	case Absolute:
		return TimeOfDay{Hour: e.Hour, Minute: e.Minute}, nil
	case InNHours:
		return fromMinutes(ref.minutes() + e.Hours*60), nil
	case InNMinutes:
		return fromMinutes(ref.minutes() + e.Minutes), nil
	case nil:
		return TimeOfDay{}, fmt.Errorf("resolve time: %w", recognize.ErrNotFound)
	default:
		return TimeOfDay{}, fmt.Errorf("resolve time: unsupported expression %T", expr)
	}
}

// Parse recognizes and resolves the first time of day in text. A zero ref
// means now.
func Parse(text string, ref time.Time) (TimeOfDay, bool) {
	if ref.IsZero() {
		ref = time.Now()
	}
	expr, err := Recognize(text)
	if err != nil {
		if recognize.IsMalformed(err) {
			log.Debug("time not usable", "text", text, "err", err)
		}
		return TimeOfDay{}, false
	}
	tod, err := Resolve(expr, Of(ref))
	if err != nil {
		log.Debug("time not resolvable", "text", text, "expr", expr.String(), "err", err)
		return TimeOfDay{}, false
	}
	return tod, true
}

func recognizeInNMinutes(text string) (Expr, error) {
	m := inNMinutesPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, recognize.ErrNotFound
	}
	n, _ := strconv.Atoi(m[1])
	return InNMinutes{Minutes: n}, nil
}

func recognizeInNHours(text string) (Expr, error) {
	m := inNHoursPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, recognize.ErrNotFound
	}
	n, _ := strconv.Atoi(m[1])
	return InNHours{Hours: n}, nil
}

// recognizeClock returns the first usable clock time once date fragments
// are removed, so "6/1" or "April 5" never read as an hour.
func recognizeClock(text string) (Expr, error) {
	var malformed error
	for _, m := range clockPattern.FindAllStringSubmatch(dateparse.StripFragments(text), -1) {
		expr, err := clockTime(m)
		if err == nil {
			return expr, nil
		}
		if malformed == nil {
			malformed = err
		}
	}
	if malformed != nil {
		return nil, malformed
	}
	return nil, recognize.ErrNotFound
}

func clockTime(m []string) (Expr, error) {
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	meridiem := strings.ToLower(m[3] + m[4])

	if minute > 59 {
		return nil, recognize.Malformed(label, m[0], "minute %d out of range", minute)
	}
	if meridiem != "" && (hour < 1 || hour > 12) {
		return nil, recognize.Malformed(label, m[0], "hour %d out of range for %sm", hour, meridiem)
	}
	if hour > 23 {
		return nil, recognize.Malformed(label, m[0], "hour %d out of range", hour)
	}

	switch {
	case meridiem == "p" && hour < 12:
		hour += 12
	case meridiem == "a" && hour == 12:
		hour = 0
	case meridiem == "" && hour >= 1 && hour <= 8:
		// Bare small hours are almost always afternoon or evening plans.
		hour += 12
	}
	return Absolute{Hour: hour, Minute: minute}, nil
}

func recognizeCasual(text string) (Expr, error) {
	for _, c := range casuals {
		if c.pattern.MatchString(text) {
			return Absolute{Hour: c.hour}, nil
		}
	}
	return nil, recognize.ErrNotFound
}

// Patterns returns every pattern the time recognizer uses.
func Patterns() []*regexp.Regexp {
	out := []*regexp.Regexp{inNMinutesPattern, inNHoursPattern, clockPattern}
	for _, c := range casuals {
		out = append(out, c.pattern)
	}
	return out
}
