package dateparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"evparse/internal/recognize"
)

const (
	label   = "date"
	ordinal = `(?:st|nd|rd|th)?`
)

var (
	keywordPattern       = regexp.MustCompile(`(?i)\b(today|tomorrow|yesterday)\b`)
	inNDaysPattern       = regexp.MustCompile(`(?i)\bin\s+(\d{1,3})\s+days?\b`)
	inNWeeksPattern      = regexp.MustCompile(`(?i)\bin\s+(\d{1,3})\s+weeks?\b`)
	numericYearPattern   = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4}|\d{2})\b`)
	numericPattern       = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})\b`)
	englishYearPattern   = regexp.MustCompile(`(?i)` + monthWord + `\.?\s+(\d{1,2})` + ordinal + `,?\s+(\d{4})\b`)
	englishPattern       = regexp.MustCompile(`(?i)` + monthWord + `\.?\s+(\d{1,2})` + ordinal + `\b`)
	dayFirstPattern      = regexp.MustCompile(`(?i)\b(\d{1,2})` + ordinal + `\s+(?:of\s+)?` + monthWord)
	qualifiedPattern     = regexp.MustCompile(`(?i)\b(next|last|this)\s+(\w+)`)
	inNMonthsPattern     = regexp.MustCompile(`(?i)\bin\s+(\d{1,3})\s+months?\b`)
	relativeMonthPattern = regexp.MustCompile(`(?i)\b(next|last|this)\s+month\b`)
)

var keywordOffsets = map[string]int{
	"today":     0,
	"tomorrow":  1,
	"yesterday": -1,
}

var qualifierWeeks = map[string]int{
	"next": 1,
	"last": -1,
	"this": 0,
}

// recognizer is the ordered chain. More specific patterns come first so
// that "12/15/19" is read as a full date before "12/15" gets a chance.
var recognizer = recognize.Chain[Expr]{
	Label: label,
	Steps: []recognize.Recognizer[Expr]{
		step("calendar keyword", recognizeKeyword),
		step("relative days", recognizeInNDays),
		step("relative weeks", recognizeInNWeeks),
		step("numeric date with year", recognizeNumericYear),
		step("numeric date", recognizeNumeric),
		step("english date with year", recognizeEnglishYear),
		step("english date", recognizeEnglish),
		step("day before month", recognizeDayFirst),
		step("qualified weekday", recognizeQualifiedWeekday),
		step("relative months", recognizeInNMonths),
		step("relative month", recognizeRelativeMonth),
		step("weekday", recognizeBareWeekday),
	},
}

func step(name string, fn func(string) (Expr, error)) recognize.Recognizer[Expr] {
	return recognize.Func[Expr]{Label: name, Fn: fn}
}

// Recognize extracts the first date expression from text. It returns
// recognize.ErrNotFound when no pattern applies and a
// *recognize.MalformedError when a pattern matched an impossible value.
func Recognize(text string) (Expr, error) {
	return recognizer.Recognize(text)
}

// Recognizer exposes the chain for callers that work with the generic
// recognize.Recognizer contract.
func Recognizer() recognize.Recognizer[Expr] {
	return recognizer
}

func recognizeKeyword(text string) (Expr, error) {
	m := keywordPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, recognize.ErrNotFound
	}
	return InNDays{Offset: keywordOffsets[strings.ToLower(m[1])]}, nil
}

func recognizeInNDays(text string) (Expr, error) {
	m := inNDaysPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, recognize.ErrNotFound
	}
	n, _ := strconv.Atoi(m[1])
	return InNDays{Offset: n}, nil
}

func recognizeInNWeeks(text string) (Expr, error) {
	m := inNWeeksPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, recognize.ErrNotFound
	}
	n, _ := strconv.Atoi(m[1])
	return InNDays{Offset: 7 * n}, nil
}

func recognizeNumericYear(text string) (Expr, error) {
	m := numericYearPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, recognize.ErrNotFound
	}
	month, day, err := monthDay(m[0], m[1], m[2])
	if err != nil {
		return nil, err
	}
	year, _ := strconv.Atoi(m[3])
	return InYear{Month: month, Day: day, Year: year}, nil
}

func recognizeNumeric(text string) (Expr, error) {
	m := numericPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, recognize.ErrNotFound
	}
	month, day, err := monthDay(m[0], m[1], m[2])
	if err != nil {
		return nil, err
	}
	return InMonth{Month: month, Day: day}, nil
}

func recognizeEnglishYear(text string) (Expr, error) {
	m := englishYearPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, recognize.ErrNotFound
	}
	day, err := dayOfMonth(m[0], m[2])
	if err != nil {
		return nil, err
	}
	year, _ := strconv.Atoi(m[3])
	return InYear{Month: monthPrefixes[strings.ToLower(m[1])], Day: day, Year: year}, nil
}

func recognizeEnglish(text string) (Expr, error) {
	m := englishPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, recognize.ErrNotFound
	}
	day, err := dayOfMonth(m[0], m[2])
	if err != nil {
		return nil, err
	}
	return InMonth{Month: monthPrefixes[strings.ToLower(m[1])], Day: day}, nil
}

func recognizeDayFirst(text string) (Expr, error) {
	m := dayFirstPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, recognize.ErrNotFound
	}
	day, err := dayOfMonth(m[0], m[1])
	if err != nil {
		return nil, err
	}
	return InMonth{Month: monthPrefixes[strings.ToLower(m[2])], Day: day}, nil
}

// recognizeQualifiedWeekday scans every "next|last|this <word>" pair, so
// "this is next friday" still finds friday.
func recognizeQualifiedWeekday(text string) (Expr, error) {
	for _, m := range qualifiedPattern.FindAllStringSubmatch(text, -1) {
		day, err := Weekdays.Recognize(m[2])
		if err != nil {
			continue
		}
		return DayInNWeeks{Weeks: qualifierWeeks[strings.ToLower(m[1])], Day: day}, nil
	}
	return nil, recognize.ErrNotFound
}

func recognizeInNMonths(text string) (Expr, error) {
	m := inNMonthsPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, recognize.ErrNotFound
	}
	n, _ := strconv.Atoi(m[1])
	return InNMonths{Offset: n}, nil
}

func recognizeRelativeMonth(text string) (Expr, error) {
	m := relativeMonthPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, recognize.ErrNotFound
	}
	return InNMonths{Offset: qualifierWeeks[strings.ToLower(m[1])]}, nil
}

func recognizeBareWeekday(text string) (Expr, error) {
	day, err := Weekdays.Recognize(text)
	if err != nil {
		return nil, err
	}
	return DayInNWeeks{Weeks: 0, Day: day}, nil
}

func monthDay(fragment, monthStr, dayStr string) (time.Month, int, error) {
	month, _ := strconv.Atoi(monthStr)
	if month < 1 || month > 12 {
		return 0, 0, recognize.Malformed(label, fragment, "month %d out of range", month)
	}
	day, err := dayOfMonth(fragment, dayStr)
	if err != nil {
		return 0, 0, err
	}
	return time.Month(month), day, nil
}

// dayOfMonth only checks 1..31; the length of the particular month is
// checked at resolution.
func dayOfMonth(fragment, dayStr string) (int, error) {
	day, _ := strconv.Atoi(dayStr)
	if day < 1 || day > 31 {
		return 0, recognize.Malformed(label, fragment, "day %d out of range", day)
	}
	return day, nil
}

// fragmentPatterns are the date shapes that contain digits, longest first.
// The time recognizer removes them before looking for a clock time.
var fragmentPatterns = []*regexp.Regexp{
	numericYearPattern,
	numericPattern,
	englishYearPattern,
	englishPattern,
	dayFirstPattern,
	inNDaysPattern,
	inNWeeksPattern,
	inNMonthsPattern,
}

// StripFragments blanks out every numeric date fragment in text.
func StripFragments(text string) string {
	for _, re := range fragmentPatterns {
		text = re.ReplaceAllString(text, " ")
	}
	return text
}

// Patterns returns every pattern the date recognizer uses, ordered so that
// removing them one after another leaves no partial date behind.
func Patterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		numericYearPattern,
		numericPattern,
		englishYearPattern,
		englishPattern,
		dayFirstPattern,
		inNDaysPattern,
		inNWeeksPattern,
		inNMonthsPattern,
		qualifiedWeekdayPattern,
		relativeMonthPattern,
		keywordPattern,
		weekdayPattern,
		monthPattern,
	}
}

var qualifiedWeekdayPattern = regexp.MustCompile(`(?i)\b(?:next|last|this)\s+` + weekdayWord)
