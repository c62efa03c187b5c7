// Package recognize holds the contract shared by every text recognizer:
// extract a typed expression from free text, or say why not.
//
// A recognizer has three outcomes. A value with a nil error means the text
// was recognized. ErrNotFound means nothing applicable was seen. A
// *MalformedError means a pattern matched but the value it carries cannot
// be used (month 13, February 30).
package recognize

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that no pattern applied to the text.
var ErrNotFound = errors.New("no match")

// MalformedError reports a syntactic match with an unusable value.
type MalformedError struct {
	// Label names what was being recognized, e.g. "date".
	Label string
	// Fragment is the matched substring.
	Fragment string
	Reason   string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed %s %q: %s", e.Label, e.Fragment, e.Reason)
}

// Malformed builds a *MalformedError with a formatted reason.
func Malformed(label, fragment, format string, args ...any) error {
	return &MalformedError{
		Label:    label,
		Fragment: fragment,
		Reason:   fmt.Sprintf(format, args...),
	}
}

// IsNotFound reports whether err means "nothing recognized".
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsMalformed reports whether err carries a *MalformedError.
func IsMalformed(err error) bool {
	var me *MalformedError
	return errors.As(err, &me)
}

// Recognizer extracts a T from text. Implementations must not keep state
// between calls.
type Recognizer[T any] interface {
	Recognize(text string) (T, error)
	// Describe returns a human-readable label used in diagnostics.
	Describe() string
}

// Func adapts a plain function into a Recognizer.
type Func[T any] struct {
	Label string
	Fn    func(text string) (T, error)
}

func (f Func[T]) Recognize(text string) (T, error) {
	return f.Fn(text)
}

func (f Func[T]) Describe() string {
	return f.Label
}

// Chain tries its steps in order and returns the first recognized value.
//
// A malformed step does not stop the chain; later steps still get a
// chance. If no step succeeds, the first malformed error is returned, or
// ErrNotFound when every step reported absence.
type Chain[T any] struct {
	Label string
	Steps []Recognizer[T]
}

func (c Chain[T]) Recognize(text string) (T, error) {
	var zero T
	var malformed error
	for _, step := range c.Steps {
		v, err := step.Recognize(text)
		if err == nil {
			return v, nil
		}
		if IsNotFound(err) {
			continue
		}
		if malformed == nil {
			malformed = err
		}
	}
	if malformed != nil {
		return zero, malformed
	}
	return zero, ErrNotFound
}

func (c Chain[T]) Describe() string {
	return c.Label
}
