package terminology

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyPattern        = errors.New("pattern group has no first pattern")
	ErrTooManyPatterns     = errors.New("pattern group has more than 5 patterns")
	ErrEmptyContextPattern = errors.New("context pattern is empty")
	ErrBadContext          = errors.New("invalid context pattern attribute")
	ErrBadPattern          = errors.New("pattern does not compile")

	// ErrContextOverflow signals that more context patterns were satisfied
	// than a pattern group declares. It can only come from a matcher defect.
	ErrContextOverflow = errors.New("satisfied context patterns exceed declared count")
)

// RuleError is a configuration error located in the rule definitions.
// Indexes are zero-based; -1 means the error is not tied to that level.
type RuleError struct {
	Rule    int
	Group   int
	Context int
	Err     error
}

func (e *RuleError) Error() string {
	var loc []string
	if e.Rule >= 0 {
		loc = append(loc, fmt.Sprintf("rule %d", e.Rule))
	}
	if e.Group >= 0 {
		loc = append(loc, fmt.Sprintf("group %d", e.Group))
	}
	if e.Context >= 0 {
		loc = append(loc, fmt.Sprintf("context %d", e.Context))
	}
	if len(loc) == 0 {
		return "terminology: " + e.Err.Error()
	}
	return fmt.Sprintf("terminology: %s: %s", strings.Join(loc, ", "), e.Err.Error())
}

func (e *RuleError) Unwrap() error {
	return e.Err
}
