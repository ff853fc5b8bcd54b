package domain

import (
	"encoding"
	"fmt"
	"strings"
)

// Grade is the recall quality a reviewer assigns to a card. The numeric values
// are the quality scores the scheduler works with; 1 is intentionally unused.
type Grade int

// Possible grade values
const (
	GradeAgain Grade = 0
	GradeHard  Grade = 2
	GradeGood  Grade = 3
	GradeEasy  Grade = 4
)

var gradeNames = map[Grade]string{
	GradeAgain: "again",
	GradeHard:  "hard",
	GradeGood:  "good",
	GradeEasy:  "easy",
}

var (
	_ fmt.Stringer             = Grade(0)
	_ encoding.TextMarshaler   = Grade(0)
	_ encoding.TextUnmarshaler = (*Grade)(nil)
)

// ParseGrade converts a grade name (again, hard, good, easy) into a Grade.
// Matching is case-insensitive. Unknown names return an error wrapping
// ErrInvalidArgument.
func ParseGrade(s string) (Grade, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for g, n := range gradeNames {
		if n == name {
			return g, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown grade %q", ErrInvalidArgument, s)
}

// GradeFromInt converts a numeric quality score into a Grade. Only 0, 2, 3 and
// 4 are accepted; anything else returns an error wrapping ErrInvalidArgument.
func GradeFromInt(q int) (Grade, error) {
	g := Grade(q)
	if !g.IsValid() {
		return 0, fmt.Errorf("%w: grade value %d out of range", ErrInvalidArgument, q)
	}
	return g, nil
}

// IsValid reports whether g is one of the defined grades.
func (g Grade) IsValid() bool {
	_, ok := gradeNames[g]
	return ok
}

// String returns the lower-case grade name, or "Grade(n)" for invalid values.
func (g Grade) String() string {
	if n, ok := gradeNames[g]; ok {
		return n
	}
	return fmt.Sprintf("Grade(%d)", int(g))
}

// MarshalText implements encoding.TextMarshaler.
func (g Grade) MarshalText() ([]byte, error) {
	if !g.IsValid() {
		return nil, fmt.Errorf("%w: grade value %d out of range", ErrInvalidArgument, int(g))
	}
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Grade) UnmarshalText(text []byte) error {
	parsed, err := ParseGrade(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
