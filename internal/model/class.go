package model

import "fmt"

// ClassLevel is one of the fixed grade levels a student or exam belongs to.
type ClassLevel string

const (
	ClassJSS1 ClassLevel = "JSS 1"
	ClassJSS2 ClassLevel = "JSS 2"
	ClassJSS3 ClassLevel = "JSS 3"
	ClassSS1  ClassLevel = "SS 1"
	ClassSS2  ClassLevel = "SS 2"
	ClassSS3  ClassLevel = "SS 3"
)

// AllClassLevels lists every class level in ascending order.
var AllClassLevels = []ClassLevel{
	ClassJSS1,
	ClassJSS2,
	ClassJSS3,
	ClassSS1,
	ClassSS2,
	ClassSS3,
}

// Valid reports whether c is one of the known class levels.
func (c ClassLevel) Valid() bool {
	switch c {
	case ClassJSS1, ClassJSS2, ClassJSS3, ClassSS1, ClassSS2, ClassSS3:
		return true
	default:
		return false
	}
}

// Senior reports whether the class belongs to the senior secondary school.
func (c ClassLevel) Senior() bool {
	switch c {
	case ClassSS1, ClassSS2, ClassSS3:
		return true
	case ClassJSS1, ClassJSS2, ClassJSS3:
		return false
	default:
		return false
	}
}

// ParseClassLevel converts a raw string into a ClassLevel.
func ParseClassLevel(raw string) (ClassLevel, error) {
	c := ClassLevel(raw)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidClass, raw)
	}
	return c, nil
}
