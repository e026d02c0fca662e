package store

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidReference is returned when an entry refers to a category or
	// tag id that does not exist.
	ErrInvalidReference = errors.New("referenced category or tag does not exist")

	// ErrDuplicateName is returned when a tag or category name is taken.
	ErrDuplicateName = errors.New("name already exists")
)

// timeLayout is fixed width so that text comparison in SQL is chronological.
const timeLayout = "2006-01-02 15:04:05.000000"

var parseLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// scanTime adapts a DATETIME column for rows.Scan whether the driver hands
// back a time.Time or the stored text.
type scanTime struct {
	t *time.Time
}

func (s scanTime) Scan(v any) error {
	switch x := v.(type) {
	case time.Time:
		*s.t = x.UTC()
		return nil
	case string:
		return s.parse(x)
	case []byte:
		return s.parse(string(x))
	case nil:
		*s.t = time.Time{}
		return nil
	default:
		return fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func (s scanTime) parse(v string) error {
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			*s.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("parse timestamp %q", v)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
