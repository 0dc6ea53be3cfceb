package scheduling

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidTimeFormat is returned when a time string is not a 24-hour HH:MM value.
var ErrInvalidTimeFormat = errors.New("invalid time format, expected HH:MM (24-hour)")

var timePattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)

// TimeOfDay is a wall-clock time stored as a zero-padded "HH:MM" string.
// The fixed width keeps lexicographic and chronological order identical.
type TimeOfDay string

// ParseTimeOfDay validates s and normalises it to "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	if !timePattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	parts := strings.SplitN(s, ":", 2)
	hour, _ := strconv.Atoi(parts[0])
	minute, _ := strconv.Atoi(parts[1])
	return FromMinutes(hour*60 + minute), nil
}

// MustTimeOfDay parses s and panics on malformed input. Intended for constants and tests.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// FromMinutes converts minutes since midnight to a TimeOfDay, clamped to the same day.
func FromMinutes(m int) TimeOfDay {
	if m < 0 {
		m = 0
	}
	if m >= 24*60 {
		m = 24*60 - 1
	}
	return TimeOfDay(fmt.Sprintf("%02d:%02d", m/60, m%60))
}

// Minutes returns the number of minutes since midnight.
func (t TimeOfDay) Minutes() int {
	t = t.canonical()
	if len(t) != 5 {
		return 0
	}
	hours := int(t[0]-'0')*10 + int(t[1]-'0')
	mins := int(t[3]-'0')*10 + int(t[4]-'0')
	return hours*60 + mins
}

// String returns the "HH:MM" form.
func (t TimeOfDay) String() string {
	return string(t)
}

// IsZero reports whether the value is unset.
func (t TimeOfDay) IsZero() bool {
	return t == ""
}

// canonical returns the zero-padded form of t, or t unchanged when it does not parse.
func (t TimeOfDay) canonical() TimeOfDay {
	if len(t) == 5 {
		return t
	}
	if parsed, err := ParseTimeOfDay(string(t)); err == nil {
		return parsed
	}
	return t
}

// Compare returns -1, 0 or 1 when a is before, equal to or after b.
// Unpadded values such as "9:00" are padded before comparing.
func Compare(a, b TimeOfDay) int {
	a, b = a.canonical(), b.canonical()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Before reports whether a is strictly earlier than b.
func Before(a, b TimeOfDay) bool {
	return Compare(a, b) < 0
}

// MarshalJSON renders the "HH:MM" string.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(t))
}

// UnmarshalJSON parses and normalises an "HH:MM" string.
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTimeFormat, string(data))
	}
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value stores the time as text.
func (t TimeOfDay) Value() (driver.Value, error) {
	return string(t), nil
}

// Scan reads a text column.
func (t *TimeOfDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*t = TimeOfDay(v)
	case []byte:
		*t = TimeOfDay(string(v))
	case nil:
		*t = ""
	default:
		return fmt.Errorf("scan time of day: unsupported type %T", src)
	}
	return nil
}
