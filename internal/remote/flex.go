package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// The backend is PHP and does not keep JSON types stable: numbers and
// booleans may arrive quoted, and timestamps come in several shapes.

// FlexInt decodes 7, "7", "" and null.
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s, null, err := scalar(b)
	if err != nil {
		return err
	}
	if null || s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		fl, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("remote: invalid integer %q", s)
		}
		n = int64(fl)
	}
	*f = FlexInt(n)
	return nil
}

// FlexBool decodes true, 1, "1", "true", "yes" and their negations.
type FlexBool bool

func (f *FlexBool) UnmarshalJSON(b []byte) error {
	s, null, err := scalar(b)
	if err != nil {
		return err
	}
	if null {
		*f = false
		return nil
	}
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y", "t":
		*f = true
	case "", "0", "false", "no", "n", "f":
		*f = false
	default:
		return fmt.Errorf("remote: invalid boolean %q", s)
	}
	return nil
}

// FlexTime decodes "2006-01-02 15:04:05", RFC 3339, and unix seconds or
// milliseconds. Naive wall-clock strings decode as UTC readings until In
// places them in the backend's zone.
type FlexTime struct {
	time.Time
	naive bool
}

const serverLayout = "2006-01-02 15:04:05"

func (f *FlexTime) UnmarshalJSON(b []byte) error {
	s, null, err := scalar(b)
	if err != nil {
		return err
	}
	if null {
		*f = FlexTime{}
		return nil
	}
	t, naive, err := parseTime(s, time.UTC)
	if err != nil {
		return err
	}
	*f = FlexTime{Time: t, naive: naive}
	return nil
}

// In returns the decoded instant, reading a zoneless timestamp as wall
// time in loc. A nil loc means the local zone.
func (f FlexTime) In(loc *time.Location) time.Time {
	if !f.naive || f.IsZero() {
		return f.Time
	}
	if loc == nil {
		loc = time.Local
	}
	t := f.Time
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

// ParseTime parses any timestamp shape the backend emits, reading zoneless
// timestamps in loc (the local zone when nil). Empty input and the MySQL
// zero date yield the zero time.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, _, err := parseTime(s, loc)
	return t, err
}

func parseTime(s string, loc *time.Location) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "0000-00-00") {
		return time.Time{}, false, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n), false, nil
		}
		return time.Unix(n, 0), false, nil
	}
	if t, err := time.ParseInLocation(serverLayout, s, loc); err == nil {
		return t, true, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, false, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, loc); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("remote: invalid timestamp %q", s)
}

// scalar unwraps a JSON string, number, bool or null into its text form.
func scalar(b []byte) (string, bool, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return "", true, nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", false, err
		}
		return strings.TrimSpace(s), false, nil
	}
	if b[0] == '{' || b[0] == '[' {
		return "", false, fmt.Errorf("remote: expected scalar, got %s", b[:1])
	}
	return string(b), false, nil
}
