package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// FlexTime decodes the date representations offline clients actually
// send: RFC 3339 strings, bare YYYY-MM-DD dates, or epoch milliseconds.
// Storage always sees the RFC 3339 UTC form.
type FlexTime struct {
	t   time.Time
	set bool
}

// NewFlexTime wraps a concrete time.
func NewFlexTime(t time.Time) FlexTime {
	return FlexTime{t: t.UTC(), set: true}
}

// IsZero reports whether the field was absent or null.
func (f FlexTime) IsZero() bool {
	return !f.set
}

// Time returns the decoded instant in UTC.
func (f FlexTime) Time() time.Time {
	return f.t
}

// Storage returns the canonical RFC 3339 UTC string written to the store.
func (f FlexTime) Storage() string {
	return f.t.UTC().Format(time.RFC3339)
}

// UnmarshalJSON accepts a string (RFC 3339 or YYYY-MM-DD) or a number
// (milliseconds since epoch).
func (f *FlexTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = FlexTime{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = FlexTime{}
			return nil
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				*f = FlexTime{t: t.UTC(), set: true}
				return nil
			}
		}
		return fmt.Errorf("unrecognized date format %q", s)
	}
	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("date must be a string or epoch milliseconds: %w", err)
	}
	*f = FlexTime{t: time.UnixMilli(ms).UTC(), set: true}
	return nil
}

// MarshalJSON emits the canonical form.
func (f FlexTime) MarshalJSON() ([]byte, error) {
	if !f.set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Storage())
}
