package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Layouts accepted for dates coming from the admin UI, most specific first.
var flexTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// FlexTime is a JSON date that remembers whether the key was sent at all
// and whether it was sent as null.
type FlexTime struct {
	Time  time.Time
	Set   bool
	Valid bool
}

func (f *FlexTime) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.Valid = false
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		f.Valid = false
		return nil
	}

	t, err := ParseFlexTime(raw)
	if err != nil {
		return err
	}
	f.Time = t
	f.Valid = true
	return nil
}

func (f FlexTime) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Time)
}

// Ptr returns nil unless a real date was sent.
func (f FlexTime) Ptr() *time.Time {
	if !f.Valid {
		return nil
	}
	t := f.Time
	return &t
}

func ParseFlexTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range flexTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
