package model

import (
	"fmt"
	"time"
)

// Time is an immutable snapshot of the remaining countdown duration.
type Time struct {
	TimeInMillis int64 `json:"timeInMillis" yaml:"timeInMillis"`
	Hours        int   `json:"-" yaml:"-"`
	Minutes      int   `json:"-" yaml:"-"`
	Seconds      int   `json:"-" yaml:"-"`
	Millis       int   `json:"-" yaml:"-"`
}

// NewTime decomposes a remaining duration. Negative values clamp to zero.
func NewTime(remaining time.Duration) Time {
	return TimeFromMillis(remaining.Milliseconds())
}

// TimeFromMillis decomposes a millisecond remainder.
func TimeFromMillis(millis int64) Time {
	if millis < 0 {
		millis = 0
	}
	return Time{
		TimeInMillis: millis,
		Hours:        int(millis / 3_600_000),
		Minutes:      int(millis / 60_000 % 60),
		Seconds:      int(millis / 1000 % 60),
		Millis:       int(millis % 1000),
	}
}

// Duration converts the snapshot back to a time.Duration.
func (value Time) Duration() time.Duration {
	return time.Duration(value.TimeInMillis) * time.Millisecond
}

// IsZero reports whether no time remains.
func (value Time) IsZero() bool {
	return value.TimeInMillis == 0
}

// Format renders the value as MM:SS, or HH:MM:SS once an hour or more remains.
// withMillis appends hundredths of a second.
func (value Time) Format(withMillis bool) string {
	var text string
	if value.Hours > 0 {
		text = fmt.Sprintf("%02d:%02d:%02d", value.Hours, value.Minutes, value.Seconds)
	} else {
		text = fmt.Sprintf("%02d:%02d", value.Minutes, value.Seconds)
	}
	if withMillis {
		text += fmt.Sprintf(".%02d", value.Millis/10)
	}
	return text
}

func (value Time) String() string {
	return value.Format(true)
}
