// Package system provides the wall clock and run timestamp formatting.
package system

import "time"

// StampLayout formats run timestamps used in log file names. It sorts
// lexically and contains no path separators or colons.
const StampLayout = "20060102T150405Z"

// Clock implements crawler.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}

// Stamp renders t as a run timestamp in UTC.
func Stamp(t time.Time) string {
	return t.UTC().Format(StampLayout)
}
