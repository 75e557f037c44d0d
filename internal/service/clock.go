package service

import "time"

// Clock returns the current time. Services use time.Now unless a test swaps it.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}
