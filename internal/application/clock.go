package application

import "time"

// Clock interface supaya gampang ditest
type Clock interface {
	Now() time.Time
}

// SystemClock reports the current UTC time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns T. Used by tests and by the CLI for reproducible output.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }
