package app

import "time"

// Clock abstracts wall time so services and sweeps can be driven with
// arbitrary instants instead of depending on wall-clock side effects.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns a Clock backed by time.Now in UTC.
func SystemClock() Clock { return systemClock{} }
