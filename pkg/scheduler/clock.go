package scheduler

import "time"

// Clock abstracts timer creation so inter-action delays can be driven
// deterministically in tests. The production clock delegates to the runtime
// timer wheel, so a waiting execution holds no thread.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// NewRealClock returns the wall clock.
func NewRealClock() Clock {
	return realClock{}
}
