package syncx

import (
	"context"
	"time"
)

// Schedule places loop iterations on the wall clock. Each run starts Offset
// past a multiple of Interval, so a one-minute interval with a 30s offset
// fires at hh:mm:30 no matter when the loop was started.
type Schedule struct {
	Interval time.Duration
	Offset   time.Duration
	// Now reads the wall clock. Defaults to time.Now.
	Now func() time.Time
}

func (s Schedule) normalize() Schedule {
	if s.Interval <= 0 {
		s.Interval = time.Second
	}
	s.Offset %= s.Interval
	if s.Offset < 0 {
		s.Offset += s.Interval
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	return s
}

// Next returns the first aligned instant strictly after t.
func (s Schedule) Next(t time.Time) time.Time {
	s = s.normalize()
	next := t.Truncate(s.Interval).Add(s.Offset)
	if !next.After(t) {
		next = next.Add(s.Interval)
	}
	return next
}

// RunAligned calls fn once right away and then at every aligned instant of
// sched until ctx is done. The wait is recomputed from the clock after each
// call, so a slow fn or a late timer never shifts later runs off the grid.
func RunAligned(ctx context.Context, sched Schedule, fn func(ctx context.Context)) {
	if ctx == nil {
		ctx = context.Background()
	}
	if fn == nil {
		<-ctx.Done()
		return
	}
	sched = sched.normalize()

	fn(ctx)

	timer := time.NewTimer(wait(sched))
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			fn(ctx)
			timer.Reset(wait(sched))
		}
	}
}

func wait(s Schedule) time.Duration {
	now := s.Now()
	if d := s.Next(now).Sub(now); d > 0 {
		return d
	}
	return s.Interval
}
