package alert

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"studybot/pkg/x/syncx"
)

const DefaultInterval = 60 * time.Second

// Alert is the payload delivered for one matching entry.
type Alert struct {
	ID              string
	OwnerID         string
	Title           string
	Body            string
	Time            int
	DurationMinutes int
}

func newAlert(e Entry) Alert {
	return Alert{
		ID:              e.ID,
		OwnerID:         e.OwnerID,
		Title:           e.Name,
		Body:            e.Description,
		Time:            e.Time,
		DurationMinutes: e.DurationMinutes,
	}
}

// Source returns entries whose eligibility predicate holds for the tick.
type Source interface {
	ListDue(ctx context.Context, dayBit uint8, hhmm int) ([]Entry, error)
}

// Notifier delivers one alert to the fixed alert destination.
type Notifier interface {
	DeliverAlert(ctx context.Context, a Alert) error
}

type Options struct {
	Interval time.Duration
	// Offset is where ticks land inside each interval of wall-clock time.
	// Defaults to half the interval, away from the minute boundary.
	Offset    time.Duration
	Location  *time.Location
	Now       func() time.Time
	LogPrefix string
}

// Status is a snapshot of the scheduler's progress.
type Status struct {
	LastTickAt      time.Time `json:"last_tick_at"`
	LastDay         uint8     `json:"last_day_bit"`
	LastHHMM        int       `json:"last_hhmm"`
	LastMatches     int       `json:"last_matches"`
	LastFailures    int       `json:"last_failures"`
	TotalDeliveries int64     `json:"total_deliveries"`
	TotalFailures   int64     `json:"total_failures"`
	LastError       string    `json:"last_error,omitempty"`
}

// Scheduler fires alerts whose day mask and HHMM match the wall clock.
// A minute that passes without a tick is skipped, not replayed.
type Scheduler struct {
	source    Source
	notifier  Notifier
	interval  time.Duration
	offset    time.Duration
	loc       *time.Location
	now       func() time.Time
	logPrefix string

	mu      sync.Mutex
	status  Status
	lastKey string
}

func NewScheduler(source Source, notifier Notifier, opts Options) *Scheduler {
	s := &Scheduler{
		source:    source,
		notifier:  notifier,
		interval:  opts.Interval,
		offset:    opts.Offset,
		loc:       opts.Location,
		now:       opts.Now,
		logPrefix: strings.TrimSpace(opts.LogPrefix),
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.offset <= 0 || s.offset >= s.interval {
		s.offset = s.interval / 2
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logPrefix == "" {
		s.logPrefix = "[alert]"
	}
	return s
}

// Run ticks until ctx is done. It never returns early on delivery errors.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.source == nil || s.notifier == nil {
		return errors.New("alert scheduler requires a source and a notifier")
	}
	log.Printf("%s scheduler started interval=%s offset=%s tz=%s", s.logPrefix, s.interval, s.offset, s.loc)
	syncx.RunAligned(ctx, s.schedule(), func(ctx context.Context) {
		if _, err := s.Tick(ctx, s.now()); err != nil && ctx.Err() == nil {
			log.Printf("%s tick failed: %v", s.logPrefix, err)
		}
	})
	log.Printf("%s scheduler stopped", s.logPrefix)
	return ctx.Err()
}

func (s *Scheduler) schedule() syncx.Schedule {
	return syncx.Schedule{Interval: s.interval, Offset: s.offset, Now: s.now}
}

// Tick runs one check for the wall clock reading now and returns the number
// of alerts delivered. A second tick within the same calendar minute is a
// no-op.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) (int, error) {
	now = now.In(s.loc)
	day := DayBit(now.Weekday())
	hhmm := HHMM(now)

	key := now.Format("2006-01-02T15:04")
	s.mu.Lock()
	if key == s.lastKey {
		s.mu.Unlock()
		return 0, nil
	}
	s.lastKey = key
	s.mu.Unlock()

	entries, err := s.source.ListDue(ctx, day, hhmm)
	if err != nil {
		s.record(now, day, hhmm, 0, 0, err)
		return 0, fmt.Errorf("list due alerts: %w", err)
	}

	delivered, failures := 0, 0
	var lastErr error
	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		if !e.EligibleAt(day, hhmm) {
			continue
		}
		if err := s.notifier.DeliverAlert(ctx, newAlert(e)); err != nil {
			failures++
			lastErr = err
			log.Printf("%s deliver failed id=%s owner=%s: %v", s.logPrefix, e.ID, e.OwnerID, err)
			continue
		}
		delivered++
	}
	if len(entries) > 0 {
		log.Printf("%s tick day=%d hhmm=%04d matches=%d delivered=%d failed=%d", s.logPrefix, day, hhmm, len(entries), delivered, failures)
	}
	s.record(now, day, hhmm, delivered, failures, lastErr)
	return delivered, nil
}

func (s *Scheduler) record(now time.Time, day uint8, hhmm, delivered, failures int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.LastTickAt = now
	s.status.LastDay = day
	s.status.LastHHMM = hhmm
	s.status.LastMatches = delivered + failures
	s.status.LastFailures = failures
	s.status.TotalDeliveries += int64(delivered)
	s.status.TotalFailures += int64(failures)
	if err != nil {
		s.status.LastError = err.Error()
	}
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
