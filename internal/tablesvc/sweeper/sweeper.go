// Package sweeper periodically releases the short codes of tables that have
// aged out of the activity window.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
)

type CodeClearer interface {
	ClearStaleCodes(ctx context.Context, createdBefore time.Time) (int64, error)
}

type Sweeper struct {
	tables   CodeClearer
	window   time.Duration
	interval time.Duration
	now      func() time.Time
	sched    gocron.Scheduler
}

func New(tables CodeClearer, window, interval time.Duration) *Sweeper {
	return &Sweeper{tables: tables, window: window, interval: interval, now: time.Now}
}

// Sweep clears the codes of every table created before now minus the window.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.window)
	n, err := s.tables.ClearStaleCodes(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("clear stale codes: %w", err)
	}
	if n > 0 {
		log.Infof("[Sweeper] released %d table codes created before %s", n, cutoff.Format(time.RFC3339))
	}
	return n, nil
}

// Start schedules Sweep every interval, running once immediately.
func (s *Sweeper) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := s.Sweep(ctx); err != nil {
				log.Errorf("[Sweeper] %s", err)
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}

	sched.Start()
	s.sched = sched
	return nil
}

func (s *Sweeper) Stop() error {
	if s.sched == nil {
		return nil
	}
	return s.sched.Shutdown()
}
