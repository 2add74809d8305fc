// Package sweeper runs the background job that expires stale pending
// reservations so their units return to the pool.
package sweeper

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/event-ticketing/internal/ledger"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// Sweeper periodically walks every event and expires pending tickets
// older than TTL.
type Sweeper struct {
	Events   repository.EventRepo
	Ledger   *ledger.Ledger
	Interval time.Duration // how often to sweep
	TTL      time.Duration // pending tickets older than this are expired
}

// New constructs a Sweeper with sane fallbacks for zero durations.
func New(events repository.EventRepo, l *ledger.Ledger, interval, ttl time.Duration) *Sweeper {
	if events == nil || l == nil {
		panic("nil dependency passed to sweeper.New")
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Sweeper{Events: events, Ledger: l, Interval: interval, TTL: ttl}
}

// Run blocks, sweeping on every tick until ctx is cancelled. Intended
// to be launched in its own goroutine from main.
func (s *Sweeper) Run(ctx context.Context) {
	log.Printf("sweeper: started (interval=%s ttl=%s)", s.Interval, s.TTL)
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("sweeper: stopped")
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

// sweepOnce expires stale pending tickets across all events. Per-event
// failures are logged and do not abort the rest of the pass.
func (s *Sweeper) sweepOnce(ctx context.Context) {
	ids, err := s.Events.ListIDs(ctx)
	if err != nil {
		log.Printf("sweeper: list events: %v", err)
		return
	}
	total := 0
	for _, id := range ids {
		n, err := s.Ledger.ExpireStalePending(ctx, id, s.TTL)
		if err != nil {
			log.Printf("sweeper: event %s: %v", id, err)
			continue
		}
		total += n
	}
	if total > 0 {
		log.Printf("sweeper: expired %d stale reservations", total)
	}
}
