// Package worker contains the background sweep that keeps the outreach
// queue and the FileMaker mirror current without staff opening the portal.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/matthewbaird/landbank/internal/event"
	"github.com/matthewbaird/landbank/internal/eventbus"
	"github.com/matthewbaird/landbank/internal/schedule"
	"github.com/matthewbaird/landbank/internal/store"
	"github.com/matthewbaird/landbank/internal/timing"
	"github.com/matthewbaird/landbank/internal/types"
)

// Sweep periodically recomputes the ranked outreach queue for the whole
// portfolio and publishes a summary event. The wall clock enters the timing
// computation here; everything below takes today as an argument.
type Sweep struct {
	store    store.Store
	bus      *eventbus.Bus
	catalog  schedule.Catalog
	interval time.Duration
}

// NewSweep creates a sweep worker. A non-positive interval defaults to an
// hour.
func NewSweep(st store.Store, bus *eventbus.Bus, cat schedule.Catalog, interval time.Duration) *Sweep {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweep{store: st, bus: bus, catalog: cat, interval: interval}
}

// Run sweeps once immediately, then on every tick until the context is
// cancelled.
func (s *Sweep) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sweep) sweep(ctx context.Context) {
	props, err := s.store.ListProperties(ctx, store.PropertyFilter{Limit: 10000})
	if err != nil {
		log.Printf("sweep: listing properties: %v", err)
		return
	}
	allComms, err := s.store.ListCommunications(ctx, "")
	if err != nil {
		log.Printf("sweep: listing communications: %v", err)
		return
	}
	commsByProperty := make(map[string][]types.Communication)
	for _, c := range allComms {
		commsByProperty[c.PropertyID] = append(commsByProperty[c.PropertyID], c)
	}

	records := make([]timing.Record, 0, len(props))
	for _, p := range props {
		records = append(records, timing.RecordFromProperty(p, commsByProperty[p.ID]))
	}

	results := timing.RankByUrgency(records, s.catalog, time.Now())
	stats := timing.Summarize(results)

	for _, res := range results {
		if res.IsDueNow {
			s.bus.Publish(ctx, event.NewNoticeDue(event.NoticeDuePayload{
				PropertyID:  res.PropertyID,
				ParcelID:    res.ParcelID,
				Action:      res.CurrentAction,
				DaysOverdue: res.DaysOverdue,
			}))
		}
	}

	s.bus.Publish(ctx, event.NewSweepCompleted(event.SweepCompletedPayload{
		Evaluated: len(records),
		DueNow:    stats.DueNow,
		Overdue:   stats.Overdue,
		Excluded:  len(records) - len(results),
	}))
	log.Printf("sweep: %d evaluated, %d due now, %d overdue, %d excluded",
		len(records), stats.DueNow, stats.Overdue, len(records)-len(results))
}
