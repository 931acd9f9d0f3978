package eventbus

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/matthewbaird/landbank/internal/event"
	"github.com/matthewbaird/landbank/internal/export"
	"github.com/matthewbaird/landbank/internal/schedule"
	"github.com/matthewbaird/landbank/internal/store"
	"github.com/matthewbaird/landbank/internal/timing"
)

// MirrorConsumer regenerates a property's flat FileMaker record whenever an
// event touches it and emits the record as a JSON line for the downstream
// import job. The mirror is best-effort: a failed regeneration is logged
// and the event is otherwise dropped.
type MirrorConsumer struct {
	store   store.Store
	catalog schedule.Catalog
}

// NewMirrorConsumer creates a mirror consumer over the given store.
func NewMirrorConsumer(st store.Store, cat schedule.Catalog) *MirrorConsumer {
	return &MirrorConsumer{store: st, catalog: cat}
}

// HandleEvent mirrors the affected property. Events without a property
// (sweep summaries) are ignored.
func (c *MirrorConsumer) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	if evt.PropertyID == "" {
		return nil
	}

	prop, err := c.store.GetProperty(ctx, evt.PropertyID)
	if err != nil {
		log.Printf("mirror: skipping %s for %s: %v", evt.EventType, evt.PropertyID, err)
		return nil
	}
	comms, err := c.store.ListCommunications(ctx, evt.PropertyID)
	if err != nil {
		log.Printf("mirror: listing communications for %s: %v", evt.PropertyID, err)
		return nil
	}

	var res *timing.Result
	if computed, err := timing.Compute(timing.RecordFromProperty(prop, comms), c.catalog, time.Now()); err == nil {
		res = &computed
	} else {
		// Mirror the property anyway; derived fields stay empty.
		log.Printf("mirror: timing unavailable for %s: %v", evt.PropertyID, err)
	}

	flat := export.Flatten(prop, comms, res)
	line, _ := json.Marshal(flat.ToFileMakerFields())
	log.Printf("mirror: %s parcel=%s %s", evt.EventType, prop.ParcelID, line)
	return nil
}
