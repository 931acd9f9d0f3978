package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/landbank/internal/event"
	"github.com/matthewbaird/landbank/internal/schedule"
	"github.com/matthewbaird/landbank/internal/store"
	"github.com/matthewbaird/landbank/internal/types"
)

type capture struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (c *capture) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *capture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestBus_DispatchesToAllSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := &capture{}
	b := &capture{}
	bus := New(8)
	bus.Subscribe("a", a)
	bus.Subscribe("b", b)
	bus.Start(ctx)

	bus.Publish(ctx, event.NewPropertyCreated(event.PropertyCreatedPayload{
		PropertyID: "p1", ParcelID: "X-1", ProgramType: "VIP",
	}))
	bus.Publish(ctx, event.NewPropertyUpdated(event.PropertyUpdatedPayload{
		PropertyID: "p1", ParcelID: "X-1",
	}))

	waitFor(t, func() bool { return a.count() == 2 && b.count() == 2 })
	assert.Equal(t, event.TypePropertyCreated, a.events[0].EventType)
}

func TestBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	failing := HandlerFunc(func(context.Context, event.DomainEvent) error {
		return errors.New("boom")
	})
	ok := &capture{}
	bus := New(8)
	bus.Subscribe("failing", failing)
	bus.Subscribe("ok", ok)
	bus.Start(ctx)

	bus.Publish(ctx, event.NewSweepCompleted(event.SweepCompletedPayload{Evaluated: 1}))
	waitFor(t, func() bool { return ok.count() == 1 })
}

func TestMirrorConsumer_SkipsUnknownProperty(t *testing.T) {
	c := NewMirrorConsumer(store.NewMemoryStore(), schedule.Default())
	err := c.HandleEvent(context.Background(), event.NewNoticeSent(event.NoticeSentPayload{
		PropertyID: "no-such-property",
		Action:     schedule.ActionAttempt1,
	}))
	assert.NoError(t, err)
}

func TestMirrorConsumer_MirrorsProperty(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	p := &types.Property{
		ParcelID:    "M-1",
		Address:     "1 Mirror St",
		ProgramType: "Featured Homes",
		CloseDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.CreateProperty(ctx, p))

	c := NewMirrorConsumer(st, schedule.Default())
	err := c.HandleEvent(ctx, event.NewPropertyCreated(event.PropertyCreatedPayload{
		PropertyID:  p.ID,
		ParcelID:    p.ParcelID,
		ProgramType: p.ProgramType,
	}))
	assert.NoError(t, err)
}
