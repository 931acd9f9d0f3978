package handler

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/matthewbaird/landbank/internal/event"
	"github.com/matthewbaird/landbank/internal/schedule"
	"github.com/matthewbaird/landbank/internal/store"
	"github.com/matthewbaird/landbank/internal/timing"
)

// clientBuffer is the per-connection message buffer; a client that cannot
// keep up loses messages rather than stalling the bus consumer.
const clientBuffer = 16

// liveMessage is the wire shape for the dashboard feed.
type liveMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// LiveFeed pushes compliance activity to connected dashboards. It is both a
// bus subscriber (events fan out to clients) and an HTTP handler (each
// connection gets a queue snapshot, then the event stream).
type LiveFeed struct {
	store   store.Store
	catalog schedule.Catalog

	mu      sync.Mutex
	clients map[chan liveMessage]struct{}
}

// NewLiveFeed creates a live feed over the given store.
func NewLiveFeed(st store.Store, cat schedule.Catalog) *LiveFeed {
	return &LiveFeed{
		store:   st,
		catalog: cat,
		clients: make(map[chan liveMessage]struct{}),
	}
}

// HandleEvent broadcasts portal events to every connected dashboard.
func (f *LiveFeed) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	f.broadcast(liveMessage{
		Type: "event",
		Data: map[string]any{
			"event_type":  evt.EventType,
			"property_id": evt.PropertyID,
			"summary":     evt.Summary,
			"occurred_at": evt.OccurredAt,
		},
	})
	return nil
}

func (f *LiveFeed) broadcast(msg liveMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.clients {
		select {
		case ch <- msg:
		default:
			// Slow client; drop the message.
		}
	}
}

func (f *LiveFeed) register() chan liveMessage {
	ch := make(chan liveMessage, clientBuffer)
	f.mu.Lock()
	f.clients[ch] = struct{}{}
	f.mu.Unlock()
	return ch
}

func (f *LiveFeed) unregister(ch chan liveMessage) {
	f.mu.Lock()
	delete(f.clients, ch)
	f.mu.Unlock()
}

// ServeHTTP upgrades to WebSocket, sends the current ranked queue, then
// streams events until the client disconnects.
func (f *LiveFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Printf("live: websocket accept: %v", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	// Initial snapshot.
	props, byProperty, err := loadPortfolio(ctx, f.store)
	if err != nil {
		log.Printf("live: loading snapshot: %v", err)
		return
	}
	results := timing.RankByUrgency(portfolioRecords(props, byProperty), f.catalog, time.Now())
	if err := wsjson.Write(ctx, conn, liveMessage{Type: "queue", Data: results}); err != nil {
		log.Printf("live: write error: %v", err)
		return
	}

	ch := f.register()
	defer f.unregister(ch)

	// Reader goroutine: consume client frames (pings) and signal close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			var msg liveMessage
			if err := wsjson.Read(ctx, conn, &msg); err != nil {
				if websocket.CloseStatus(err) != -1 {
					log.Printf("live: connection closed: %v", websocket.CloseStatus(err))
				}
				return
			}
			if msg.Type == "ping" {
				f.mu.Lock()
				if _, ok := f.clients[ch]; ok {
					select {
					case ch <- liveMessage{Type: "pong"}:
					default:
					}
				}
				f.mu.Unlock()
			}
		}
	}()

	for {
		select {
		case msg := <-ch:
			if err := wsjson.Write(ctx, conn, msg); err != nil {
				log.Printf("live: write error: %v", err)
				return
			}
		case <-closed:
			return
		case <-ctx.Done():
			return
		}
	}
}
