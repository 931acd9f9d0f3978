package handler

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/landbank/internal/event"
	"github.com/matthewbaird/landbank/internal/schedule"
	"github.com/matthewbaird/landbank/internal/store"
	"github.com/matthewbaird/landbank/internal/types"
)

func TestLiveFeed_SnapshotAndEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	st := store.NewMemoryStore()
	require.NoError(t, st.CreateProperty(ctx, &types.Property{
		ParcelID:    "L-1",
		Address:     "1 Live St",
		ProgramType: "Featured Homes",
		CloseDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}))

	feed := NewLiveFeed(st, schedule.Default())
	srv := httptest.NewServer(feed)
	defer srv.Close()

	conn, _, err := websocket.Dial(ctx, "ws"+srv.URL[len("http"):], nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	// First frame is the ranked queue snapshot.
	var snapshot struct {
		Type string           `json:"type"`
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, wsjson.Read(ctx, conn, &snapshot))
	assert.Equal(t, "queue", snapshot.Type)
	require.Len(t, snapshot.Data, 1)
	assert.Equal(t, "L-1", snapshot.Data[0]["parcel_id"])

	// Give the writer loop a moment to register the client before
	// broadcasting.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, feed.HandleEvent(ctx, event.NewNoticeSent(event.NoticeSentPayload{
		PropertyID: "prop-1",
		Action:     schedule.ActionAttempt1,
		Recipient:  "buyer@example.com",
	})))

	var evt struct {
		Type string         `json:"type"`
		Data map[string]any `json:"data"`
	}
	require.NoError(t, wsjson.Read(ctx, conn, &evt))
	assert.Equal(t, "event", evt.Type)
	assert.Equal(t, event.TypeNoticeSent, evt.Data["event_type"])
}
