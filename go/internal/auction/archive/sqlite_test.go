package archive

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/auction/events"
	"github.com/mcdev12/auctionhouse/go/internal/auction/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newEvent(t *testing.T, eventType events.DomainEventType, payload any) outbox.Event {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return outbox.Event{
		ID:        uuid.New(),
		SessionID: 1,
		EventType: string(eventType),
		Payload:   data,
		CreatedAt: time.Now().UTC(),
	}
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	_, err := OpenSQLite("  ")
	assert.Error(t, err)
}

func TestSQLiteStoreRecordsLots(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	soldAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	sold := newEvent(t, events.EventItemSold, events.ItemSoldPayload{
		SessionID: 1,
		Game:      1,
		Round:     1,
		Player:    events.Player{Name: "Virat", BasePrice: 200, Category: "Batsmen"},
		Team:      "CSK",
		Price:     900,
		Remaining: 100,
		SoldAt:    soldAt,
	})
	unsold := newEvent(t, events.EventItemUnsold, events.ItemUnsoldPayload{
		SessionID: 1,
		Game:      1,
		Round:     2,
		Player:    events.Player{Name: "Rohit", BasePrice: 150, Category: "Batsmen"},
		ClosedAt:  soldAt.Add(20 * time.Second),
	})

	require.NoError(t, store.Publish(ctx, sold))
	require.NoError(t, store.Publish(ctx, sold), "replayed event is ignored")
	require.NoError(t, store.Publish(ctx, unsold))
	require.NoError(t, store.Publish(ctx, newEvent(t, events.EventSessionReset, events.SessionResetPayload{SessionID: 1})))

	lots, err := store.ListLots(ctx, 1)
	require.NoError(t, err)
	require.Len(t, lots, 2)

	assert.Equal(t, Lot{
		EventID:   sold.ID.String(),
		SessionID: 1,
		Game:      1,
		Round:     1,
		Player:    "Virat",
		Category:  "Batsmen",
		BasePrice: 200,
		Sold:      true,
		Team:      "CSK",
		Price:     900,
		ClosedAt:  soldAt,
	}, lots[0])
	assert.False(t, lots[1].Sold)
	assert.Equal(t, "Rohit", lots[1].Player)
	assert.Empty(t, lots[1].Team)

	other, err := store.ListLots(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSQLiteStoreRecordsGames(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	completed := newEvent(t, events.EventAuctionCompleted, events.AuctionCompletedPayload{
		SessionID:   1,
		Game:        1,
		Purchases:   map[string][]events.Purchase{"MI": {{Name: "Virat", Price: 250}}, "RCB": {}, "CSK": {}},
		Budgets:     map[string]int{"MI": 750, "RCB": 1000, "CSK": 1000},
		CompletedAt: time.Date(2025, 3, 1, 12, 10, 0, 0, time.UTC),
		Duration:    "1m0s",
	})
	require.NoError(t, store.Publish(ctx, completed))

	games, err := store.ListGames(ctx, 10)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, []events.Purchase{{Name: "Virat", Price: 250}}, games[0].Purchases["MI"])
	assert.Equal(t, 750, games[0].Budgets["MI"])
	assert.Equal(t, "1m0s", games[0].Duration)

	_, err = store.ListGames(ctx, 0)
	assert.Error(t, err)
}

func TestSQLiteStoreRejectsCorruptPayload(t *testing.T) {
	store := openTestStore(t)
	event := outbox.Event{ID: uuid.New(), EventType: string(events.EventItemSold), Payload: json.RawMessage(`{"price":"lots"}`)}

	err := store.Publish(context.Background(), event)
	assert.Error(t, err)
}

func TestPostgresSchemaEmbedded(t *testing.T) {
	schema := PostgresSchema()
	assert.Contains(t, schema, "auction_lots")
	assert.Contains(t, schema, "auction_games")
}
