package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/auction/archive"
	"github.com/mcdev12/auctionhouse/go/internal/auction/catalog"
	"github.com/mcdev12/auctionhouse/go/internal/auction/events"
	"github.com/mcdev12/auctionhouse/go/internal/auction/outbox"
	"github.com/mcdev12/auctionhouse/go/internal/auction/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	server  *httptest.Server
	service *Service
	clock   *clockwork.FakeClock
}

func newTestServer(t *testing.T, maxSessions int) *testServer {
	t.Helper()
	return newTestServerWithArchive(t, maxSessions, nil)
}

func newTestServerWithArchive(t *testing.T, maxSessions int, results archive.Reader) *testServer {
	t.Helper()

	cat, err := catalog.New([]catalog.Category{
		{Name: "Batsmen", Players: []catalog.Item{{Name: "Virat", BasePrice: 200}, {Name: "Rohit", BasePrice: 150}}},
	})
	require.NoError(t, err)

	settings := session.DefaultSettings()
	settings.StartDelay = 0
	clock := clockwork.NewFakeClock()

	registry, err := session.NewRegistry(cat, settings, clock, nil, maxSessions)
	require.NoError(t, err)

	service := NewService(DefaultConfig(), registry, results)
	r := chi.NewRouter()
	service.RegisterRoutes(r)

	server := httptest.NewServer(r)
	t.Cleanup(func() {
		_ = service.Stop()
		server.Close()
	})
	return &testServer{server: server, service: service, clock: clock}
}

type client struct {
	t    *testing.T
	conn *websocket.Conn
}

func (ts *testServer) dial(t *testing.T) *client {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &client{t: t, conn: conn}
}

func (c *client) write(frame string) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

// read returns the next frame, whatever its type.
func (c *client) read() map[string]any {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := c.conn.ReadMessage()
	require.NoError(c.t, err)

	var msg map[string]any
	require.NoError(c.t, json.Unmarshal(data, &msg))
	return msg
}

// expect reads frames until one with the wanted type arrives.
func (c *client) expect(want string) map[string]any {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, data, err := c.conn.ReadMessage()
		require.NoError(c.t, err, "waiting for %s", want)

		var msg map[string]any
		require.NoError(c.t, json.Unmarshal(data, &msg))
		if msg["type"] == want {
			return msg
		}
	}
}

func TestGatewayAuctionFlow(t *testing.T) {
	ts := newTestServer(t, 0)

	clients := []*client{ts.dial(t), ts.dial(t), ts.dial(t)}
	for _, c := range clients {
		details := c.expect("teamDetails")
		assert.Equal(t, map[string]any{"MI": 1000.0, "RCB": 1000.0, "CSK": 1000.0}, details["teamBudgets"])
	}

	clients[0].write(`{"type":"select-team","team":"MI"}`)
	assert.Equal(t, "Team MI selected.", clients[0].expect("teamSelected")["message"])
	for _, c := range clients {
		assert.Equal(t, 2.0, c.expect("waitingForPlayers")["remaining"])
	}

	clients[1].write(`{"type":"select-team","team":"MI"}`)
	assert.Equal(t, "Team already taken. Choose another team.", clients[1].expect("error")["message"])

	// The rejection went to the requester only and changed nothing: the next
	// frame the other seats see is the broadcast for RCB.
	clients[1].write(`{"type":"select-team","team":"RCB"}`)
	for _, c := range []*client{clients[0], clients[2]} {
		msg := c.read()
		assert.Equal(t, "waitingForPlayers", msg["type"])
		assert.Equal(t, 1.0, msg["remaining"])
	}
	sess, ok := ts.service.registry.Get(1)
	require.True(t, ok)
	seats := sess.Snapshot().Seats
	require.Len(t, seats, 3)
	assert.Equal(t, []string{"MI", "RCB", ""}, []string{seats[0].Team, seats[1].Team, seats[2].Team})

	clients[2].write(`{"type":"select-team","team":"CSK"}`)

	for _, c := range clients {
		start := c.expect("startAuction")
		item := start["auctionData"].(map[string]any)
		assert.Equal(t, "Virat", item["name"])
		assert.Equal(t, 200.0, item["basePrice"])
		assert.Equal(t, "Batsmen", item["category"])
	}

	clients[0].write(`{"type":"placeBid","bidAmount":500}`)
	for _, c := range clients {
		bid := c.expect("newHighestBid")
		assert.Equal(t, 500.0, bid["bidAmount"])
		assert.Equal(t, "MI", bid["team"])
	}

	clients[1].write(`{"type":"placeBid","bidAmount":400}`)
	assert.Equal(t, "Invalid bid.", clients[1].expect("error")["message"])

	clients[2].write(`{"type":"placeBid","bidAmount":"lots"}`)
	assert.Equal(t, "Invalid bid.", clients[2].expect("error")["message"])
}

func TestGatewayRejectsBadFrames(t *testing.T) {
	ts := newTestServer(t, 0)
	c := ts.dial(t)
	c.expect("teamDetails")

	c.write(`not json`)
	assert.Equal(t, "Invalid message format.", c.expect("error")["message"])

	c.write(`{"type":"dance"}`)
	assert.Equal(t, "Unknown message type.", c.expect("error")["message"])

	// The connection survives both.
	c.write(`{"type":"select-team","team":"CSK"}`)
	c.expect("teamSelected")
}

func TestGatewayRejectsWhenFull(t *testing.T) {
	ts := newTestServer(t, 1)
	for i := 0; i < 3; i++ {
		ts.dial(t).expect("teamDetails")
	}

	late := ts.dial(t)
	assert.Equal(t, "Auction is full. Please try again later.", late.expect("error")["message"])

	_, _, err := late.conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseTryAgainLater))

	stats := ts.service.GetStats()
	assert.Equal(t, int64(3), stats.Accepted)
	assert.Equal(t, int64(1), stats.Rejected)
}

func TestGatewayDisconnectFreesAbandonedSession(t *testing.T) {
	ts := newTestServer(t, 1)
	first := ts.dial(t)
	first.expect("teamDetails")
	require.NoError(t, first.conn.Close())

	require.Eventually(t, func() bool {
		views := ts.service.registry.Snapshots()
		return len(views) == 1 && len(views[0].Seats) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStateEndpoints(t *testing.T) {
	ts := newTestServer(t, 0)
	c := ts.dial(t)
	c.expect("teamDetails")
	c.write(`{"type":"select-team","team":"RCB"}`)
	c.expect("teamSelected")

	resp, err := http.Get(ts.server.URL + "/api/sessions/1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view session.View
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, 1, view.ID)
	assert.Equal(t, session.StateFilling, view.State)
	require.Len(t, view.Seats, 1)
	assert.Equal(t, "RCB", view.Seats[0].Team)
	assert.True(t, view.Seats[0].Connected)

	list, err := http.Get(ts.server.URL + "/api/sessions")
	require.NoError(t, err)
	defer list.Body.Close()
	var views []session.View
	require.NoError(t, json.NewDecoder(list.Body).Decode(&views))
	assert.Len(t, views, 1)

	missing, err := http.Get(ts.server.URL + "/api/sessions/9")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	bad, err := http.Get(ts.server.URL + "/api/sessions/abc")
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestCheckOrigin(t *testing.T) {
	check := checkOrigin([]string{"https://auction.example"})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://auction.example")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(req))
}

func TestArchiveEndpoints(t *testing.T) {
	store, err := archive.OpenSQLite(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	payload, err := json.Marshal(events.ItemSoldPayload{
		SessionID: 1,
		Game:      1,
		Round:     1,
		Player:    events.Player{Name: "Virat", BasePrice: 200, Category: "Batsmen"},
		Team:      "MI",
		Price:     450,
		SoldAt:    time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, store.Publish(context.Background(), outbox.Event{
		ID:        uuid.New(),
		SessionID: 1,
		EventType: string(events.EventItemSold),
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}))

	ts := newTestServerWithArchive(t, 0, store)

	resp, err := http.Get(ts.server.URL + "/api/sessions/1/lots")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var lots []archive.Lot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&lots))
	require.Len(t, lots, 1)
	assert.Equal(t, "Virat", lots[0].Player)
	assert.Equal(t, "MI", lots[0].Team)
	assert.Equal(t, 450, lots[0].Price)

	games, err := http.Get(ts.server.URL + "/api/games?limit=5")
	require.NoError(t, err)
	defer games.Body.Close()
	require.Equal(t, http.StatusOK, games.StatusCode)
	var list []archive.Game
	require.NoError(t, json.NewDecoder(games.Body).Decode(&list))
	assert.Empty(t, list)

	for _, path := range []string{"/api/games?limit=0", "/api/games?limit=500", "/api/sessions/abc/lots"} {
		bad, err := http.Get(ts.server.URL + path)
		require.NoError(t, err)
		bad.Body.Close()
		assert.Equal(t, http.StatusBadRequest, bad.StatusCode, path)
	}
}
