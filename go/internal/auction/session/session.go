package session

import (
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/auction/catalog"
	"github.com/mcdev12/auctionhouse/go/internal/auction/events"
	"github.com/rs/zerolog/log"
)

// Conn is the outbound half of a client connection bound to a seat.
// Send must not block; it reports false when the message was not queued.
type Conn interface {
	ID() string
	Send(msg events.Outbound) bool
}

// EventSink receives domain events. Emit must not block.
type EventSink interface {
	Emit(sessionID int, eventType events.DomainEventType, payload any)
}

type State string

const (
	StateFilling  State = "filling"
	StateStarting State = "starting"
	StateBidding  State = "bidding"
)

// Seat is one bidder slot in a session.
type Seat struct {
	ID     int
	Team   string
	Budget int
	conn   Conn
}

// Bid is the standing highest bid on the current item.
type Bid struct {
	Amount int    `json:"amount"`
	Team   string `json:"team"`
}

// Session is the auction state machine for one roster of bidders. Every
// exported method runs as a single critical section under mu.
type Session struct {
	mu sync.Mutex

	id       int
	settings Settings
	catalog  *catalog.Catalog
	clock    clockwork.Clock
	sink     EventSink

	seats      []*Seat
	nextSeatID int
	state      State
	cursor     catalog.Cursor
	highestBid *Bid
	purchases  map[string][]events.Purchase
	round      uint64
	countdown  *countdown
	startTimer clockwork.Timer
	startedAt  time.Time
	// game numbers every auction started by this session, abandoned ones
	// included; games counts the completed ones.
	game  int
	games int
}

// New creates an empty session. sink may be nil.
func New(id int, cat *catalog.Catalog, settings Settings, clock clockwork.Clock, sink EventSink) *Session {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Session{
		id:         id,
		settings:   settings,
		catalog:    cat,
		clock:      clock,
		sink:       sink,
		nextSeatID: 1,
		state:      StateFilling,
		purchases:  newPurchases(settings.Teams),
	}
}

func (s *Session) ID() int { return s.id }

// Join gives conn the next free seat and sends it the current team details.
func (s *Session) Join(conn Conn) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.seats) >= s.settings.Capacity {
		return 0, ErrSessionFull
	}

	seat := &Seat{ID: s.nextSeatID, Budget: s.settings.StartingBudget, conn: conn}
	s.nextSeatID++
	s.seats = append(s.seats, seat)

	log.Info().
		Int("session_id", s.id).
		Int("seat_id", seat.ID).
		Str("connection_id", conn.ID()).
		Int("seats", len(s.seats)).
		Msg("seat joined session")

	s.sendLocked(seat, events.NewTeamDetails(s.teamBudgetsLocked(), s.purchasesLocked()))
	return seat.ID, nil
}

// SelectTeam claims team for the seat. Once every seat holds a team the
// auction is scheduled to start.
func (s *Session) SelectTeam(seatID int, team string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seat := s.seatLocked(seatID)
	if seat == nil {
		return ErrUnknownSeat
	}
	if !slices.Contains(s.settings.Teams, team) {
		return fmt.Errorf("%w: %q", ErrUnknownTeam, team)
	}
	if seat.Team != "" {
		return fmt.Errorf("%w: %s", ErrTeamAlreadyChosen, seat.Team)
	}
	if s.seatByTeamLocked(team) != nil {
		return fmt.Errorf("%w: %s", ErrTeamTaken, team)
	}

	seat.Team = team
	chosen := s.teamsChosenLocked()

	log.Info().
		Int("session_id", s.id).
		Int("seat_id", seat.ID).
		Str("team", team).
		Int("teams_chosen", chosen).
		Msg("team selected")

	s.sendLocked(seat, events.NewTeamSelected(team))
	s.broadcastLocked(events.NewWaitingForPlayers(s.settings.Capacity - chosen))

	if chosen == s.settings.Capacity {
		s.scheduleStartLocked()
	}
	return nil
}

// PlaceBid raises the highest bid on the current item. The comparison with
// the standing bid and the write happen under the same lock.
func (s *Session) PlaceBid(seatID int, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seat := s.seatLocked(seatID)
	if seat == nil {
		return ErrUnknownSeat
	}
	if s.state != StateBidding {
		return fmt.Errorf("%w: no item is up for auction", ErrInvalidBid)
	}
	if seat.Team == "" {
		return fmt.Errorf("%w: seat has no team", ErrInvalidBid)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("%w: amount is not a number", ErrInvalidBid)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidBid)
	}
	if amount != math.Trunc(amount) {
		return fmt.Errorf("%w: amount must be a whole number", ErrInvalidBid)
	}
	if amount > float64(seat.Budget) {
		return fmt.Errorf("%w: amount exceeds budget of %d", ErrInvalidBid, seat.Budget)
	}

	value := int(amount)
	current := 0
	if s.highestBid != nil {
		current = s.highestBid.Amount
	}
	if value <= current {
		return fmt.Errorf("%w: amount must exceed %d", ErrInvalidBid, current)
	}

	s.highestBid = &Bid{Amount: value, Team: seat.Team}

	log.Debug().
		Int("session_id", s.id).
		Uint64("round", s.round).
		Str("team", seat.Team).
		Int("amount", value).
		Msg("new highest bid")

	s.broadcastLocked(events.NewHighestBidMessage(value, seat.Team))
	return nil
}

// TimerEnded handles a client-reported countdown expiry. It resolves the
// current item only when the signal matches the live round and the server's
// own countdown is about to expire; anything else is stale and ignored.
func (s *Session) TimerEnded(seatID int, round *uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seatLocked(seatID) == nil {
		return false
	}
	if s.state != StateBidding || s.countdown == nil {
		return false
	}
	if round != nil && *round != s.round {
		return false
	}
	if s.countdown.timeLeft > s.settings.ExpirySlack {
		return false
	}

	log.Debug().
		Int("session_id", s.id).
		Int("seat_id", seatID).
		Uint64("round", s.round).
		Int("time_left", s.countdown.timeLeft).
		Msg("client reported expiry, resolving item")

	s.disarmLocked()
	s.resolveLocked()
	return true
}

// Disconnect drops the seat's connection from fan-out. The seat and its team
// stay reserved until the session resets.
func (s *Session) Disconnect(seatID int, conn Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seat := s.seatLocked(seatID)
	if seat == nil || seat.conn != conn {
		return
	}
	seat.conn = nil

	log.Info().
		Int("session_id", s.id).
		Int("seat_id", seatID).
		Str("connection_id", conn.ID()).
		Msg("seat disconnected")

	if s.settings.ResetWhenAbandoned && s.liveConnsLocked() == 0 {
		s.resetLocked("abandoned")
	}
}

// Close cancels any pending timers without touching the roster.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disarmLocked()
	s.stopStartTimerLocked()
}

func (s *Session) startAuctionLocked() {
	s.startTimer = nil
	s.state = StateBidding
	s.cursor = s.catalog.First()
	s.highestBid = nil
	s.startedAt = s.clock.Now()
	s.game++

	lot, _ := s.catalog.Lot(s.cursor)
	player := events.PlayerFromLot(lot)

	s.round++
	s.armLocked()

	log.Info().
		Int("session_id", s.id).
		Int("game", s.game).
		Uint64("round", s.round).
		Str("player", player.Name).
		Msg("auction started")

	s.broadcastLocked(events.NewStartAuction(player, s.round))

	teams := make(map[string]int, len(s.seats))
	for _, seat := range s.seats {
		teams[seat.Team] = seat.ID
	}
	s.emit(events.EventAuctionStarted, events.AuctionStartedPayload{
		SessionID:  s.id,
		Game:       s.game,
		Teams:      teams,
		TotalItems: s.catalog.Len(),
		FirstItem:  player,
		StartedAt:  s.startedAt,
	})
}

// resolveLocked closes the current item as sold or unsold and moves on.
// The countdown must already be disarmed.
func (s *Session) resolveLocked() {
	lot, _ := s.catalog.Lot(s.cursor)
	player := events.PlayerFromLot(lot)

	if s.highestBid != nil {
		bid := *s.highestBid
		s.highestBid = nil

		s.purchases[bid.Team] = append(s.purchases[bid.Team], events.Purchase{Name: player.Name, Price: bid.Amount})
		remaining := 0
		if winner := s.seatByTeamLocked(bid.Team); winner != nil {
			winner.Budget -= bid.Amount
			remaining = winner.Budget
		}

		log.Info().
			Int("session_id", s.id).
			Uint64("round", s.round).
			Str("player", player.Name).
			Str("team", bid.Team).
			Int("price", bid.Amount).
			Msg("player sold")

		s.broadcastLocked(events.NewPlayerSold(player, bid.Team, bid.Amount, s.purchasesLocked()))
		s.emit(events.EventItemSold, events.ItemSoldPayload{
			SessionID: s.id,
			Game:      s.game,
			Round:     s.round,
			Player:    player,
			Team:      bid.Team,
			Price:     bid.Amount,
			Remaining: remaining,
			SoldAt:    s.clock.Now(),
		})
	} else {
		log.Info().
			Int("session_id", s.id).
			Uint64("round", s.round).
			Str("player", player.Name).
			Msg("player unsold")

		s.broadcastLocked(events.NewPlayerUnsold(player))
		s.emit(events.EventItemUnsold, events.ItemUnsoldPayload{
			SessionID: s.id,
			Game:      s.game,
			Round:     s.round,
			Player:    player,
			ClosedAt:  s.clock.Now(),
		})
	}

	s.advanceLocked()
}

func (s *Session) advanceLocked() {
	next, ok := s.catalog.Next(s.cursor)
	if !ok {
		s.completeLocked()
		return
	}

	s.cursor = next
	lot, _ := s.catalog.Lot(s.cursor)
	player := events.PlayerFromLot(lot)

	s.round++
	s.armLocked()
	s.broadcastLocked(events.NewAuctionPlayerMessage(player, s.round))
}

func (s *Session) completeLocked() {
	now := s.clock.Now()
	s.games++

	log.Info().
		Int("session_id", s.id).
		Int("game", s.game).
		Dur("duration", now.Sub(s.startedAt)).
		Msg("auction complete")

	s.broadcastLocked(events.NewAuctionComplete())
	s.emit(events.EventAuctionCompleted, events.AuctionCompletedPayload{
		SessionID:   s.id,
		Game:        s.game,
		Purchases:   s.purchasesLocked(),
		Budgets:     s.teamBudgetsLocked(),
		CompletedAt: now,
		Duration:    now.Sub(s.startedAt).String(),
	})

	s.resetLocked("completed")
}

// resetLocked recycles the session for a new roster. Seat ids keep counting
// so a stale connection can never address a seat of the next game.
func (s *Session) resetLocked(reason string) {
	s.disarmLocked()
	s.stopStartTimerLocked()

	s.seats = nil
	s.state = StateFilling
	s.cursor = catalog.Cursor{}
	s.highestBid = nil
	s.purchases = newPurchases(s.settings.Teams)
	s.startedAt = time.Time{}

	log.Info().Int("session_id", s.id).Str("reason", reason).Msg("session reset")

	s.emit(events.EventSessionReset, events.SessionResetPayload{
		SessionID: s.id,
		Reason:    reason,
		ResetAt:   s.clock.Now(),
	})
}

// broadcastLocked fans msg out to every connected seat. A seat that cannot
// take the message is skipped.
func (s *Session) broadcastLocked(msg events.Outbound) {
	delivered := 0
	for _, seat := range s.seats {
		if s.sendLocked(seat, msg) {
			delivered++
		}
	}

	log.Debug().
		Int("session_id", s.id).
		Str("message_type", string(msg.MessageType())).
		Int("delivered", delivered).
		Msg("message broadcasted")
}

func (s *Session) sendLocked(seat *Seat, msg events.Outbound) bool {
	if seat.conn == nil {
		return false
	}
	return seat.conn.Send(msg)
}

func (s *Session) emit(eventType events.DomainEventType, payload any) {
	if s.sink == nil {
		return
	}
	s.sink.Emit(s.id, eventType, payload)
}

func (s *Session) seatLocked(seatID int) *Seat {
	for _, seat := range s.seats {
		if seat.ID == seatID {
			return seat
		}
	}
	return nil
}

func (s *Session) seatByTeamLocked(team string) *Seat {
	for _, seat := range s.seats {
		if seat.Team == team {
			return seat
		}
	}
	return nil
}

func (s *Session) teamsChosenLocked() int {
	n := 0
	for _, seat := range s.seats {
		if seat.Team != "" {
			n++
		}
	}
	return n
}

func (s *Session) liveConnsLocked() int {
	n := 0
	for _, seat := range s.seats {
		if seat.conn != nil {
			n++
		}
	}
	return n
}

// teamBudgetsLocked lists every configured team; unclaimed teams show the
// starting budget.
func (s *Session) teamBudgetsLocked() map[string]int {
	budgets := make(map[string]int, len(s.settings.Teams))
	for _, team := range s.settings.Teams {
		budgets[team] = s.settings.StartingBudget
	}
	for _, seat := range s.seats {
		if seat.Team != "" {
			budgets[seat.Team] = seat.Budget
		}
	}
	return budgets
}

// purchasesLocked returns a deep copy safe to hand to other goroutines.
func (s *Session) purchasesLocked() map[string][]events.Purchase {
	out := make(map[string][]events.Purchase, len(s.purchases))
	for team, list := range s.purchases {
		out[team] = append([]events.Purchase{}, list...)
	}
	return out
}

func newPurchases(teams []string) map[string][]events.Purchase {
	purchases := make(map[string][]events.Purchase, len(teams))
	for _, team := range teams {
		purchases[team] = []events.Purchase{}
	}
	return purchases
}
