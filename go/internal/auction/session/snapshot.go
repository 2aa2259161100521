package session

import "github.com/mcdev12/auctionhouse/go/internal/auction/events"

// SeatView is the read-only state of one seat.
type SeatView struct {
	ID        int    `json:"id"`
	Team      string `json:"team,omitempty"`
	Budget    int    `json:"budget"`
	Connected bool   `json:"connected"`
}

// View is a point-in-time copy of a session, safe to serialize.
type View struct {
	ID          int                          `json:"id"`
	State       State                        `json:"state"`
	Capacity    int                          `json:"capacity"`
	Seats       []SeatView                   `json:"seats"`
	CurrentItem *events.Player               `json:"current_item,omitempty"`
	Round       uint64                       `json:"round"`
	TimeLeft    int                          `json:"time_left"`
	HighestBid  *Bid                         `json:"highest_bid,omitempty"`
	Budgets     map[string]int               `json:"budgets"`
	Purchases   map[string][]events.Purchase `json:"purchases"`
	Games       int                          `json:"games"`
}

func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:        s.id,
		State:     s.state,
		Capacity:  s.settings.Capacity,
		Seats:     make([]SeatView, 0, len(s.seats)),
		Round:     s.round,
		Budgets:   s.teamBudgetsLocked(),
		Purchases: s.purchasesLocked(),
		Games:     s.games,
	}
	for _, seat := range s.seats {
		v.Seats = append(v.Seats, SeatView{
			ID:        seat.ID,
			Team:      seat.Team,
			Budget:    seat.Budget,
			Connected: seat.conn != nil,
		})
	}
	if s.state == StateBidding {
		if lot, ok := s.catalog.Lot(s.cursor); ok {
			player := events.PlayerFromLot(lot)
			v.CurrentItem = &player
		}
	}
	if s.countdown != nil {
		v.TimeLeft = s.countdown.timeLeft
	}
	if s.highestBid != nil {
		bid := *s.highestBid
		v.HighestBid = &bid
	}
	return v
}

// hasRoom reports whether another seat fits.
func (s *Session) hasRoom() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seats) < s.settings.Capacity
}
