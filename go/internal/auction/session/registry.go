package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/auction/catalog"
	"github.com/rs/zerolog/log"
)

// Registry hands out seats across auction sessions. Sessions are filled in
// creation order; a new one opens when every existing session is full.
type Registry struct {
	mu sync.Mutex

	catalog     *catalog.Catalog
	settings    Settings
	clock       clockwork.Clock
	sink        EventSink
	maxSessions int

	sessions []*Session
	nextID   int
}

// NewRegistry validates settings and returns an empty registry. maxSessions
// of zero means unlimited.
func NewRegistry(cat *catalog.Catalog, settings Settings, clock clockwork.Clock, sink EventSink, maxSessions int) (*Registry, error) {
	if cat == nil {
		return nil, errors.New("catalog is required")
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session settings: %w", err)
	}
	if maxSessions < 0 {
		return nil, errors.New("max sessions must not be negative")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Registry{
		catalog:     cat,
		settings:    settings,
		clock:       clock,
		sink:        sink,
		maxSessions: maxSessions,
		nextID:      1,
	}, nil
}

// AssignSeat joins conn to the first session with a free seat, opening a new
// session if needed.
func (r *Registry) AssignSeat(conn Conn) (*Session, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if !s.hasRoom() {
			continue
		}
		seatID, err := s.Join(conn)
		if errors.Is(err, ErrSessionFull) {
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		return s, seatID, nil
	}

	if r.maxSessions > 0 && len(r.sessions) >= r.maxSessions {
		log.Warn().
			Str("connection_id", conn.ID()).
			Int("sessions", len(r.sessions)).
			Msg("rejecting connection, all sessions are full")
		return nil, 0, ErrCapacity
	}

	s := New(r.nextID, r.catalog, r.settings, r.clock, r.sink)
	r.nextID++
	r.sessions = append(r.sessions, s)

	log.Info().Int("session_id", s.ID()).Int("sessions", len(r.sessions)).Msg("opened auction session")

	seatID, err := s.Join(conn)
	if err != nil {
		return nil, 0, err
	}
	return s, seatID, nil
}

func (r *Registry) Get(id int) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.ID() == id {
			return s, true
		}
	}
	return nil, false
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Snapshots returns a view of every session in creation order.
func (r *Registry) Snapshots() []View {
	r.mu.Lock()
	sessions := append([]*Session(nil), r.sessions...)
	r.mu.Unlock()

	views := make([]View, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, s.Snapshot())
	}
	return views
}

// Shutdown stops every session's timers.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		s.Close()
	}
	log.Info().Int("sessions", len(r.sessions)).Msg("auction sessions stopped")
}
