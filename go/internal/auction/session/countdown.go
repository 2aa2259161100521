package session

import (
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/auction/events"
	"github.com/rs/zerolog/log"
)

// countdown is the live per-item timer. The session holds at most one; a
// tick from a countdown that is no longer s.countdown is dropped.
type countdown struct {
	round    uint64
	timeLeft int
	ticker   clockwork.Ticker
	stop     chan struct{}
}

// armLocked replaces any live countdown with a fresh one for the current round.
func (s *Session) armLocked() {
	s.disarmLocked()

	c := &countdown{
		round:    s.round,
		timeLeft: s.settings.CountdownTicks,
		ticker:   s.clock.NewTicker(s.settings.TickInterval),
		stop:     make(chan struct{}),
	}
	s.countdown = c

	go s.runCountdown(c)

	log.Debug().
		Int("session_id", s.id).
		Uint64("round", c.round).
		Int("ticks", c.timeLeft).
		Dur("interval", s.settings.TickInterval).
		Msg("countdown armed")
}

func (s *Session) disarmLocked() {
	c := s.countdown
	if c == nil {
		return
	}
	s.countdown = nil
	c.ticker.Stop()
	close(c.stop)
}

func (s *Session) runCountdown(c *countdown) {
	for {
		select {
		case <-c.ticker.Chan():
			if !s.tick(c) {
				return
			}
		case <-c.stop:
			return
		}
	}
}

// tick advances c by one step and reports whether it is still live.
func (s *Session) tick(c *countdown) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.countdown != c {
		return false
	}

	c.timeLeft--
	s.broadcastLocked(events.NewTimerUpdate(c.timeLeft))
	if c.timeLeft > 0 {
		return true
	}

	log.Debug().Int("session_id", s.id).Uint64("round", c.round).Msg("countdown expired")

	s.disarmLocked()
	s.resolveLocked()
	return false
}

// scheduleStartLocked moves a full session to starting and fires the first
// item after the configured delay.
func (s *Session) scheduleStartLocked() {
	s.state = StateStarting

	if s.settings.StartDelay == 0 {
		s.startAuctionLocked()
		return
	}

	var timer clockwork.Timer
	timer = s.clock.AfterFunc(s.settings.StartDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.startTimer != timer || s.state != StateStarting {
			return
		}
		s.startAuctionLocked()
	})
	s.startTimer = timer

	log.Info().
		Int("session_id", s.id).
		Dur("delay", s.settings.StartDelay).
		Msg("all teams selected, auction starting")
}

func (s *Session) stopStartTimerLocked() {
	if s.startTimer == nil {
		return
	}
	s.startTimer.Stop()
	s.startTimer = nil
}
