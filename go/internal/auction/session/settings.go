package session

import (
	"errors"
	"fmt"
	"time"
)

// Settings are the rules every session of a registry plays by.
type Settings struct {
	Capacity       int
	StartingBudget int
	Teams          []string
	CountdownTicks int
	TickInterval   time.Duration
	// StartDelay separates the last team confirmation from the first item.
	// Zero starts the auction immediately.
	StartDelay time.Duration
	// ExpirySlack is how many ticks before zero a client-reported expiry is
	// still honoured.
	ExpirySlack        int
	ResetWhenAbandoned bool
}

// DefaultSettings returns the classic three-team, 1000-budget auction.
func DefaultSettings() Settings {
	return Settings{
		Capacity:           3,
		StartingBudget:     1000,
		Teams:              []string{"MI", "RCB", "CSK"},
		CountdownTicks:     20,
		TickInterval:       time.Second,
		StartDelay:         2 * time.Second,
		ExpirySlack:        1,
		ResetWhenAbandoned: true,
	}
}

func (s Settings) Validate() error {
	if s.Capacity <= 0 {
		return errors.New("capacity must be positive")
	}
	if len(s.Teams) < s.Capacity {
		return fmt.Errorf("need at least %d teams, got %d", s.Capacity, len(s.Teams))
	}
	seen := make(map[string]bool, len(s.Teams))
	for _, team := range s.Teams {
		if team == "" {
			return errors.New("team names must not be empty")
		}
		if seen[team] {
			return fmt.Errorf("duplicate team %q", team)
		}
		seen[team] = true
	}
	if s.StartingBudget <= 0 {
		return errors.New("starting budget must be positive")
	}
	if s.CountdownTicks <= 0 {
		return errors.New("countdown ticks must be positive")
	}
	if s.TickInterval <= 0 {
		return errors.New("tick interval must be positive")
	}
	if s.StartDelay < 0 {
		return errors.New("start delay must not be negative")
	}
	if s.ExpirySlack < 0 || s.ExpirySlack >= s.CountdownTicks {
		return fmt.Errorf("expiry slack must be in [0, %d)", s.CountdownTicks)
	}
	return nil
}
