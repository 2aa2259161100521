package events

import (
	"time"
)

// Domain event payloads shared between the session engine and event publishers.

// DomainEventType names a domain event on the event stream.
type DomainEventType string

const (
	EventAuctionStarted   DomainEventType = "AuctionStarted"
	EventItemSold         DomainEventType = "ItemSold"
	EventItemUnsold       DomainEventType = "ItemUnsold"
	EventAuctionCompleted DomainEventType = "AuctionCompleted"
	EventSessionReset     DomainEventType = "SessionReset"
)

// AuctionStartedPayload is the payload for an AuctionStarted event
type AuctionStartedPayload struct {
	SessionID  int            `json:"session_id"`
	Game       int            `json:"game"`
	Teams      map[string]int `json:"teams"` // team -> seat id
	TotalItems int            `json:"total_items"`
	FirstItem  Player         `json:"first_item"`
	StartedAt  time.Time      `json:"started_at"`
}

// ItemSoldPayload is the payload for an ItemSold event
type ItemSoldPayload struct {
	SessionID int       `json:"session_id"`
	Game      int       `json:"game"`
	Round     uint64    `json:"round"`
	Player    Player    `json:"player"`
	Team      string    `json:"team"`
	Price     int       `json:"price"`
	Remaining int       `json:"remaining_budget"`
	SoldAt    time.Time `json:"sold_at"`
}

// ItemUnsoldPayload is the payload for an ItemUnsold event
type ItemUnsoldPayload struct {
	SessionID int       `json:"session_id"`
	Game      int       `json:"game"`
	Round     uint64    `json:"round"`
	Player    Player    `json:"player"`
	ClosedAt  time.Time `json:"closed_at"`
}

// AuctionCompletedPayload is the payload for an AuctionCompleted event
type AuctionCompletedPayload struct {
	SessionID   int                   `json:"session_id"`
	Game        int                   `json:"game"`
	Purchases   map[string][]Purchase `json:"purchases"`
	Budgets     map[string]int        `json:"budgets"`
	CompletedAt time.Time             `json:"completed_at"`
	Duration    string                `json:"duration"`
}

// SessionResetPayload is the payload for a SessionReset event
type SessionResetPayload struct {
	SessionID int       `json:"session_id"`
	Reason    string    `json:"reason"`
	ResetAt   time.Time `json:"reset_at"`
}
