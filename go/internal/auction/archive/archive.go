// Package archive keeps the results of finished lots and games in a SQL
// database. Both stores consume the domain event stream.
package archive

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/auctionhouse/go/internal/auction/events"
	"github.com/mcdev12/auctionhouse/go/internal/auction/outbox"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// PostgresSchema returns the DDL for the Postgres archive tables.
func PostgresSchema() string {
	data, err := schemaFS.ReadFile("schema/postgres.sql")
	if err != nil {
		panic(fmt.Sprintf("archive: missing embedded schema: %v", err))
	}
	return string(data)
}

func sqliteSchema() string {
	data, err := schemaFS.ReadFile("schema/sqlite.sql")
	if err != nil {
		panic(fmt.Sprintf("archive: missing embedded schema: %v", err))
	}
	return string(data)
}

// Lot is the outcome of one item going under the hammer.
type Lot struct {
	EventID   string    `json:"event_id"`
	SessionID int       `json:"session_id"`
	Game      int       `json:"game"`
	Round     uint64    `json:"round"`
	Player    string    `json:"player"`
	Category  string    `json:"category"`
	BasePrice int       `json:"base_price"`
	Sold      bool      `json:"sold"`
	Team      string    `json:"team,omitempty"`
	Price     int       `json:"price,omitempty"`
	ClosedAt  time.Time `json:"closed_at"`
}

// Game is the final standing of a completed auction.
type Game struct {
	EventID     string                       `json:"event_id"`
	SessionID   int                          `json:"session_id"`
	Game        int                          `json:"game"`
	Purchases   map[string][]events.Purchase `json:"purchases"`
	Budgets     map[string]int               `json:"budgets"`
	Duration    string                       `json:"duration"`
	CompletedAt time.Time                    `json:"completed_at"`
}

// record is what a domain event turns into. At most one field is set;
// events the archive does not keep leave both nil.
type record struct {
	lot  *Lot
	game *Game
}

func decode(event outbox.Event) (record, error) {
	switch events.DomainEventType(event.EventType) {
	case events.EventItemSold:
		var p events.ItemSoldPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return record{}, fmt.Errorf("decode %s payload: %w", event.EventType, err)
		}
		return record{lot: &Lot{
			EventID:   event.ID.String(),
			SessionID: p.SessionID,
			Game:      p.Game,
			Round:     p.Round,
			Player:    p.Player.Name,
			Category:  p.Player.Category,
			BasePrice: p.Player.BasePrice,
			Sold:      true,
			Team:      p.Team,
			Price:     p.Price,
			ClosedAt:  p.SoldAt.UTC(),
		}}, nil

	case events.EventItemUnsold:
		var p events.ItemUnsoldPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return record{}, fmt.Errorf("decode %s payload: %w", event.EventType, err)
		}
		return record{lot: &Lot{
			EventID:   event.ID.String(),
			SessionID: p.SessionID,
			Game:      p.Game,
			Round:     p.Round,
			Player:    p.Player.Name,
			Category:  p.Player.Category,
			BasePrice: p.Player.BasePrice,
			ClosedAt:  p.ClosedAt.UTC(),
		}}, nil

	case events.EventAuctionCompleted:
		var p events.AuctionCompletedPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return record{}, fmt.Errorf("decode %s payload: %w", event.EventType, err)
		}
		return record{game: &Game{
			EventID:     event.ID.String(),
			SessionID:   p.SessionID,
			Game:        p.Game,
			Purchases:   p.Purchases,
			Budgets:     p.Budgets,
			Duration:    p.Duration,
			CompletedAt: p.CompletedAt.UTC(),
		}}, nil
	}
	return record{}, nil
}

// Reader lists archived results. Both stores implement it.
type Reader interface {
	ListLots(ctx context.Context, sessionID int) ([]Lot, error)
	ListGames(ctx context.Context, limit int) ([]Game, error)
}
