package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/mcdev12/auctionhouse/go/internal/auction/outbox"
	"github.com/rs/zerolog/log"
	"github.com/sqlc-dev/pqtype"
)

// PostgresStore archives auction results to Postgres. The tables are created
// by the migrate_archive tool.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects with the lib/pq driver.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	database, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	if err := database.PingContext(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("connected to postgres archive")
	return NewPostgresStore(database), nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Publish(ctx context.Context, event outbox.Event) error {
	rec, err := decode(event)
	if err != nil {
		return err
	}

	switch {
	case rec.lot != nil:
		lot := rec.lot
		_, err := s.db.ExecContext(ctx, `
INSERT INTO auction_lots (
	event_id, session_id, game, round, player_name, category, base_price, sold, team, price, closed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (event_id) DO NOTHING
`,
			lot.EventID, lot.SessionID, lot.Game, int64(lot.Round), lot.Player, lot.Category,
			lot.BasePrice, lot.Sold, lot.Team, lot.Price, lot.ClosedAt,
		)
		if err != nil {
			return fmt.Errorf("insert lot: %w", err)
		}

	case rec.game != nil:
		game := rec.game
		purchases, err := json.Marshal(game.Purchases)
		if err != nil {
			return fmt.Errorf("marshal purchases: %w", err)
		}
		budgets, err := nullJSON(game.Budgets)
		if err != nil {
			return fmt.Errorf("marshal budgets: %w", err)
		}
		_, err = s.db.ExecContext(ctx, `
INSERT INTO auction_games (event_id, session_id, game, purchases, budgets, duration, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (event_id) DO NOTHING
`,
			game.EventID, game.SessionID, game.Game, json.RawMessage(purchases), budgets, game.Duration, game.CompletedAt,
		)
		if err != nil {
			return fmt.Errorf("insert game: %w", err)
		}
	}
	return nil
}

// ListLots returns the lots of one session in the order they closed.
func (s *PostgresStore) ListLots(ctx context.Context, sessionID int) ([]Lot, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT event_id, session_id, game, round, player_name, category, base_price, sold, team, price, closed_at
FROM auction_lots
WHERE session_id = $1
ORDER BY game, round
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	defer rows.Close()

	var lots []Lot
	for rows.Next() {
		var (
			lot   Lot
			round int64
		)
		if err := rows.Scan(
			&lot.EventID,
			&lot.SessionID,
			&lot.Game,
			&round,
			&lot.Player,
			&lot.Category,
			&lot.BasePrice,
			&lot.Sold,
			&lot.Team,
			&lot.Price,
			&lot.ClosedAt,
		); err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		lot.Round = uint64(round)
		lot.ClosedAt = lot.ClosedAt.UTC()
		lots = append(lots, lot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lots: %w", err)
	}
	return lots, nil
}

// ListGames returns the newest completed games first.
func (s *PostgresStore) ListGames(ctx context.Context, limit int) ([]Game, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT event_id, session_id, game, purchases, budgets, duration, completed_at
FROM auction_games
ORDER BY completed_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var games []Game
	for rows.Next() {
		var (
			game        Game
			purchases   []byte
			budgets     pqtype.NullRawMessage
			completedAt time.Time
		)
		if err := rows.Scan(&game.EventID, &game.SessionID, &game.Game, &purchases, &budgets, &game.Duration, &completedAt); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		if err := json.Unmarshal(purchases, &game.Purchases); err != nil {
			return nil, fmt.Errorf("decode purchases: %w", err)
		}
		if budgets.Valid {
			if err := json.Unmarshal(budgets.RawMessage, &game.Budgets); err != nil {
				return nil, fmt.Errorf("decode budgets: %w", err)
			}
		}
		game.CompletedAt = completedAt.UTC()
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}
	return games, nil
}

func nullJSON(v map[string]int) (pqtype.NullRawMessage, error) {
	if len(v) == 0 {
		return pqtype.NullRawMessage{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return pqtype.NullRawMessage{}, err
	}
	return pqtype.NullRawMessage{RawMessage: data, Valid: true}, nil
}
