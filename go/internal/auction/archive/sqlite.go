package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mcdev12/auctionhouse/go/internal/auction/outbox"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteStore archives auction results to a local SQLite file.
type SQLiteStore struct {
	sqlDB *sql.DB
}

// OpenSQLite opens the archive at path and creates its tables.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("archive path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create archive tables: %w", err)
	}

	log.Info().Str("path", path).Msg("opened sqlite archive")
	return &SQLiteStore{sqlDB: sqlDB}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Publish stores the lot or game carried by event. Replays of the same
// event id are ignored.
func (s *SQLiteStore) Publish(ctx context.Context, event outbox.Event) error {
	rec, err := decode(event)
	if err != nil {
		return err
	}

	switch {
	case rec.lot != nil:
		return s.insertLot(ctx, *rec.lot)
	case rec.game != nil:
		return s.insertGame(ctx, *rec.game)
	}
	return nil
}

func (s *SQLiteStore) insertLot(ctx context.Context, lot Lot) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO lots (
	event_id,
	session_id,
	game,
	round,
	player_name,
	category,
	base_price,
	sold,
	team,
	price,
	closed_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (event_id) DO NOTHING
`,
		lot.EventID,
		lot.SessionID,
		lot.Game,
		int64(lot.Round),
		lot.Player,
		lot.Category,
		lot.BasePrice,
		lot.Sold,
		lot.Team,
		lot.Price,
		lot.ClosedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert lot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) insertGame(ctx context.Context, game Game) error {
	purchases, err := json.Marshal(game.Purchases)
	if err != nil {
		return fmt.Errorf("marshal purchases: %w", err)
	}
	budgets, err := json.Marshal(game.Budgets)
	if err != nil {
		return fmt.Errorf("marshal budgets: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO games (event_id, session_id, game, purchases, budgets, duration, completed_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (event_id) DO NOTHING
`,
		game.EventID,
		game.SessionID,
		game.Game,
		string(purchases),
		string(budgets),
		game.Duration,
		game.CompletedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

// ListLots returns the lots of one session in the order they closed.
func (s *SQLiteStore) ListLots(ctx context.Context, sessionID int) ([]Lot, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT event_id, session_id, game, round, player_name, category, base_price, sold, team, price, closed_at
FROM lots
WHERE session_id = ?
ORDER BY game, round
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	defer rows.Close()

	var lots []Lot
	for rows.Next() {
		var (
			lot      Lot
			round    int64
			closedAt int64
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
			&closedAt,
		); err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		lot.Round = uint64(round)
		lot.ClosedAt = time.UnixMilli(closedAt).UTC()
		lots = append(lots, lot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lots: %w", err)
	}
	return lots, nil
}

// ListGames returns the newest completed games first.
func (s *SQLiteStore) ListGames(ctx context.Context, limit int) ([]Game, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT event_id, session_id, game, purchases, budgets, duration, completed_at
FROM games
ORDER BY completed_at DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var games []Game
	for rows.Next() {
		var (
			game        Game
			purchases   string
			budgets     string
			completedAt int64
		)
		if err := rows.Scan(&game.EventID, &game.SessionID, &game.Game, &purchases, &budgets, &game.Duration, &completedAt); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		if err := json.Unmarshal([]byte(purchases), &game.Purchases); err != nil {
			return nil, fmt.Errorf("decode purchases: %w", err)
		}
		if err := json.Unmarshal([]byte(budgets), &game.Budgets); err != nil {
			return nil, fmt.Errorf("decode budgets: %w", err)
		}
		game.CompletedAt = time.UnixMilli(completedAt).UTC()
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}
	return games, nil
}
