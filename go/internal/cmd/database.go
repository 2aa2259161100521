package main

import (
	"context"
	"fmt"

	"github.com/mcdev12/auctionhouse/go/internal/auction/archive"
	"github.com/mcdev12/auctionhouse/go/internal/auction/outbox"
	"github.com/mcdev12/auctionhouse/go/internal/config"
	"github.com/mcdev12/auctionhouse/go/internal/dbconfig"
	"github.com/rs/zerolog/log"
)

type archiveStore interface {
	outbox.EventPublisher
	archive.Reader
	Close() error
}

// setupArchive opens the results archive. A nil store means archiving is off.
func setupArchive(ctx context.Context, cfg config.ArchiveConfig) (archiveStore, error) {
	switch cfg.Driver {
	case "sqlite":
		store, err := archive.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite archive: %w", err)
		}
		return store, nil

	case "postgres":
		dbCfg, err := dbconfig.NewConfigFromEnv()
		if err != nil {
			return nil, err
		}
		store, err := archive.OpenPostgres(ctx, dbCfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres archive: %w", err)
		}
		log.Info().
			Str("host", dbCfg.Host).
			Int("port", dbCfg.Port).
			Str("database", dbCfg.Database).
			Msg("archiving auction results to postgres")
		return store, nil
	}

	log.Info().Msg("results archive disabled")
	return nil, nil
}
