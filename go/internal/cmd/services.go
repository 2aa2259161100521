package main

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/assets"
	"github.com/mcdev12/auctionhouse/go/internal/auction/archive"
	"github.com/mcdev12/auctionhouse/go/internal/auction/catalog"
	"github.com/mcdev12/auctionhouse/go/internal/auction/gateway"
	"github.com/mcdev12/auctionhouse/go/internal/auction/outbox"
	"github.com/mcdev12/auctionhouse/go/internal/auction/session"
	"github.com/mcdev12/auctionhouse/go/internal/config"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Registry *session.Registry
	Gateway  *gateway.Service
	Relay    *outbox.Relay
	// Results is nil when the archive is disabled.
	Results archive.Reader

	closers []func() error
}

func setupServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	// Wire up the chain:
	// catalog → publishers (+ archive) → relay → session registry → gateway

	cat, err := loadCatalog(cfg.Auction.CatalogPath)
	if err != nil {
		return nil, err
	}

	services := &Services{}

	publishers, err := services.setupPublishers(ctx, cfg)
	if err != nil {
		services.Close()
		return nil, err
	}

	relayCfg := outbox.DefaultConfig()
	relayCfg.BufferSize = cfg.Events.BufferSize
	services.Relay = outbox.NewRelay(relayCfg, publishers...)
	if err := services.Relay.Start(ctx); err != nil {
		services.Close()
		return nil, fmt.Errorf("failed to start event relay: %w", err)
	}

	registry, err := session.NewRegistry(cat, cfg.Auction.Settings(), clockwork.NewRealClock(), services.Relay, cfg.Auction.MaxSessions)
	if err != nil {
		services.Close()
		return nil, fmt.Errorf("failed to create session registry: %w", err)
	}
	services.Registry = registry

	gatewayCfg := gateway.DefaultConfig()
	gatewayCfg.ConnectionConfig.AllowedOrigins = cfg.Server.AllowedOrigins
	gatewayCfg.ConnectionConfig.SendBufferSize = cfg.Server.SendBufferSize
	services.Gateway = gateway.NewService(gatewayCfg, registry, services.Results)

	log.Info().
		Int("items", cat.Len()).
		Int("capacity", cfg.Auction.Capacity).
		Strs("teams", cfg.Auction.Teams).
		Int("publishers", len(publishers)).
		Msg("auction services ready")

	return services, nil
}

func (s *Services) setupPublishers(ctx context.Context, cfg *config.Config) ([]outbox.EventPublisher, error) {
	var publishers []outbox.EventPublisher

	if cfg.Events.LogEvents {
		publishers = append(publishers, outbox.NewLogPublisher())
	}

	if cfg.Events.NATSURL != "" {
		jsCfg := outbox.DefaultJetStreamConfig()
		jsCfg.URL = cfg.Events.NATSURL
		jsCfg.StreamName = cfg.Events.StreamName
		jsCfg.SubjectPrefix = cfg.Events.SubjectPrefix

		js, err := outbox.NewJetStreamPublisher(ctx, jsCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream publisher: %w", err)
		}
		s.closers = append(s.closers, js.Close)
		publishers = append(publishers, js)
	}

	store, err := setupArchive(ctx, cfg.Archive)
	if err != nil {
		return nil, err
	}
	if store != nil {
		s.closers = append(s.closers, store.Close)
		s.Results = store
		publishers = append(publishers, store)
	}

	return publishers, nil
}

// Close stops the gateway first so no new events are emitted, then drains
// the relay before closing its publishers.
func (s *Services) Close() {
	if s.Gateway != nil {
		if err := s.Gateway.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop gateway")
		}
	}
	if s.Relay != nil {
		if err := s.Relay.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop event relay")
		}
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Error().Err(err).Msg("failed to close publisher")
		}
	}
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		cat, err := catalog.Parse(assets.Players)
		if err != nil {
			return nil, fmt.Errorf("failed to parse bundled catalog: %w", err)
		}
		return cat, nil
	}

	cat, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return cat, nil
}
