package gateway

import (
	"github.com/go-chi/chi/v5"
	"github.com/mcdev12/auctionhouse/go/internal/auction/archive"
	"github.com/mcdev12/auctionhouse/go/internal/auction/session"
	"github.com/rs/zerolog/log"
)

// Service is the auction gateway: WebSocket bidders plus the session state API.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
	registry          *session.Registry
}

// Config holds configuration for the auction gateway
type Config struct {
	ConnectionConfig ConnectionConfig
}

func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// NewService builds the gateway. results serves the archive routes and may be nil.
func NewService(config Config, registry *session.Registry, results archive.Reader) *Service {
	connectionManager := NewConnectionManager(registry, config.ConnectionConfig)

	return &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
		stateHandler:      NewStateHandler(registry, results),
		registry:          registry,
	}
}

// Stop closes every bidder connection and halts session timers.
func (s *Service) Stop() error {
	s.connectionManager.CloseAll()
	s.registry.Shutdown()
	log.Info().Msg("auction gateway stopped")
	return nil
}

func (s *Service) RegisterRoutes(r chi.Router) {
	s.wsHandler.RegisterRoutes(r)
	s.stateHandler.RegisterStateRoutes(r)
	log.Info().Msg("auction gateway routes registered")
}

// Stats reports the gateway's connection pool and session count.
type Stats struct {
	ConnectionStats
	Sessions int    `json:"sessions"`
	Service  string `json:"service"`
	Status   string `json:"status"`
}

func (s *Service) GetStats() Stats {
	return Stats{
		ConnectionStats: s.connectionManager.GetConnectionStats(),
		Sessions:        s.registry.Len(),
		Service:         "auction_gateway",
		Status:          "running",
	}
}
