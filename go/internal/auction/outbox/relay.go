package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/auction/events"
	"github.com/rs/zerolog/log"
)

type Config struct {
	BufferSize     int
	MaxRetries     int
	RetryDelay     time.Duration
	PublishTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		BufferSize:     1024,
		MaxRetries:     3,
		RetryDelay:     time.Second,
		PublishTimeout: 5 * time.Second,
	}
}

// Relay takes domain events from auction sessions and hands them to the
// publishers on its own goroutine. Emit never blocks: when the buffer is full
// the event is dropped.
type Relay struct {
	publishers []EventPublisher
	config     Config
	events     chan Event

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	statsMu   sync.Mutex
	published int64
	failed    int64
	dropped   int64
}

// Stats counts what the relay did with emitted events.
type Stats struct {
	Published int64 `json:"published"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
	Pending   int   `json:"pending"`
}

func NewRelay(cfg Config, publishers ...EventPublisher) *Relay {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultConfig().PublishTimeout
	}
	return &Relay{
		publishers: publishers,
		config:     cfg,
		events:     make(chan Event, cfg.BufferSize),
		stopChan:   make(chan struct{}),
	}
}

// Emit queues a domain event.
func (r *Relay) Emit(sessionID int, eventType events.DomainEventType, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().
			Err(err).
			Int("session_id", sessionID).
			Str("event_type", string(eventType)).
			Msg("failed to marshal domain event")
		return
	}

	event := Event{
		ID:        uuid.New(),
		SessionID: sessionID,
		EventType: string(eventType),
		Payload:   data,
		CreatedAt: time.Now().UTC(),
	}

	select {
	case r.events <- event:
	default:
		r.statsMu.Lock()
		r.dropped++
		r.statsMu.Unlock()
		log.Warn().
			Str("event_id", event.ID.String()).
			Str("event_type", event.EventType).
			Int("session_id", sessionID).
			Msg("event buffer full, dropping event")
	}
}

func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("event relay already running")
	}
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(ctx)

	log.Info().
		Int("publishers", len(r.publishers)).
		Int("buffer_size", r.config.BufferSize).
		Msg("event relay started")
	return nil
}

// Stop publishes whatever is still buffered and waits for the relay to exit.
func (r *Relay) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return fmt.Errorf("event relay not running")
	}
	r.running = false
	r.mu.Unlock()

	close(r.stopChan)
	r.wg.Wait()

	log.Info().Msg("event relay stopped")
	return nil
}

func (r *Relay) Stats() Stats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	return Stats{
		Published: r.published,
		Failed:    r.failed,
		Dropped:   r.dropped,
		Pending:   len(r.events),
	}
}

func (r *Relay) run(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			r.flush()
			return
		case <-r.stopChan:
			r.flush()
			return
		case event := <-r.events:
			r.deliver(ctx, event)
		}
	}
}

func (r *Relay) flush() {
	ctx := context.Background()
	for {
		select {
		case event := <-r.events:
			r.deliver(ctx, event)
		default:
			return
		}
	}
}

func (r *Relay) deliver(ctx context.Context, event Event) {
	for _, publisher := range r.publishers {
		err := r.publishWithRetry(ctx, publisher, event)

		r.statsMu.Lock()
		if err != nil {
			r.failed++
		} else {
			r.published++
		}
		r.statsMu.Unlock()

		if err != nil {
			log.Error().
				Err(err).
				Str("event_id", event.ID.String()).
				Str("event_type", event.EventType).
				Int("session_id", event.SessionID).
				Msg("failed to publish event")
		}
	}
}

func (r *Relay) publishWithRetry(ctx context.Context, publisher EventPublisher, event Event) error {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.config.RetryDelay * time.Duration(attempt)):
			}
		}

		pctx, cancel := context.WithTimeout(ctx, r.config.PublishTimeout)
		err := publisher.Publish(pctx, event)
		cancel()
		if err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Str("event_id", event.ID.String()).
				Int("attempt", attempt+1).
				Msg("failed to publish event, retrying")
			continue
		}
		return nil
	}

	return fmt.Errorf("failed after %d attempts: %w", r.config.MaxRetries+1, lastErr)
}
