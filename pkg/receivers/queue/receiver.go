// Package queue consumes CRM transition messages from a Redis list and feeds
// them into the engine. It is the bridge for CRM installations that push
// events through Redis instead of Kafka.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/fieldline/automation/pkg/events"
)

// Callback receives each decoded CRM transition.
type Callback func(ctx context.Context, event *events.DomainEvent) error

type Receiver struct {
	Connection map[string]string
	Queue      string

	client   redis.UniversalClient
	callback Callback
	logger   *slog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewReceiver(config map[string]any, logger *slog.Logger) (*Receiver, error) {
	queue, _ := config["queue"].(string)
	if queue == "" {
		return nil, errors.New("queue receiver queue name is required")
	}

	connectionConfig, _ := config["connection"].(map[string]any)

	connection := make(map[string]string)

	for k, v := range connectionConfig {
		if str, ok := v.(string); ok {
			connection[k] = str
		}
	}

	return &Receiver{
		Connection: connection,
		Queue:      queue,
		stopCh:     make(chan struct{}),
		logger: logger.With(
			"module", "queue_receiver",
			"queue", queue,
		),
	}, nil
}

func (r *Receiver) Start(ctx context.Context, callback Callback) error {
	r.logger.InfoContext(ctx, "Starting queue receiver")
	r.callback = callback

	if err := r.initializeClient(ctx); err != nil {
		return fmt.Errorf("failed to initialize queue client: %w", err)
	}

	r.wg.Add(1)

	go r.consume(ctx)

	return nil
}

func (r *Receiver) initializeClient(ctx context.Context) error {
	addr := r.Connection["addr"]
	if addr == "" {
		addr = "localhost:6379"
	}

	password := r.Connection["password"]
	db := 0

	if dbStr := r.Connection["db"]; dbStr != "" {
		if _, err := fmt.Sscanf(dbStr, "%d", &db); err != nil {
			return fmt.Errorf("invalid db value: %w", err)
		}
	}

	r.client = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	r.logger.InfoContext(ctx, "Connected to Redis", "addr", addr, "db", db)

	return nil
}

func (r *Receiver) consume(ctx context.Context) {
	defer r.wg.Done()

	r.logger.InfoContext(ctx, "Starting queue consumer")

	for {
		select {
		case <-r.stopCh:
			r.logger.InfoContext(ctx, "Queue consumer stopped")

			return
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "Context cancelled, stopping queue consumer")

			return
		default:
			if err := r.processMessage(ctx); err != nil {
				r.logger.ErrorContext(ctx, "Error processing message", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (r *Receiver) processMessage(ctx context.Context) error {
	result, err := r.client.BLPop(ctx, 1*time.Second, r.Queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	event, err := decodeEvent(result[1])
	if err != nil {
		// A malformed message is logged and dropped, never retried.
		r.logger.ErrorContext(ctx, "Dropping malformed CRM message", "error", err)

		return nil
	}

	r.logger.InfoContext(ctx, "Received CRM event",
		"event_id", event.ID,
		"event_type", event.Type,
		"pipeline", event.Pipeline)

	go func() {
		if err := r.callback(ctx, event); err != nil {
			r.logger.ErrorContext(ctx, "Error handling CRM event", "error", err, "event_id", event.ID)
		}
	}()

	return nil
}

func decodeEvent(message string) (*events.DomainEvent, error) {
	var event events.DomainEvent
	if err := json.Unmarshal([]byte(message), &event); err != nil {
		return nil, fmt.Errorf("invalid event payload: %w", err)
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	return &event, nil
}

func (r *Receiver) Stop(ctx context.Context) error {
	r.logger.InfoContext(ctx, "Stopping queue receiver")

	close(r.stopCh)
	r.wg.Wait()

	if r.client != nil {
		if err := r.client.Close(); err != nil {
			r.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
		}
	}

	return nil
}
