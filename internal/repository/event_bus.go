package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/stemsi/testcenter/internal/config"
)

// EventBus fans session events out over Redis Pub/Sub, one channel per
// candidate. Any server instance holding the candidate's WebSocket forwards
// them.
type EventBus struct {
	rdb *redis.Client
}

// NewEventBus creates a new EventBus.
func NewEventBus(rdb *redis.Client) *EventBus {
	return &EventBus{rdb: rdb}
}

// Publish marshals event to JSON and publishes it on the candidate's channel.
func (b *EventBus) Publish(ctx context.Context, candidateKey string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return b.rdb.Publish(ctx, config.CacheKey.CandidateEventsChannel(candidateKey), data).Err()
}

// Subscribe attaches to the candidate's channel. The caller closes the
// returned subscription.
func (b *EventBus) Subscribe(ctx context.Context, candidateKey string) *redis.PubSub {
	return b.rdb.Subscribe(ctx, config.CacheKey.CandidateEventsChannel(candidateKey))
}
