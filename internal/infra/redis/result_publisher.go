package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"trivia-room-service/internal/domain"
)

// DefaultResultsQueue is the Redis list final scoreboards are pushed to.
const DefaultResultsQueue = "trivia:results"

// ResultPublisher pushes finished games onto a Redis list for downstream consumers.
type ResultPublisher struct {
	client *redis.Client
	queue  string
}

func NewResultPublisher(client *redis.Client, queue string) *ResultPublisher {
	if queue == "" {
		queue = DefaultResultsQueue
	}
	return &ResultPublisher{client: client, queue: queue}
}

// RecordResult serializes the result to JSON and RPUSHes it to the queue.
func (p *ResultPublisher) RecordResult(ctx context.Context, result domain.GameResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal game result: %w", err)
	}
	if err := p.client.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("rpush to %s: %w", p.queue, err)
	}
	return nil
}
