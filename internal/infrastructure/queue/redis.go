package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"finnews/internal/domain"
	"finnews/internal/ports"
)

// RedisQueue pushes accepted records onto a Redis list so downstream
// consumers (digest builders, alerting) can pick them up.
type RedisQueue struct {
	client *redis.Client
	key    string
}

var _ ports.AcceptedQueue = (*RedisQueue)(nil)

// NewRedisQueue wires an existing Redis client with the target list key.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key}
}

// Enqueue serializes the record and pushes it onto the configured list.
func (q *RedisQueue) Enqueue(ctx context.Context, record domain.ArticleRecord) error {
	if q.client == nil || q.key == "" {
		return fmt.Errorf("redis queue misconfigured")
	}

	type item struct {
		Title     string    `json:"title"`
		URL       string    `json:"url"`
		Source    string    `json:"source"`
		Summary   string    `json:"summary"`
		RunID     string    `json:"run_id"`
		CreatedAt time.Time `json:"created_at"`
	}

	payload, err := json.Marshal(item{
		Title:     record.Title,
		URL:       record.URL,
		Source:    record.Source,
		Summary:   record.Summary,
		RunID:     record.RunID,
		CreatedAt: record.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("push record: %w", err)
	}

	return nil
}
