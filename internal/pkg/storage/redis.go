package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Melekhin/betdesk/internal/pkg/config"
	"github.com/Melekhin/betdesk/internal/pkg/models"
)

// SnapshotMirror publishes adapted poll batches to Redis so sibling processes
// can read the board without hitting the vendor. The in-memory store stays the
// source of truth for this process; the mirror is best-effort.
type SnapshotMirror struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotMirror connects to Redis and verifies the connection.
func NewSnapshotMirror(cfg *config.RedisConfig) (*SnapshotMirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &SnapshotMirror{client: client, ttl: ttl}, nil
}

func mirrorKey(sport string, bucket models.Bucket) string {
	return fmt.Sprintf("snap:%s:%s", sport, bucket)
}

// Publish stores a batch as JSON under snap:<sport>:<bucket>.
func (m *SnapshotMirror) Publish(ctx context.Context, sport string, bucket models.Bucket, matches []models.MatchSnapshot) error {
	data, err := json.Marshal(matches)
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	if err := m.client.Set(ctx, mirrorKey(sport, bucket), data, m.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store batch: %w", err)
	}
	return nil
}

// Get reads back the mirrored batch for a stream. A missing key is an empty
// batch, not an error.
func (m *SnapshotMirror) Get(ctx context.Context, sport string, bucket models.Bucket) ([]models.MatchSnapshot, error) {
	data, err := m.client.Get(ctx, mirrorKey(sport, bucket)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read batch: %w", err)
	}

	var matches []models.MatchSnapshot
	if err := json.Unmarshal([]byte(data), &matches); err != nil {
		return nil, fmt.Errorf("failed to unmarshal batch: %w", err)
	}
	return matches, nil
}

// Close closes the Redis connection.
func (m *SnapshotMirror) Close() error {
	return m.client.Close()
}
