// Package realtime fans out leaderboard snapshots to subscribers over
// Redis Pub/Sub, and relays them to WebSocket clients via Hub.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher is the collaborator the typing store calls post-commit to
// advertise a changed leaderboard. Implementations must be best-effort:
// a publish failure is logged by the caller but never rolls back the
// transaction that produced the snapshot.
type Publisher interface {
	Publish(ctx context.Context, contestID string, snapshot interface{}) error
}

// RedisPublisher backs Publisher with Redis Pub/Sub, matching the channel
// naming contest:<contestId>:leaderboard.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func channelName(contestID string) string {
	return fmt.Sprintf("contest:%s:leaderboard", contestID)
}

func (p *RedisPublisher) Publish(ctx context.Context, contestID string, snapshot interface{}) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("RedisPublisher.Publish marshal: %w", err)
	}
	if err := p.client.Publish(ctx, channelName(contestID), payload).Err(); err != nil {
		return fmt.Errorf("RedisPublisher.Publish: %w", err)
	}
	return nil
}
