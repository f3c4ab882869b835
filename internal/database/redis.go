package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// ConversationAppendQueue holds AppendJob payloads for the worker pool.
	ConversationAppendQueue = "queue:conversation-append"
	// ConversationAppendDeadLetter receives jobs that exhausted their retries.
	ConversationAppendDeadLetter = "queue:conversation-append:dead"

	userUpdatesPrefix = "user_updates:"
	// UserUpdatesPattern matches every per-user update channel.
	UserUpdatesPattern = userUpdatesPrefix + "*"
)

// UserUpdatesChannel is the pub/sub channel carrying one user's events.
func UserUpdatesChannel(userID uuid.UUID) string {
	return userUpdatesPrefix + userID.String()
}

// UserIDFromChannel reverses UserUpdatesChannel.
func UserIDFromChannel(channel string) (uuid.UUID, error) {
	if len(channel) <= len(userUpdatesPrefix) || channel[:len(userUpdatesPrefix)] != userUpdatesPrefix {
		return uuid.Nil, fmt.Errorf("not a user updates channel: %q", channel)
	}
	return uuid.Parse(channel[len(userUpdatesPrefix):])
}

// RedisClients keeps the blocking queue traffic off the pub/sub connection.
type RedisClients struct {
	Queue  *redis.Client
	PubSub *redis.Client
}

func NewRedisClients(redisURL string) (*RedisClients, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	queueClient := redis.NewClient(opt)
	if err := queueClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis (queue): %w", err)
	}

	pubsubOpt := *opt
	pubsubClient := redis.NewClient(&pubsubOpt)
	if err := pubsubClient.Ping(ctx).Err(); err != nil {
		queueClient.Close()
		return nil, fmt.Errorf("failed to ping Redis (pubsub): %w", err)
	}

	return &RedisClients{
		Queue:  queueClient,
		PubSub: pubsubClient,
	}, nil
}

func (r *RedisClients) Close() {
	r.Queue.Close()
	r.PubSub.Close()
}
