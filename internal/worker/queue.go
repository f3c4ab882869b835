package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"filmsage-backend/internal/database"
	"filmsage-backend/internal/models"
)

const lockTTL = 2 * time.Minute

// RedisQueue carries conversation-append jobs on a redis list and publishes
// user events on the pub/sub client.
type RedisQueue struct {
	queue  *redis.Client
	pubsub *redis.Client
}

func NewRedisQueue(clients *database.RedisClients) *RedisQueue {
	return &RedisQueue{queue: clients.Queue, pubsub: clients.PubSub}
}

func (q *RedisQueue) EnqueueAppend(ctx context.Context, job *models.AppendJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode append job: %w", err)
	}
	return q.push(ctx, database.ConversationAppendQueue, payload)
}

func (q *RedisQueue) push(ctx context.Context, list string, payload []byte) error {
	if err := q.queue.RPush(ctx, list, payload).Err(); err != nil {
		return fmt.Errorf("failed to push to %s: %w", list, err)
	}
	return nil
}

// pop blocks up to timeout for the next job. It returns "" with a nil error
// when the wait timed out.
func (q *RedisQueue) pop(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.queue.BLPop(ctx, timeout, database.ConversationAppendQueue).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if len(res) < 2 {
		return "", nil
	}
	return res[1], nil
}

func (q *RedisQueue) requeue(ctx context.Context, payload []byte) error {
	return q.push(ctx, database.ConversationAppendQueue, payload)
}

func (q *RedisQueue) deadLetter(ctx context.Context, payload []byte) error {
	return q.push(ctx, database.ConversationAppendDeadLetter, payload)
}

func (q *RedisQueue) claim(ctx context.Context, jobID uuid.UUID) (bool, error) {
	return q.queue.SetNX(ctx, "job_lock:"+jobID.String(), "1", lockTTL).Result()
}

func (q *RedisQueue) release(ctx context.Context, jobID uuid.UUID) {
	q.queue.Del(ctx, "job_lock:"+jobID.String())
}

// PublishUpdate sends msg to every websocket connection of userID.
func (q *RedisQueue) PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return q.pubsub.Publish(ctx, database.UserUpdatesChannel(userID), data).Err()
}
