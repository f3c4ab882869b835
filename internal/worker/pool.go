package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"filmsage-backend/internal/database"
	"filmsage-backend/internal/logging"
	"filmsage-backend/internal/metrics"
	"filmsage-backend/internal/models"
)

const (
	popTimeout        = 5 * time.Second
	defaultMaxRetries = 3

	EventConversationUpdated = "conversation_updated"
)

type jobQueue interface {
	pop(ctx context.Context, timeout time.Duration) (string, error)
	requeue(ctx context.Context, payload []byte) error
	deadLetter(ctx context.Context, payload []byte) error
	claim(ctx context.Context, jobID uuid.UUID) (bool, error)
	release(ctx context.Context, jobID uuid.UUID)
	PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage) error
}

type conversationWriter interface {
	AppendTurns(ctx context.Context, conversationID uuid.UUID, turns []models.ChatTurn) (int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
}

// Pool drains the conversation-append queue. Each job stores one exchange
// and then tells the user's open websocket connections about it.
type Pool struct {
	queue       jobQueue
	store       conversationWriter
	workerCount int

	stop chan struct{}
	wg   sync.WaitGroup

	// after schedules a retry; replaced in tests.
	after func(d time.Duration, f func())
}

func NewPool(queue *RedisQueue, store conversationWriter, workerCount int) *Pool {
	return newPool(queue, store, workerCount)
}

func newPool(queue jobQueue, store conversationWriter, workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{
		queue:       queue,
		store:       store,
		workerCount: workerCount,
		stop:        make(chan struct{}),
		after: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

func (p *Pool) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-p.stop
		cancel()
	}()

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	logging.Info().Int("workers", p.workerCount).Str("queue", database.ConversationAppendQueue).Msg("worker pool started")
}

// Stop signals the workers and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	close(p.stop)
	p.wg.Wait()
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			logging.Debug().Int("worker", id).Msg("worker shutting down")
			return
		default:
		}

		payload, err := p.queue.pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() == nil {
				logging.Warn().Err(err).Int("worker", id).Msg("queue pop failed")
				time.Sleep(time.Second)
			}
			continue
		}
		if payload == "" {
			continue
		}

		// in-flight jobs finish even when Stop is called mid-way
		p.process(context.WithoutCancel(ctx), payload)
	}
}

func (p *Pool) process(ctx context.Context, payload string) {
	var job models.AppendJob
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		logging.Error().Err(err).Msg("failed to parse append job")
		metrics.JobsProcessed.WithLabelValues(database.ConversationAppendQueue, "malformed").Inc()
		if err := p.queue.deadLetter(ctx, []byte(payload)); err != nil {
			logging.Error().Err(err).Msg("failed to dead-letter malformed job")
		}
		return
	}

	locked, err := p.queue.claim(ctx, job.ID)
	if err != nil || !locked {
		return
	}
	defer p.queue.release(ctx, job.ID)

	log := logging.Logger().With().
		Str("job_id", job.ID.String()).
		Str("conversation_id", job.ConversationID.String()).
		Logger()

	count, err := p.store.AppendTurns(ctx, job.ConversationID, job.Turns)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		log.Info().Msg("conversation deleted before append, dropping job")
		metrics.JobsProcessed.WithLabelValues(database.ConversationAppendQueue, "dropped").Inc()
		return
	case err != nil:
		p.handleFailure(ctx, &job, err)
		return
	}

	metrics.JobsProcessed.WithLabelValues(database.ConversationAppendQueue, "completed").Inc()
	log.Debug().Int("messages", count).Msg("exchange stored")

	event := models.ConversationUpdated{ConversationID: job.ConversationID, MessageCount: count}
	if conv, err := p.store.GetByID(ctx, job.ConversationID); err == nil {
		event.Title = conv.Title
		event.Preview = conv.Preview
	}
	if err := p.queue.PublishUpdate(ctx, job.UserID, models.WSMessage{Type: EventConversationUpdated, Payload: event}); err != nil {
		log.Warn().Err(err).Msg("failed to publish conversation update")
	}
}

func (p *Pool) handleFailure(ctx context.Context, job *models.AppendJob, err error) {
	job.RetryCount++
	maxRetries := job.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	payload, merr := json.Marshal(job)
	if merr != nil {
		logging.Error().Err(merr).Str("job_id", job.ID.String()).Msg("failed to encode job for retry")
		return
	}

	if job.RetryCount < maxRetries {
		backoff := time.Duration(1<<uint(job.RetryCount)) * time.Second
		logging.Warn().Err(err).Str("job_id", job.ID.String()).Int("attempt", job.RetryCount).
			Dur("backoff", backoff).Msg("append failed, retrying")
		metrics.JobsProcessed.WithLabelValues(database.ConversationAppendQueue, "retried").Inc()
		p.after(backoff, func() {
			if err := p.queue.requeue(context.Background(), payload); err != nil {
				logging.Error().Err(err).Str("job_id", job.ID.String()).Msg("failed to requeue job")
			}
		})
		return
	}

	logging.Error().Err(err).Str("job_id", job.ID.String()).Int("attempts", job.RetryCount).Msg("append failed permanently")
	metrics.JobsProcessed.WithLabelValues(database.ConversationAppendQueue, "failed").Inc()
	if err := p.queue.deadLetter(ctx, payload); err != nil {
		logging.Error().Err(err).Str("job_id", job.ID.String()).Msg("failed to dead-letter job")
	}
}
