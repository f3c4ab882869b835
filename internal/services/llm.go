package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"filmsage-backend/internal/metrics"
	"filmsage-backend/internal/models"
)

// ErrBackendUnreachable means the model backend could not be contacted at
// all (connection refused, DNS failure, timeout, open circuit).
var ErrBackendUnreachable = errors.New("language model backend unreachable")

// ModelUnavailableError means the backend answered but does not serve the
// configured model.
type ModelUnavailableError struct {
	Model string
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model %q is not available", e.Model)
}

// GenerationParams are fixed per deployment and applied to every call.
type GenerationParams struct {
	Temperature float64
	MaxTokens   int
	Stop        []string
}

// ChatClient sends a whole conversation to a language model and returns
// the assistant's reply. The first turn may be a system prompt.
type ChatClient interface {
	SendChat(ctx context.Context, history []models.ChatTurn, params GenerationParams) (string, error)
}

// ModelStatus is the result of a startup probe.
type ModelStatus struct {
	Provider  string
	Model     string
	Available bool
	Models    []string
}

// GuardedClient adds a circuit breaker and metrics around a ChatClient.
type GuardedClient struct {
	provider string
	next     ChatClient
	cb       *gobreaker.CircuitBreaker[string]
}

func NewGuardedClient(provider string, next ChatClient, s BreakerSettings) *GuardedClient {
	if s.Ignore == nil {
		s.Ignore = func(err error) bool { return errors.Is(err, context.Canceled) }
	}
	return &GuardedClient{
		provider: provider,
		next:     next,
		cb:       newBreaker[string]("llm-"+provider, s),
	}
}

func (g *GuardedClient) SendChat(ctx context.Context, history []models.ChatTurn, params GenerationParams) (string, error) {
	start := time.Now()
	out, err := g.cb.Execute(func() (string, error) {
		return g.next.SendChat(ctx, history, params)
	})
	metrics.LLMLatency.WithLabelValues(g.provider).Observe(time.Since(start).Seconds())

	if rejected(err) {
		err = fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}
	metrics.LLMRequests.WithLabelValues(g.provider, llmOutcome(err)).Inc()
	return out, err
}

func llmOutcome(err error) string {
	var unavailable *ModelUnavailableError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &unavailable):
		return "model_unavailable"
	case errors.Is(err, ErrBackendUnreachable):
		return "unreachable"
	default:
		return "error"
	}
}
