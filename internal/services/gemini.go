package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"filmsage-backend/internal/logging"
	"filmsage-backend/internal/models"
)

// GeminiClient serves chat turns through the Gemini API.
type GeminiClient struct {
	client    *genai.Client
	modelName string
	rateChan  chan struct{} // Token bucket
	timeout   time.Duration // bounds the wait for a slot plus the call
}

func NewGeminiClient(ctx context.Context, apiKey, modelName string, concurrentReqs int, timeout time.Duration) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if concurrentReqs < 1 {
		concurrentReqs = 1
	}
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiClient{client: client, modelName: modelName, rateChan: rateChan, timeout: timeout}, nil
}

func (c *GeminiClient) Close() {
	c.client.Close()
}

// acquireRate blocks until a rate slot is available
func (c *GeminiClient) acquireRate(ctx context.Context) error {
	select {
	case <-c.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *GeminiClient) releaseRate() {
	c.rateChan <- struct{}{}
}

// SendChat replays the conversation as a chat session. System turns become
// the system instruction and the final user turn is the message sent.
func (c *GeminiClient) SendChat(ctx context.Context, history []models.ChatTurn, params GenerationParams) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.acquireRate(ctx); err != nil {
		return "", c.classify(err)
	}
	defer c.releaseRate()

	model := c.client.GenerativeModel(c.modelName)
	model.SetTemperature(float32(params.Temperature))
	if params.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(params.MaxTokens))
	}
	model.StopSequences = params.Stop

	system, past, last := splitHistory(history)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	cs := model.StartChat()
	cs.History = past

	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return "", c.classify(err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop && cand.FinishReason != genai.FinishReasonMaxTokens {
			logging.Ctx(ctx).Warn().Int("candidate", i).Str("finish_reason", cand.FinishReason.String()).Msg("Gemini stopped early")
		}
	}

	return extractText(resp), nil
}

// CheckStatus asks the API for the configured model's metadata.
func (c *GeminiClient) CheckStatus(ctx context.Context) (ModelStatus, error) {
	st := ModelStatus{Provider: "gemini", Model: c.modelName}
	info, err := c.client.GenerativeModel(c.modelName).Info(ctx)
	if err != nil {
		return st, c.classify(err)
	}
	st.Available = true
	st.Models = []string{info.Name}
	return st, nil
}

// splitHistory maps chat turns onto Gemini's roles: "assistant" becomes
// "model", system turns are joined into one instruction, and the trailing
// user turn is split off as the message to send.
func splitHistory(history []models.ChatTurn) (system string, past []*genai.Content, last string) {
	var sys []string
	for i, t := range history {
		if t.Role == models.RoleSystem {
			sys = append(sys, t.Content)
			continue
		}
		if i == len(history)-1 && t.Role == models.RoleUser {
			last = t.Content
			continue
		}
		role := "user"
		if t.Role == models.RoleAssistant {
			role = "model"
		}
		past = append(past, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(t.Content)}})
	}
	return strings.Join(sys, "\n\n"), past, last
}

func (c *GeminiClient) classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return &ModelUnavailableError{Model: c.modelName}
		case http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
		}
		return fmt.Errorf("Gemini API error: %w", err)
	}

	switch status.Code(err) {
	case codes.NotFound:
		return &ModelUnavailableError{Model: c.modelName}
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}
	return fmt.Errorf("Gemini API error: %w", err)
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		break
	}
	return b.String()
}
