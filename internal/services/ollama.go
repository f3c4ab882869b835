package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"filmsage-backend/internal/models"
)

// OllamaClient talks to a local Ollama server over its HTTP API.
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64  `json:"temperature"`
	NumPredict  int      `json:"num_predict,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// NewOllamaClient builds a client whose connection attempts give up after
// connectTimeout and whose replies may take up to readTimeout.
func NewOllamaClient(baseURL, model string, connectTimeout, readTimeout time.Duration) *OllamaClient {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ResponseHeaderTimeout: readTimeout,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
	}
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   connectTimeout + readTimeout,
		},
	}
}

// SendChat posts the whole conversation to /api/chat with streaming off.
func (c *OllamaClient) SendChat(ctx context.Context, history []models.ChatTurn, params GenerationParams) (string, error) {
	reqBody := ollamaChatRequest{
		Model:    c.model,
		Messages: make([]ollamaMessage, 0, len(history)),
		Stream:   false,
		Options: ollamaOptions{
			Temperature: params.Temperature,
			NumPredict:  params.MaxTokens,
			Stop:        params.Stop,
		},
	}
	for _, t := range history {
		reqBody.Messages = append(reqBody.Messages, ollamaMessage{Role: string(t.Role), Content: t.Content})
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", transportError(err)
	}

	var out ollamaChatResponse
	decodeErr := json.Unmarshal(body, &out)

	if resp.StatusCode == http.StatusNotFound {
		return "", &ModelUnavailableError{Model: c.model}
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(out.Error)
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", decodeErr)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama error: %s", out.Error)
	}

	return out.Message.Content, nil
}

// CheckStatus lists the installed models and reports whether the
// configured one is among them.
func (c *OllamaClient) CheckStatus(ctx context.Context) (ModelStatus, error) {
	status := ModelStatus{Provider: "ollama", Model: c.model}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return status, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return status, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return status, fmt.Errorf("ollama tags returned status %d", resp.StatusCode)
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return status, fmt.Errorf("failed to decode tags: %w", err)
	}

	for _, m := range tags.Models {
		status.Models = append(status.Models, m.Name)
		if m.Name == c.model || m.Name == c.model+":latest" {
			status.Available = true
		}
	}
	return status, nil
}

// transportError classifies a failed round trip. Anything that kept us from
// getting an answer at all is ErrBackendUnreachable; caller cancellation is
// passed through.
func transportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
}
