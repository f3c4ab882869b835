package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"filmsage-backend/internal/config"
)

type closingModel struct{ closed int }

func (m *closingModel) Close() { m.closed++ }

func TestCloseModel(t *testing.T) {
	m := &closingModel{}
	closeModel(m)
	assert.Equal(t, 1, m.closed)

	assert.NotPanics(t, func() { closeModel(struct{}{}) })
}

func TestGenerationParams(t *testing.T) {
	p := generationParams(&config.Config{LLMTemperature: 0.7, LLMMaxTokens: 256})
	assert.Equal(t, 0.7, p.Temperature)
	assert.Equal(t, 256, p.MaxTokens)
	assert.Nil(t, p.Stop)

	p = generationParams(&config.Config{LLMStopToken: "<|end|>"})
	assert.Equal(t, []string{"<|end|>"}, p.Stop)
}

func TestModelName(t *testing.T) {
	cfg := &config.Config{GeminiModel: "gemini-2.0-flash", OllamaModel: "llama3"}

	cfg.LLMProvider = "Gemini"
	assert.Equal(t, "gemini-2.0-flash", modelName(cfg))

	cfg.LLMProvider = "ollama"
	assert.Equal(t, "llama3", modelName(cfg))
}
