// Package generator answers free-form wedding questions with Gemini.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

// ErrEmptyResponse is returned when the model produced no text
var ErrEmptyResponse = errors.New("model returned no text")

const systemPrompt = `你是一位親切的婚禮小幫手，負責回答賓客關於婚禮的問題。
請只根據下面提供的婚禮資訊回答，使用繁體中文，語氣溫暖、簡短。
如果資訊中沒有答案，請老實說目前不清楚，並建議賓客直接詢問新人。
不要編造任何時間、地點或座位資訊。

婚禮資訊：
%s`

type modelClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Gemini struct {
	models modelClient
	model  string
}

// NewGemini creates a generator on the Gemini API backend
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newGemini(client.Models, model), nil
}

func newGemini(models modelClient, model string) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{models: models, model: model}
}

// Generate answers question using eventContext as the only source of facts
func (g *Gemini) Generate(ctx context.Context, eventContext, question string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: fmt.Sprintf(systemPrompt, eventContext)}},
		},
		Temperature: genai.Ptr[float32](0.3),
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(question), config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
