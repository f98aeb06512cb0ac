package utils

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"nexcrm/config"
	"nexcrm/models"
)

// ChatProvider returns an assistant reply for a system prompt plus the recent
// message window. The CRM only builds the prompt and keeps the transcript; the
// provider behind this interface is interchangeable.
type ChatProvider interface {
	Complete(systemPrompt string, messages []models.ChatMessage) (string, error)
}

// OpenAIChatProvider talks to an OpenAI-compatible chat completion endpoint.
type OpenAIChatProvider struct {
	client *resty.Client
	model  string
}

func NewOpenAIChatProvider() *OpenAIChatProvider {
	cfg := config.AppConfig
	client := resty.New().
		SetBaseURL(cfg.OpenAIBaseURL).
		SetAuthToken(cfg.OpenAIAPIKey).
		SetTimeout(60 * time.Second)

	return &OpenAIChatProvider{client: client, model: cfg.OpenAIModel}
}

type chatCompletionRequest struct {
	Model    string               `json:"model"`
	Messages []models.ChatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message models.ChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *OpenAIChatProvider) Complete(systemPrompt string, messages []models.ChatMessage) (string, error) {
	payload := chatCompletionRequest{
		Model:    p.model,
		Messages: append([]models.ChatMessage{{Role: "system", Content: systemPrompt}}, messages...),
	}

	var result chatCompletionResponse
	resp, err := p.client.R().
		SetBody(payload).
		SetResult(&result).
		SetError(&result).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	if resp.IsError() {
		if result.Error != nil {
			return "", fmt.Errorf("chat provider error: %s", result.Error.Message)
		}
		return "", fmt.Errorf("chat provider returned status %d", resp.StatusCode())
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("chat provider returned no choices")
	}
	return result.Choices[0].Message.Content, nil
}
