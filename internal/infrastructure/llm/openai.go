package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"finnews/internal/config"
	"finnews/internal/domain"
	"finnews/internal/ports"
)

// OpenAISummarizer implements ports.Summarizer backed by OpenAI-compatible
// chat APIs.
type OpenAISummarizer struct {
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
}

var _ ports.Summarizer = (*OpenAISummarizer)(nil)

// NewOpenAISummarizer builds a client from configuration; a nil HTTP client
// gets a 20s default.
func NewOpenAISummarizer(client *http.Client, cfg config.OpenAIConfig) *OpenAISummarizer {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &OpenAISummarizer{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		client:   client,
	}
}

// StartSession is a no-op: every chat completion request is stateless.
func (o *OpenAISummarizer) StartSession() {}

// Summarize posts one chat completion request per article.
func (o *OpenAISummarizer) Summarize(ctx context.Context, title, excerpt string) (string, error) {
	if o.apiKey == "" || o.endpoint == "" || o.model == "" {
		return "", fmt.Errorf("openai summarizer misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model": o.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemInstruction},
			{"role": "user", "content": BuildSummaryPrompt(title, excerpt)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", &domain.SummarizationError{Provider: "openai", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &domain.SummarizationError{
			Provider: "openai",
			Err:      fmt.Errorf("chat error %s: %s", resp.Status, strings.TrimSpace(string(detail))),
		}
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", &domain.SummarizationError{Provider: "openai", Err: fmt.Errorf("decode completion: %w", err)}
	}

	if len(completion.Choices) == 0 {
		return "", &domain.SummarizationError{Provider: "openai", Err: fmt.Errorf("empty completion")}
	}

	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}
