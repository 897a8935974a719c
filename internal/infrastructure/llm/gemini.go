package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"finnews/internal/config"
	"finnews/internal/domain"
	"finnews/internal/ports"
)

// GeminiSummarizer generates summaries through the Gemini API. Calls within
// one ingestion run share a chat session so the model keeps conversation
// context across articles; StartSession drops that history at run boundaries.
type GeminiSummarizer struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	chat      *genai.ChatSession
	modelName string
	logger    *slog.Logger
}

var _ ports.Summarizer = (*GeminiSummarizer)(nil)

// NewGeminiSummarizer dials the API and opens the first chat session.
func NewGeminiSummarizer(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger) (*GeminiSummarizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini summarizer misconfigured: missing api key")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("dial gemini: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemInstruction)},
	}

	g := &GeminiSummarizer{
		client:    client,
		model:     model,
		modelName: cfg.Model,
		logger:    log,
	}
	g.StartSession()
	return g, nil
}

// StartSession replaces the chat session with a fresh one, discarding the
// accumulated conversation.
func (g *GeminiSummarizer) StartSession() {
	g.chat = g.model.StartChat()
}

// Summarize sends one prompt over the current run's chat session.
func (g *GeminiSummarizer) Summarize(ctx context.Context, title, excerpt string) (string, error) {
	resp, err := g.chat.SendMessage(ctx, genai.Text(BuildSummaryPrompt(title, excerpt)))
	if err != nil {
		return "", &domain.SummarizationError{Provider: "gemini", Err: err}
	}

	summary := completionText(resp)
	if summary == "" {
		return "", &domain.SummarizationError{Provider: "gemini", Err: fmt.Errorf("empty completion")}
	}

	g.debug("gemini summary done", "model", g.modelName, "length", len(summary))
	return summary, nil
}

// Close releases the underlying API connection.
func (g *GeminiSummarizer) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func completionText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	return strings.TrimSpace(sb.String())
}

func (g *GeminiSummarizer) debug(msg string, args ...interface{}) {
	if g.logger != nil {
		g.logger.Debug(msg, args...)
	}
}
