package llm

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"finnews/internal/config"
)

func TestNewGeminiSummarizerRequiresKey(t *testing.T) {
	t.Parallel()

	if _, err := NewGeminiSummarizer(context.Background(), config.GeminiConfig{Model: "gemini-1.5-flash"}, nil); err == nil {
		t.Fatal("expected a configuration error without an api key")
	}
}

func TestCompletionText(t *testing.T) {
	t.Parallel()

	if got := completionText(nil); got != "" {
		t.Fatalf("nil response must yield empty text, got %q", got)
	}

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			nil,
			{Content: nil},
			{Content: &genai.Content{Parts: []genai.Part{
				genai.Text("Rates held steady. "),
				genai.Text("Markets rallied on the guidance."),
			}}},
		},
	}

	want := "Rates held steady. Markets rallied on the guidance."
	if got := completionText(resp); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
