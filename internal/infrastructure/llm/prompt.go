package llm

import "fmt"

const systemInstruction = "You are a financial news analyst. Summarize articles concisely and factually, focusing on market impact."

// BuildSummaryPrompt renders the user message asking for a short summary of
// one article.
func BuildSummaryPrompt(title, excerpt string) string {
	return fmt.Sprintf(
		"Summarize this financial news article in 2-3 sentences, focusing on the key facts and market impact.\n\nTitle: %s\n\nContent: %s",
		title,
		excerpt,
	)
}
