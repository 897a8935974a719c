package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"finnews/internal/domain"
	"finnews/internal/ports"
)

const telegramAPIBase = "https://api.telegram.org"

// Notifier sends run digests to a Telegram chat via the bot API.
type Notifier struct {
	botToken string
	chatID   string
	client   *http.Client
	apiBase  string
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
		apiBase:  telegramAPIBase,
	}
}

// PublishDigest posts a Markdown digest of the accepted records. An empty run
// sends nothing.
func (n *Notifier) PublishDigest(ctx context.Context, records []domain.ArticleRecord) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}
	if len(records) == 0 {
		return nil
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", buildDigest(records))
	form.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

// buildDigest renders one block per record: title, source, summary, link.
func buildDigest(records []domain.ArticleRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*Financial news digest* (%d articles)\n\n", len(records))
	for _, rec := range records {
		fmt.Fprintf(&sb, "- *%s* (%s)\n%s\n%s\n\n", rec.Title, rec.Source, rec.Summary, rec.URL)
	}
	return strings.TrimSpace(sb.String())
}
