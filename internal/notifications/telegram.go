package notifications

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quantforge/riskpipe/internal/logger"
)

// TelegramNotifier posts alerts to a Telegram chat via the Bot API.
type TelegramNotifier struct {
	token  string
	chatID string
	client *http.Client
	logger *logger.Logger
}

func NewTelegramNotifier(token, chatID string, log *logger.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: log,
	}
}

// Publish sends the alert on a background goroutine. Failures are
// logged, never returned.
func (t *TelegramNotifier) Publish(topic, message, source string) {
	go func() {
		if err := t.send(topic, message, source); err != nil && t.logger != nil {
			t.logger.LogError("telegram notify", err)
		}
	}()
}

func (t *TelegramNotifier) send(topic, message, source string) error {
	emoji := "ℹ️"
	switch topic {
	case TopicOrderRejected, TopicLimitBreach:
		emoji = "⚠️"
	case TopicCooldown:
		emoji = "🚨"
	case TopicOrderFilled:
		emoji = "✅"
	}

	text := fmt.Sprintf("%s *RiskPipe* [%s]\n\n%s", emoji, source, message)

	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)

	data := url.Values{}
	data.Set("chat_id", t.chatID)
	data.Set("text", text)
	data.Set("parse_mode", "Markdown")

	resp, err := t.client.Post(apiURL, "application/x-www-form-urlencoded",
		strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}
