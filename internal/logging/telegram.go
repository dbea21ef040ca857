package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/arashthr/shelfmark/internal/config"
)

type telegramLogging struct {
	enabled  bool
	endpoint string
	chatId   string
	client   *http.Client
}

// Telegram forwards error-level log entries to a chat when configured.
var Telegram telegramLogging

func initTelegram(configs *config.AppConfig) {
	enabled := false
	if configs.Logging.Telegram.Token != "" && configs.Logging.Telegram.ChatID != "" {
		enabled = true
	}
	endpoint := "https://api.telegram.org/bot" + configs.Logging.Telegram.Token + "/sendMessage"
	Telegram = telegramLogging{
		endpoint: endpoint,
		chatId:   configs.Logging.Telegram.ChatID,
		enabled:  enabled,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (tg *telegramLogging) hook(entry zapcore.Entry) error {
	if !tg.enabled || entry.Level < zapcore.ErrorLevel {
		return nil
	}
	message := fmt.Sprintf("[%s] %s (%s)", entry.Level.CapitalString(), entry.Message, entry.Caller.TrimmedPath())
	go tg.SendMessage(message)
	return nil
}

func (tg *telegramLogging) SendMessage(message string) error {
	if !tg.enabled {
		return fmt.Errorf("telegram logging is disabled")
	}
	body, err := json.Marshal(map[string]string{
		"text":    message,
		"chat_id": tg.chatId,
	})
	if err != nil {
		return fmt.Errorf("telegram message body: %w", err)
	}
	resp, err := tg.client.Post(tg.endpoint, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("telegram message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram message status failed with %s", resp.Status)
	}
	return nil
}
