// Package notifications posts bot lifecycle events to a chat webhook.
// Delivery is best effort and never blocks a request outcome.
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gridpilot/gridpilot-backend/internal/httputil"
	"github.com/gridpilot/gridpilot-backend/internal/models"
	"github.com/sirupsen/logrus"
)

type Sender struct {
	webhookURL string
	botName    string
	httpClient *http.Client
	retry      httputil.Retrier
}

func NewSender(webhookURL, botName string) *Sender {
	if botName == "" {
		botName = "GridPilot"
	}
	return &Sender{
		webhookURL: webhookURL,
		botName:    botName,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.Retrier{
			Attempts:  3,
			BaseDelay: 1 * time.Second,
			MaxDelay:  5 * time.Second,
		},
	}
}

func (s *Sender) Enabled() bool {
	return s.webhookURL != ""
}

// BotCreated announces a new bot.
func (s *Sender) BotCreated(bot *models.Bot) {
	s.Send(fmt.Sprintf("Bot #%d %q created: %s, %d grids between %.2f and %.2f, investment %.2f",
		bot.ID, bot.Name, bot.TradingPair, bot.GridCount, bot.LowerLimit, bot.UpperLimit, bot.Investment))
}

// BotStatusChanged announces a lifecycle transition.
func (s *Sender) BotStatusChanged(bot *models.Bot, oldStatus string) {
	s.Send(fmt.Sprintf("Bot #%d %q: %s -> %s", bot.ID, bot.Name, oldStatus, bot.Status))
}

// Send logs the message and, when a webhook is configured, delivers it with
// retries in the caller's goroutine.
func (s *Sender) Send(msg string) {
	formatted := fmt.Sprintf("[%s] %s", s.botName, msg)
	logrus.Info(formatted)

	if s.webhookURL == "" {
		return
	}

	body, err := json.Marshal(s.formatPayload(formatted))
	if err != nil {
		logrus.Errorf("notification marshal: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := s.retry.Do(ctx, s.httpClient, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		logrus.Errorf("notification delivery failed after retries: %v", err)
		return
	}
	resp.Body.Close()
}

// Discord wants "content", Slack-compatible hooks want "text".
func (s *Sender) formatPayload(msg string) map[string]string {
	if strings.Contains(s.webhookURL, "discord") {
		return map[string]string{
			"content":  msg,
			"username": s.botName,
		}
	}
	return map[string]string{
		"text":     fmt.Sprintf("`%s`", msg),
		"username": s.botName,
	}
}
