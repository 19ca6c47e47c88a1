package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// YCloudClient sends WhatsApp texts through the YCloud v2 API.
type YCloudClient struct {
	httpClient *resty.Client
	from       string
	logger     *zap.Logger
}

type ycloudTextMessage struct {
	From string `json:"from"`
	To   string `json:"to"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
}

func NewYCloudClient(baseURL, apiKey, from string, logger *zap.Logger) *YCloudClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-API-Key", apiKey)

	return &YCloudClient{httpClient: client, from: from, logger: logger}
}

func (c *YCloudClient) SendText(ctx context.Context, to, body string) error {
	msg := ycloudTextMessage{From: c.from, To: to, Type: "text"}
	msg.Text.Body = body

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(msg).
		Post("/v2/whatsapp/messages")
	if err != nil {
		c.logger.Error("YCloud API call failed", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("failed to call YCloud: %w", err)
	}
	if resp.IsError() {
		c.logger.Warn("YCloud rejected message",
			zap.String("to", to),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("body", resp.String()),
		)
		return fmt.Errorf("YCloud error: status %d", resp.StatusCode())
	}
	c.logger.Info("WhatsApp message sent", zap.String("to", to))
	return nil
}

// LogSender stands in for YCloud when no API key is configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendText(_ context.Context, to, body string) error {
	s.logger.Info("WhatsApp message (not sent, YCloud disabled)", zap.String("to", to), zap.String("body", body))
	return nil
}
