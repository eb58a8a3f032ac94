// internal/pkg/email/resend.go
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/config"
)

const resendURL = "https://api.resend.com/emails"

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

// ResendTransport posts messages to the Resend HTTP API
type ResendTransport struct {
	cfg    config.EmailConfig
	client *http.Client
	url    string
}

func NewResendTransport(cfg config.EmailConfig, client *http.Client) *ResendTransport {
	return &ResendTransport{cfg: cfg, client: client, url: resendURL}
}

func (t *ResendTransport) Send(ctx context.Context, msg *Message) error {
	if t.cfg.APIKey == "" {
		return fmt.Errorf("Resend API key not configured")
	}

	payload, err := json.Marshal(resendRequest{
		From:    fromHeader(t.cfg),
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTMLContent,
		ReplyTo: t.cfg.ReplyTo,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal Resend request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create Resend request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Resend request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("Resend API returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}

// LogTransport writes messages to the log instead of sending them
type LogTransport struct {
	logger *logrus.Logger
}

func NewLogTransport(logger *logrus.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Send(_ context.Context, msg *Message) error {
	t.logger.WithFields(logrus.Fields{
		"kind":    msg.Kind,
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("email not sent, log provider configured")
	return nil
}
