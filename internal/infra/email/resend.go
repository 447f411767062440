// Package email implements notify.EmailSender on top of the Resend
// HTTP API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"second_saturday/internal/domain/notify"

	"github.com/sirupsen/logrus"
)

const defaultBaseURL = "https://api.resend.com"

type ResendClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	from       string
	logger     *logrus.Logger
}

func NewResendClient(apiKey, from string, logger *logrus.Logger) *ResendClient {
	return &ResendClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		from:       from,
		logger:     logger,
	}
}

// SetBaseURL overrides the API endpoint, for tests.
func (c *ResendClient) SetBaseURL(url string) {
	c.baseURL = url
}

type sendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (c *ResendClient) Send(ctx context.Context, e notify.Email) error {
	payload, err := json.Marshal(sendEmailRequest{
		From:    c.from,
		To:      []string{e.To},
		Subject: e.Subject,
		HTML:    e.HTML,
	})
	if err != nil {
		return fmt.Errorf("error marshaling email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("error building email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("email API returned status %d: %s", resp.StatusCode, string(body))
	}

	c.logger.WithField("to", e.To).Debug("Email accepted by provider")
	return nil
}
