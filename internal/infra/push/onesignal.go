// Package push implements notify.PushSender on top of the OneSignal
// HTTP API.
package push

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

const defaultBaseURL = "https://onesignal.com/api/v1"

type OneSignalClient struct {
	httpClient *http.Client
	baseURL    string
	appID      string
	apiKey     string
	logger     *logrus.Logger
}

func NewOneSignalClient(appID, apiKey string, logger *logrus.Logger) *OneSignalClient {
	return &OneSignalClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultBaseURL,
		appID:      appID,
		apiKey:     apiKey,
		logger:     logger,
	}
}

// SetBaseURL overrides the API endpoint, for tests.
func (c *OneSignalClient) SetBaseURL(url string) {
	c.baseURL = url
}

type createNotificationRequest struct {
	AppID            string            `json:"app_id"`
	IncludePlayerIDs []string          `json:"include_player_ids"`
	Headings         map[string]string `json:"headings"`
	Contents         map[string]string `json:"contents"`
	Data             map[string]string `json:"data,omitempty"`
}

func (c *OneSignalClient) Send(ctx context.Context, p notify.Push) error {
	if len(p.PlayerIDs) == 0 {
		return nil
	}

	payload, err := json.Marshal(createNotificationRequest{
		AppID:            c.appID,
		IncludePlayerIDs: p.PlayerIDs,
		Headings:         map[string]string{"en": p.Title},
		Contents:         map[string]string{"en": p.Message},
		Data:             p.Data,
	})
	if err != nil {
		return fmt.Errorf("error marshaling push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/notifications", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("error building push request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("push API returned status %d: %s", resp.StatusCode, string(body))
	}

	c.logger.WithField("recipients", len(p.PlayerIDs)).Debug("Push accepted by provider")
	return nil
}
