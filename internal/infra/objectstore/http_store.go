// Package objectstore implements the storage contract against an
// HTTP-fronted object store. Serving URLs are derived from the base
// URL; deletion goes through the store's API.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

type HTTPStore struct {
	httpClient *http.Client
	baseURL    string
	logger     *logrus.Logger
}

func NewHTTPStore(baseURL string, logger *logrus.Logger) *HTTPStore {
	return &HTTPStore{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		logger:     logger,
	}
}

func (s *HTTPStore) URL(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("empty storage reference")
	}
	return s.baseURL + "/objects/" + url.PathEscape(ref), nil
}

func (s *HTTPStore) Delete(ctx context.Context, ref string) error {
	if ref == "" {
		return fmt.Errorf("empty storage reference")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.baseURL+"/objects/"+url.PathEscape(ref), nil)
	if err != nil {
		return fmt.Errorf("error building storage delete request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error deleting stored object: %w", err)
	}
	defer resp.Body.Close()

	// Already-gone objects are fine: deletion is idempotent.
	if resp.StatusCode == http.StatusNotFound {
		s.logger.WithField("ref", ref).Debug("Stored object already absent")
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("storage API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
