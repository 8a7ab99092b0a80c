package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/shenikar/safety_dispatch/pkg/e"
	"github.com/sirupsen/logrus"
)

type notifyRequest struct {
	ResponderID  string              `json:"responder_id"`
	Notification models.Notification `json:"notification"`
}

// HTTPTransport доставляет уведомление одному волонтеру через шлюз NOTIFY_URL
type HTTPTransport struct {
	url        string
	secret     string
	httpClient *http.Client
}

func NewHTTPTransport(url, secret string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		url:        url,
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Send возвращает ошибку с e.ErrDeliveryFailed, если шлюз не подтвердил доставку
func (t *HTTPTransport) Send(ctx context.Context, responderID string, n models.Notification) error {
	payload, err := json.Marshal(notifyRequest{ResponderID: responderID, Notification: n})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.secret != "" {
		req.Header.Set("X-Webhook-Signature", generateHMACSHA256(string(payload), t.secret))
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", e.ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status code %d", e.ErrDeliveryFailed, resp.StatusCode)
	}
	return nil
}

// LogTransport считает уведомление доставленным после записи в лог
type LogTransport struct {
	logger *logrus.Logger
}

func NewLogTransport(logger *logrus.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Send(_ context.Context, responderID string, n models.Notification) error {
	t.logger.WithFields(logrus.Fields{
		"responder_id": responderID,
		"kind":         n.Kind,
		"record_id":    n.RecordID,
	}).Info("Notification sent")
	return nil
}
