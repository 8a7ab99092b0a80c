package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/shenikar/safety_dispatch/pkg/e"
)

const defaultTimeout = 10 * time.Second

// Client - HTTP-клиент API диспетчерской
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/") + "/api/v1",
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type triggerRequest struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Address   string   `json:"address,omitempty"`
}

// Activate отправляет тревогу от имени req.ReporterID
func (c *Client) Activate(ctx context.Context, req models.ActivateAlert) (*models.PanicAlert, error) {
	return c.TriggerPanic(ctx, req.ReporterID, req.Location)
}

// TriggerPanic создает тревогу. Повторная активация возвращает e.ErrAlreadyActive.
func (c *Client) TriggerPanic(ctx context.Context, reporterID string, location *models.Location) (*models.PanicAlert, error) {
	var body triggerRequest
	if location != nil {
		body.Latitude = &location.Latitude
		body.Longitude = &location.Longitude
		body.Address = location.Address
	}

	var alert models.PanicAlert
	if err := c.do(ctx, http.MethodPost, "/emergency/panic", reporterID, body, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

func (c *Client) GetActiveAlert(ctx context.Context, reporterID string) (*models.PanicAlert, error) {
	var alert models.PanicAlert
	path := "/emergency/panic/active?reporter_id=" + url.QueryEscape(reporterID)
	if err := c.do(ctx, http.MethodGet, path, reporterID, nil, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

// CancelAlert закрывает тревогу как ложную
func (c *Client) CancelAlert(ctx context.Context, reporterID string, id uuid.UUID) (*models.PanicAlert, error) {
	var alert models.PanicAlert
	if err := c.do(ctx, http.MethodPost, "/emergency/panic/"+id.String()+"/false-alarm", reporterID, nil, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

func (c *Client) do(ctx context.Context, method, path, actorID string, in, out any) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("client: failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("X-Actor-ID", actorID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return e.WrapError(ctx, "client: "+method+" "+path, ctxErr)
		}
		return fmt.Errorf("client: %s %s: %w: %v", method, path, e.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("client: failed to decode response: %w", err)
		}
		return nil
	}

	var apiErr errorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr)
	return statusError(resp.StatusCode, apiErr)
}

// statusError отображает ответ API обратно на ошибки пакета e
func statusError(status int, apiErr errorResponse) error {
	var sentinel error
	switch apiErr.Code {
	case "already_active":
		sentinel = e.ErrAlreadyActive
	case "validation":
		sentinel = e.ErrValidation
	case "not_found":
		sentinel = e.ErrNotFound
	case "not_permitted":
		sentinel = e.ErrActorNotPermitted
	case "illegal_transition":
		sentinel = e.ErrIllegalTransition
	}

	if sentinel == nil {
		switch {
		case status == http.StatusConflict:
			sentinel = e.ErrAlreadyActive
		case status == http.StatusTooManyRequests || status >= 500:
			sentinel = e.ErrUnavailable
		default:
			sentinel = e.ErrInternal
		}
	}

	msg := apiErr.Error
	if msg == "" {
		msg = http.StatusText(status)
	}
	return fmt.Errorf("client: status %d: %w: %s", status, sentinel, msg)
}

// IsUnavailable сообщает, что до API не удалось достучаться
func IsUnavailable(err error) bool {
	return errors.Is(err, e.ErrUnavailable) || errors.Is(err, e.ErrDeadline)
}
