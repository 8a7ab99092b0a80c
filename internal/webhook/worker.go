package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shenikar/safety_dispatch/internal/config"
	"github.com/sirupsen/logrus"
)

const popTimeout = time.Second

// WebhookWorker - структура для обработки и отправки вебхуков
type WebhookWorker struct {
	redisClient *redis.Client
	logger      *logrus.Logger
	cfg         *config.Config
	httpClient  *http.Client
	// inflight учитывает цикл очереди и фоновые доставки DirectPublisher
	inflight sync.WaitGroup
}

// NewWebhookWorker создает новый WebhookWorker
func NewWebhookWorker(redisClient *redis.Client, logger *logrus.Logger, cfg *config.Config) *WebhookWorker {
	return &WebhookWorker{
		redisClient: redisClient,
		logger:      logger,
		cfg:         cfg,
		httpClient: &http.Client{
			Timeout: cfg.WebhookTimeout,
		},
	}
}

// Start запускает горутину для обработки очереди вебхуков.
// Ожидание BRPOP ограничено popTimeout, иначе отмена ctx не прервет чтение.
func (w *WebhookWorker) Start(ctx context.Context) {
	w.logger.Info("Starting webhook worker...")
	w.inflight.Add(1)
	go func() {
		defer w.inflight.Done()
		for {
			select {
			case <-ctx.Done():
				w.logger.Info("Stopping webhook worker.")
				return
			default:
			}

			result, err := w.redisClient.BRPop(ctx, popTimeout, webhookQueueKey).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
					continue
				}
				w.logger.WithError(err).Error("Failed to pop webhook event from Redis")
				sleepCtx(ctx, w.cfg.WebhookTimeout)
				continue
			}

			// result[0] - ключ, result[1] - значение
			payload := result[1]
			var event WebhookEvent
			if err := json.Unmarshal([]byte(payload), &event); err != nil {
				w.logger.WithError(err).Error("Failed to unmarshal webhook event from Redis")
				continue
			}

			if w.processWebhookEvent(ctx, event, payload) && ctx.Err() != nil {
				w.requeue(payload, event)
			}
		}
	}()
}

// Wait блокируется, пока не завершатся цикл очереди и все начатые доставки
func (w *WebhookWorker) Wait() {
	w.inflight.Wait()
}

// requeue возвращает прерванное событие в правый конец списка, откуда его первым заберет BRPOP
func (w *WebhookWorker) requeue(rawPayload string, event WebhookEvent) {
	timeout := w.cfg.WebhookTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	log := w.logger.WithField("event_record_id", event.RecordID)
	if err := w.redisClient.RPush(ctx, webhookQueueKey, rawPayload).Err(); err != nil {
		log.WithError(err).Error("Failed to return interrupted webhook event to Redis")
		return
	}
	log.Warn("Webhook delivery interrupted, event returned to the queue")
}

// processWebhookEvent возвращает true, если доставка не удалась
func (w *WebhookWorker) processWebhookEvent(ctx context.Context, event WebhookEvent, rawPayload string) bool {
	log := w.logger.WithFields(logrus.Fields{
		"event_type":      event.Type,
		"event_record_id": event.RecordID,
		"event_attempt":   event.Attempt,
	})
	log.Debug("Processing webhook event...")

	if w.cfg.WebhookURL == "" {
		log.Warn("Webhook URL is not configured. Skipping webhook delivery.")
		return false
	}

	if err := w.Deliver(ctx, rawPayload); err != nil {
		log.WithError(err).Error("Failed to deliver webhook for event.")
		return true
	}
	log.Info("Webhook delivered successfully.")
	return false
}

// Deliver отправляет payload на WEBHOOK_URL с экспоненциальной задержкой между попытками
func (w *WebhookWorker) Deliver(ctx context.Context, rawPayload string) error {
	maxRetries := w.cfg.WebhookMaxRetries
	baseDelay := w.cfg.WebhookBaseDelay

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			if !sleepCtx(ctx, baseDelay) {
				return ctx.Err()
			}
			baseDelay *= 2
		}

		lastErr = w.send(ctx, rawPayload)
		if lastErr == nil {
			return nil
		}
		w.logger.WithError(lastErr).Warnf("Webhook attempt failed. Retries left: %d", maxRetries-1-i)
	}
	return fmt.Errorf("after %d attempts: %w", maxRetries, lastErr)
}

func (w *WebhookWorker) send(ctx context.Context, rawPayload string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.WebhookURL, bytes.NewBufferString(rawPayload))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Добавляем HMAC подпись, если WEBHOOK_SECRET задан
	if w.cfg.WebhookSecret != "" {
		req.Header.Set("X-Webhook-Signature", generateHMACSHA256(rawPayload, w.cfg.WebhookSecret))
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded with status code %d", resp.StatusCode)
	}
	return nil
}

// DirectPublisher отправляет события сразу, без очереди Redis
type DirectPublisher struct {
	worker *WebhookWorker
}

func NewDirectPublisher(worker *WebhookWorker) *DirectPublisher {
	return &DirectPublisher{worker: worker}
}

// Publish не ждет доставки: повторы идут в фоне
func (p *DirectPublisher) Publish(ctx context.Context, event WebhookEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook event: %w", err)
	}

	p.worker.inflight.Add(1)
	go func() {
		defer p.worker.inflight.Done()
		p.worker.processWebhookEvent(context.WithoutCancel(ctx), event, string(payload))
	}()
	return nil
}

// generateHMACSHA256 генерирует HMAC-SHA256 подпись для данных
func generateHMACSHA256(data, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
