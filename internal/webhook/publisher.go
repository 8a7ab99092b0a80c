package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	webhookQueueKey = "webhook_events"
)

type EventType string

const (
	// EventEscalation - подходящих волонтеров нет или ни одно уведомление не доставлено
	EventEscalation EventType = "unassigned_escalation"
	// EventPanicBroadcast - новая тревога для служб и экстренных контактов
	EventPanicBroadcast EventType = "panic_broadcast"
)

// WebhookEvent - структура для данных вебхука
type WebhookEvent struct {
	Type           EventType                  `json:"type"`
	Kind           models.RecordKind          `json:"kind"`
	RecordID       uuid.UUID                  `json:"record_id"`
	UserID         string                     `json:"user_id,omitempty"`
	Location       *models.Location           `json:"location,omitempty"`
	Reason         string                     `json:"reason,omitempty"`
	Attempt        int                        `json:"attempt"`
	ManualHandling bool                       `json:"manual_handling"`
	Contacts       []*models.EmergencyContact `json:"contacts,omitempty"`
	Timestamp      time.Time                  `json:"timestamp"`
}

//go:generate mockgen -source=publisher.go -destination=mocks/mock_publisher.go -package=mocks

// WebhookPublisher - интерфейс для публикации вебхуков
type WebhookPublisher interface {
	Publish(ctx context.Context, event WebhookEvent) error
}

// RedisWebhookPublisher - реализация WebhookPublisher, использующая Redis
type RedisWebhookPublisher struct {
	redisClient *redis.Client
}

// NewRedisWebhookPublisher создает новый RedisWebhookPublisher
func NewRedisWebhookPublisher(client *redis.Client) *RedisWebhookPublisher {
	return &RedisWebhookPublisher{
		redisClient: client,
	}
}

// Publish публикует событие вебхука в очередь Redis
func (p *RedisWebhookPublisher) Publish(ctx context.Context, event WebhookEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook event: %w", err)
	}

	// LPUSH в левую часть списка, воркер забирает справа
	if err := p.redisClient.LPush(ctx, webhookQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish webhook event to Redis: %w", err)
	}
	return nil
}

// LogPublisher пишет события в лог, когда Redis не используется
type LogPublisher struct {
	logger *logrus.Logger
}

func NewLogPublisher(logger *logrus.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event WebhookEvent) error {
	p.logger.WithFields(logrus.Fields{
		"type":            event.Type,
		"kind":            event.Kind,
		"record_id":       event.RecordID,
		"reason":          event.Reason,
		"attempt":         event.Attempt,
		"manual_handling": event.ManualHandling,
		"contacts":        len(event.Contacts),
	}).Warn("Authority event")
	return nil
}
