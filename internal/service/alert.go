package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/safety_dispatch/internal/config"
	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/shenikar/safety_dispatch/internal/webhook"
	"github.com/shenikar/safety_dispatch/pkg/e"
	"github.com/shenikar/safety_dispatch/pkg/validator"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=alert.go -destination=mocks/mock_alert.go -package=mocks

// AlertRepository определяет контракт хранилища тревог
type AlertRepository interface {
	// CreateAlertIfNoneActive вставляет тревогу, только если у заявителя нет активной.
	CreateAlertIfNoneActive(ctx context.Context, alert *models.PanicAlert) (bool, error)
	GetAlertByID(ctx context.Context, id uuid.UUID) (*models.PanicAlert, error)
	GetActiveAlertByReporter(ctx context.Context, reporterID string) (*models.PanicAlert, error)
	// AddAlertResponder добавляет откликнувшегося, пока тревога активна и лимит не исчерпан.
	AddAlertResponder(ctx context.Context, id uuid.UUID, responderID string, limit int) (*models.PanicAlert, bool, error)
	UpdateAlertStatus(ctx context.Context, id uuid.UUID, expected, next models.AlertStatus, closedBy string) (*models.PanicAlert, bool, error)
	ListActiveAlertsBefore(ctx context.Context, before time.Time) ([]*models.PanicAlert, error)
}

// ContactReader - доступ к экстренным контактам только на чтение
type ContactReader interface {
	ListContacts(ctx context.Context, userID string) ([]*models.EmergencyContact, error)
}

// AlertService определяет контракт жизненного цикла тревог
type AlertService interface {
	TriggerPanic(ctx context.Context, req models.ActivateAlert) (*models.PanicAlert, error)
	GetAlert(ctx context.Context, id uuid.UUID) (*models.PanicAlert, error)
	GetActiveAlert(ctx context.Context, reporterID string) (*models.PanicAlert, error)
	TransitionAlert(ctx context.Context, id uuid.UUID, next models.AlertStatus, actor models.Actor) (*models.PanicAlert, error)
	AcknowledgeAlert(ctx context.Context, id uuid.UUID, responderID string) (models.ClaimOutcome, error)
	ExpireStaleAlerts(ctx context.Context) (int, error)
}

type alertService struct {
	repo      AlertRepository
	contacts  ContactReader
	queue     MatchQueue
	publisher webhook.WebhookPublisher
	arbiter   *Arbiter
	logger    *logrus.Logger
	cfg       *config.Config
	now       func() time.Time
}

func NewAlertService(
	repo AlertRepository,
	contacts ContactReader,
	queue MatchQueue,
	publisher webhook.WebhookPublisher,
	arbiter *Arbiter,
	logger *logrus.Logger,
	cfg *config.Config,
) AlertService {
	return &alertService{
		repo:      repo,
		contacts:  contacts,
		queue:     queue,
		publisher: publisher,
		arbiter:   arbiter,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// TriggerPanic создает активную тревогу. Отсутствие координат не блокирует сигнал.
func (s *alertService) TriggerPanic(ctx context.Context, req models.ActivateAlert) (*models.PanicAlert, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "alert",
		"method":      "TriggerPanic",
		"reporter_id": req.ReporterID,
		"located":     req.Location != nil,
	})

	if req.ReporterID == "" {
		return nil, e.Validation("reporter is required")
	}
	if req.Location != nil {
		rules := locationRules{Latitude: req.Location.Latitude, Longitude: req.Location.Longitude}
		if err := validator.ValidateStruct(rules); err != nil {
			return nil, e.Validation(err.Error())
		}
	}

	now := s.now().UTC()
	alert := &models.PanicAlert{
		ID:           uuid.New(),
		ReporterID:   req.ReporterID,
		Location:     req.Location,
		Status:       models.AlertActive,
		ResponderIDs: []string{},
		NextMatchAt:  &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.CreateAlertIfNoneActive(ctx, alert)
	if err != nil {
		log.WithError(err).Error("Failed to create panic alert")
		return nil, fmt.Errorf("service: could not create panic alert: %w", err)
	}
	if !created {
		log.Info("Panic alert already active for reporter")
		return nil, fmt.Errorf("service: reporter %s: %w", req.ReporterID, e.ErrAlreadyActive)
	}
	log = log.WithField("alert_id", alert.ID)

	if err := s.queue.Enqueue(ctx, models.MatchJob{Kind: models.KindPanic, RecordID: alert.ID}); err != nil {
		log.WithError(err).Error("Failed to enqueue panic alert for matching")
	}
	s.broadcast(ctx, log, alert)

	log.Warn("Panic alert activated")
	return alert, nil
}

// broadcast уведомляет службы и экстренные контакты о каждой новой тревоге
func (s *alertService) broadcast(ctx context.Context, log *logrus.Entry, alert *models.PanicAlert) {
	contacts, err := s.contacts.ListContacts(ctx, alert.ReporterID)
	if err != nil {
		log.WithError(err).Warn("Failed to load emergency contacts")
	}

	event := webhook.WebhookEvent{
		Type:      webhook.EventPanicBroadcast,
		Kind:      models.KindPanic,
		RecordID:  alert.ID,
		UserID:    alert.ReporterID,
		Location:  alert.Location,
		Contacts:  contacts,
		Timestamp: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).Error("Failed to publish panic broadcast")
	}
}

func (s *alertService) GetAlert(ctx context.Context, id uuid.UUID) (*models.PanicAlert, error) {
	alert, err := s.repo.GetAlertByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: could not get panic alert: %w", err)
	}
	return alert, nil
}

func (s *alertService) GetActiveAlert(ctx context.Context, reporterID string) (*models.PanicAlert, error) {
	if reporterID == "" {
		return nil, e.Validation("reporter is required")
	}
	alert, err := s.repo.GetActiveAlertByReporter(ctx, reporterID)
	if err != nil {
		return nil, fmt.Errorf("service: could not get active panic alert: %w", err)
	}
	return alert, nil
}

// TransitionAlert закрывает активную тревогу по действию заявителя или служб
func (s *alertService) TransitionAlert(ctx context.Context, id uuid.UUID, next models.AlertStatus, actor models.Actor) (*models.PanicAlert, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "alert",
		"method":   "TransitionAlert",
		"alert_id": id,
		"next":     next,
		"actor_id": actor.ID,
	})

	if !next.Valid() {
		return nil, e.Validation("unknown status " + string(next))
	}
	if actor.ID == "" {
		return nil, e.Validation("actor is required")
	}

	current, err := s.repo.GetAlertByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: could not get panic alert: %w", err)
	}

	if current.Status != models.AlertActive || next == models.AlertActive {
		return nil, e.IllegalTransition(string(current.Status), string(next))
	}
	if actor.ID != current.ReporterID && !actor.IsAuthority() {
		log.Warn("Actor may not close panic alert")
		return nil, fmt.Errorf("%w: %w", e.IllegalTransition(string(current.Status), string(next)), e.ErrActorNotPermitted)
	}

	updated, ok, err := s.repo.UpdateAlertStatus(ctx, id, models.AlertActive, next, actor.ID)
	if err != nil {
		log.WithError(err).Error("Failed to update panic alert status")
		return nil, fmt.Errorf("service: could not update panic alert: %w", err)
	}
	if !ok {
		log.Info("Panic alert changed concurrently, transition rejected")
		return nil, e.IllegalTransition(string(current.Status), string(next))
	}

	log.Info("Panic alert closed")
	return updated, nil
}

func (s *alertService) AcknowledgeAlert(ctx context.Context, id uuid.UUID, responderID string) (models.ClaimOutcome, error) {
	return s.arbiter.Acknowledge(ctx, id, responderID)
}

// ExpireStaleAlerts закрывает тревоги, активные дольше ALERT_TTL
func (s *alertService) ExpireStaleAlerts(ctx context.Context) (int, error) {
	if s.cfg.AlertTTL <= 0 {
		return 0, nil
	}

	log := s.logger.WithFields(logrus.Fields{
		"service": "alert",
		"method":  "ExpireStaleAlerts",
	})

	stale, err := s.repo.ListActiveAlertsBefore(ctx, s.now().UTC().Add(-s.cfg.AlertTTL))
	if err != nil {
		return 0, fmt.Errorf("service: could not list stale panic alerts: %w", err)
	}

	expired := 0
	for _, alert := range stale {
		_, ok, err := s.repo.UpdateAlertStatus(ctx, alert.ID, models.AlertActive, models.AlertResolved, models.SystemActorTimeout)
		if err != nil {
			log.WithError(err).WithField("alert_id", alert.ID).Error("Failed to expire panic alert")
			continue
		}
		if ok {
			expired++
			log.WithField("alert_id", alert.ID).Warn("Panic alert closed by timeout policy")
		}
	}
	return expired, nil
}

// RunAlertSweeper периодически применяет политику таймаута тревог
func RunAlertSweeper(ctx context.Context, svc AlertService, interval time.Duration, logger *logrus.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.ExpireStaleAlerts(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("Alert sweeper run failed")
			}
		}
	}
}
