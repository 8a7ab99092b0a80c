package matcher

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
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=matcher.go -destination=mocks/mock_matcher.go -package=mocks

type ReportSource interface {
	GetReportByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	// RecordReportMatchAttempt пишет итог, только пока отчет ждет волонтера; иначе false.
	RecordReportMatchAttempt(ctx context.Context, id uuid.UUID, attempt models.MatchAttempt) (bool, error)
}

type AlertSource interface {
	GetAlertByID(ctx context.Context, id uuid.UUID) (*models.PanicAlert, error)
	RecordAlertMatchAttempt(ctx context.Context, id uuid.UUID, attempt models.MatchAttempt) (bool, error)
}

type Roster interface {
	ListAvailableResponders(ctx context.Context) ([]*models.Responder, error)
}

type Scheduler interface {
	Schedule(ctx context.Context, job models.MatchJob, at time.Time) error
}

const (
	reasonNoCandidates    = "no_candidates"
	reasonDeliveryFailure = "all_deliveries_failed"
	reasonStoreFailure    = "store_unavailable"
	reasonRosterFailure   = "roster_unavailable"
)

const requeueTimeout = 5 * time.Second

// Matcher подбирает волонтеров для новой записи и эскалирует неудачи службам
type Matcher struct {
	reports    ReportSource
	alerts     AlertSource
	roster     Roster
	dispatcher *Dispatcher
	scheduler  Scheduler
	publisher  webhook.WebhookPublisher
	topK       int
	backoff    time.Duration
	maxRetries int
	logger     *logrus.Logger
	now        func() time.Time
}

func NewMatcher(
	reports ReportSource,
	alerts AlertSource,
	roster Roster,
	dispatcher *Dispatcher,
	scheduler Scheduler,
	publisher webhook.WebhookPublisher,
	logger *logrus.Logger,
	cfg *config.Config,
) *Matcher {
	return &Matcher{
		reports:    reports,
		alerts:     alerts,
		roster:     roster,
		dispatcher: dispatcher,
		scheduler:  scheduler,
		publisher:  publisher,
		topK:       cfg.MatchTopK,
		backoff:    cfg.MatchBackoff,
		maxRetries: cfg.MatchMaxRetries,
		logger:     logger,
		now:        time.Now,
	}
}

// target - общий вид отчета и тревоги для одного прохода подбора
type target struct {
	notification models.Notification
	userID       string
	topK         int
	record       func(ctx context.Context, attempt models.MatchAttempt) (bool, error)
}

// Handle выполняет одну попытку подбора. Сбой хранилища или транспорта засчитывается
// как неудачная попытка: службам уходит эскалация, повтор планируется через MATCH_BACKOFF.
// Ошибка возвращается, только если задачу не удалось вернуть в очередь.
func (m *Matcher) Handle(ctx context.Context, job models.MatchJob) error {
	log := m.logger.WithFields(logrus.Fields{
		"service":   "matcher",
		"kind":      job.Kind,
		"record_id": job.RecordID,
		"attempt":   job.Attempt,
	})

	t, skip, err := m.load(ctx, job)
	switch {
	case errors.Is(err, e.ErrNotFound):
		log.Warn("Record disappeared, dropping match job")
		return nil
	case errors.Is(err, e.ErrValidation):
		log.WithError(err).Error("Malformed match job dropped")
		return nil
	case err != nil:
		if ctx.Err() != nil {
			return m.requeue(ctx, log, job)
		}
		log.WithError(err).Error("Failed to load record for matching")
		return m.escalate(ctx, log, job, m.unloaded(job), reasonStoreFailure)
	case skip:
		log.Debug("Record no longer needs matching")
		return nil
	}

	roster, err := m.roster.ListAvailableResponders(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return m.requeue(ctx, log, job)
		}
		log.WithError(err).Error("Failed to list available responders")
		return m.escalate(ctx, log, job, t, reasonRosterFailure)
	}
	candidates := SelectCandidates(roster, t.notification.Location, t.topK)

	reason := reasonNoCandidates
	if len(candidates) > 0 {
		result, err := m.dispatcher.Dispatch(ctx, candidates, t.notification)
		if err == nil {
			log.WithFields(logrus.Fields{
				"candidates":   result.Attempted,
				"delivered_to": result.DeliveredTo,
			}).Info("Record dispatched to responders")
			if _, err := t.record(ctx, models.MatchAttempt{Attempts: job.Attempt + 1}); err != nil {
				// Срок подбора остался прежним, сверка повторит рассылку
				log.WithError(err).Error("Failed to record successful dispatch")
			}
			return nil
		}
		if ctx.Err() != nil {
			return m.requeue(ctx, log, job)
		}
		reason = reasonDeliveryFailure
	}

	return m.escalate(ctx, log, job, t, reason)
}

func (m *Matcher) load(ctx context.Context, job models.MatchJob) (target, bool, error) {
	switch job.Kind {
	case models.KindReport:
		report, err := m.reports.GetReportByID(ctx, job.RecordID)
		if err != nil {
			return target{}, false, fmt.Errorf("matcher: could not get report: %w", err)
		}
		// Задача с номером меньше записанного устарела: ее попытку уже выполнила другая
		if !report.AwaitingMatch() || job.Attempt < report.MatchAttempts {
			return target{}, true, nil
		}
		loc := report.Location
		return target{
			notification: models.Notification{
				Kind:        models.KindReport,
				RecordID:    report.ID,
				Priority:    report.Priority,
				Description: report.Description,
				Location:    &loc,
			},
			userID: report.ReporterID,
			topK:   m.topK,
			record: m.recorder(job),
		}, false, nil

	case models.KindPanic:
		alert, err := m.alerts.GetAlertByID(ctx, job.RecordID)
		if err != nil {
			return target{}, false, fmt.Errorf("matcher: could not get panic alert: %w", err)
		}
		if !alert.AwaitingMatch() || job.Attempt < alert.MatchAttempts {
			return target{}, true, nil
		}
		return target{
			notification: models.Notification{
				Kind:     models.KindPanic,
				RecordID: alert.ID,
				Priority: models.PriorityHigh,
				Location: alert.Location,
			},
			userID: alert.ReporterID,
			// Тревога рассылается всем доступным
			topK:   0,
			record: m.recorder(job),
		}, false, nil
	}
	return target{}, false, e.Validation("unknown record kind " + string(job.Kind))
}

func (m *Matcher) recorder(job models.MatchJob) func(ctx context.Context, attempt models.MatchAttempt) (bool, error) {
	if job.Kind == models.KindPanic {
		return func(ctx context.Context, attempt models.MatchAttempt) (bool, error) {
			return m.alerts.RecordAlertMatchAttempt(ctx, job.RecordID, attempt)
		}
	}
	return func(ctx context.Context, attempt models.MatchAttempt) (bool, error) {
		return m.reports.RecordReportMatchAttempt(ctx, job.RecordID, attempt)
	}
}

// unloaded - цель для записи, которую не удалось прочитать
func (m *Matcher) unloaded(job models.MatchJob) target {
	return target{
		notification: models.Notification{Kind: job.Kind, RecordID: job.RecordID},
		record:       m.recorder(job),
	}
}

// requeue возвращает прерванную задачу без учета попытки.
// При остановке ctx уже отменен, поэтому запись идет в отвязанном контексте.
func (m *Matcher) requeue(ctx context.Context, log *logrus.Entry, job models.MatchJob) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), requeueTimeout)
	defer cancel()

	if err := m.scheduler.Schedule(ctx, job, m.now()); err != nil {
		return fmt.Errorf("matcher: could not requeue interrupted job: %w", err)
	}
	log.Info("Match job interrupted, returned to the queue")
	return nil
}

// escalate сообщает службам о неудаче и планирует повтор, пока лимит не исчерпан
func (m *Matcher) escalate(ctx context.Context, log *logrus.Entry, job models.MatchJob, t target, reason string) error {
	now := m.now()
	manual := job.Attempt >= m.maxRetries
	log = log.WithFields(logrus.Fields{
		"reason":          reason,
		"manual_handling": manual,
	})

	attempt := models.MatchAttempt{Attempts: job.Attempt + 1, ManualHandling: manual}
	if !manual {
		next := now.Add(m.backoff).UTC()
		attempt.NextMatchAt = &next
	}

	// Запись условная: взятый волонтером отчет не эскалируется
	awaiting, err := t.record(ctx, attempt)
	switch {
	case errors.Is(err, e.ErrNotFound):
		log.Warn("Record disappeared, dropping match job")
		return nil
	case err != nil:
		log.WithError(err).Error("Failed to record match attempt")
	case !awaiting:
		log.Info("Record taken while matching, escalation skipped")
		return nil
	}

	event := webhook.WebhookEvent{
		Type:           webhook.EventEscalation,
		Kind:           job.Kind,
		RecordID:       job.RecordID,
		UserID:         t.userID,
		Location:       t.notification.Location,
		Reason:         reason,
		Attempt:        job.Attempt + 1,
		ManualHandling: manual,
		Timestamp:      now.UTC(),
	}
	if err := m.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).Error("Failed to publish escalation")
	}

	if manual {
		log.Error("Matching retries exhausted, record flagged for manual handling")
		return nil
	}

	next := job
	next.Attempt++
	if err := m.scheduler.Schedule(ctx, next, now.Add(m.backoff)); err != nil {
		return fmt.Errorf("matcher: could not schedule retry: %w", err)
	}
	log.WithField("retry_in", m.backoff).Warn("Record unassigned, retry scheduled")
	return nil
}
