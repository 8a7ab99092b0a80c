package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/safety_dispatch/internal/config"
	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/shenikar/safety_dispatch/pkg/e"
	"github.com/shenikar/safety_dispatch/pkg/validator"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=report.go -destination=mocks/mock_report.go -package=mocks

// ReportRepository определяет контракт хранилища отчетов.
// Статус и назначенный волонтер меняются только через ClaimReport и UpdateReportStatus.
type ReportRepository interface {
	CreateReport(ctx context.Context, report *models.Report) error
	GetReportByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	ListReports(ctx context.Context, filter models.ReportFilter) ([]*models.Report, error)
	// ClaimReport атомарно переводит pending без исполнителя в in-progress.
	ClaimReport(ctx context.Context, id uuid.UUID, responderID string) (*models.Report, bool, error)
	// UpdateReportStatus меняет статус, только если текущий равен expected.
	// assignee записывается, если исполнитель еще не назначен.
	UpdateReportStatus(ctx context.Context, id uuid.UUID, expected, next models.ReportStatus, assignee *string) (*models.Report, bool, error)

	GetReportFromCache(ctx context.Context, id uuid.UUID) (*models.Report, error)
	SetReportCache(ctx context.Context, report *models.Report) error
	InvalidateReportCache(ctx context.Context, id uuid.UUID) error
}

// MatchQueue принимает записи для подбора волонтеров
type MatchQueue interface {
	Enqueue(ctx context.Context, job models.MatchJob) error
}

// ReportService определяет контракт жизненного цикла отчетов
type ReportService interface {
	SubmitReport(ctx context.Context, draft models.ReportDraft) (*models.Report, error)
	GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error)
	ListReports(ctx context.Context, filter models.ReportFilter) ([]*models.Report, error)
	ClaimIncident(ctx context.Context, id uuid.UUID, responderID string) (models.ClaimOutcome, error)
	Transition(ctx context.Context, id uuid.UUID, next models.ReportStatus, actor models.Actor) (*models.Report, error)
	ResolveIncident(ctx context.Context, id uuid.UUID, actor models.Actor) (*models.Report, error)
}

type reportService struct {
	repo    ReportRepository
	queue   MatchQueue
	arbiter *Arbiter
	logger  *logrus.Logger
	cfg     *config.Config
	now     func() time.Time
}

func NewReportService(repo ReportRepository, queue MatchQueue, arbiter *Arbiter, logger *logrus.Logger, cfg *config.Config) ReportService {
	return &reportService{
		repo:    repo,
		queue:   queue,
		arbiter: arbiter,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// SubmitReport проверяет черновик и сохраняет отчет в статусе pending
func (s *reportService) SubmitReport(ctx context.Context, draft models.ReportDraft) (*models.Report, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "report",
		"method":      "SubmitReport",
		"reporter_id": draft.ReporterID,
	})

	if err := validateDraft(draft); err != nil {
		log.WithError(err).Warn("Report draft rejected")
		return nil, err
	}

	priority := draft.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	now := s.now().UTC()
	report := &models.Report{
		ID:           uuid.New(),
		ReporterID:   draft.ReporterID,
		Description:  draft.Description,
		Location:     *draft.Location,
		Priority:     priority,
		IsAnonymous:  draft.IsAnonymous,
		HasVoiceNote: draft.HasVoiceNote,
		HasPhoto:     draft.HasPhoto,
		Status:       models.ReportPending,
		NextMatchAt:  &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateReport(ctx, report); err != nil {
		log.WithError(err).Error("Failed to create report in repository")
		return nil, fmt.Errorf("service: could not create report: %w", err)
	}
	log = log.WithField("report_id", report.ID)

	// Отчет уже сохранен: ошибка очереди не должна превращаться в повторную подачу.
	// Срок подбора записан в NextMatchAt, сверка вернет отчет в очередь.
	job := models.MatchJob{Kind: models.KindReport, RecordID: report.ID}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		log.WithError(err).Error("Failed to enqueue report for matching")
	}

	log.Info("Report submitted")
	return report, nil
}

func validateDraft(draft models.ReportDraft) error {
	if draft.Location == nil {
		return e.Validation("location is required")
	}
	if strings.TrimSpace(draft.Description) == "" {
		return e.Validation("description is required")
	}
	if err := validator.ValidateStruct(draft); err != nil {
		return e.Validation(err.Error())
	}
	if err := validator.ValidateStruct(locationRules{Latitude: draft.Location.Latitude, Longitude: draft.Location.Longitude}); err != nil {
		return e.Validation(err.Error())
	}
	return nil
}

type locationRules struct {
	Latitude  float64 `validate:"lat"`
	Longitude float64 `validate:"lng"`
}

// GetReport получает отчет, сначала из кеша
func (s *reportService) GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":   "report",
		"method":    "GetReport",
		"report_id": id,
	})

	cached, err := s.repo.GetReportFromCache(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to read report cache")
	}
	if cached != nil {
		return cached, nil
	}

	report, err := s.repo.GetReportByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to get report from repository")
		return nil, fmt.Errorf("service: could not get report: %w", err)
	}

	if err := s.repo.SetReportCache(ctx, report); err != nil {
		log.WithError(err).Warn("Failed to cache report")
	}
	return report, nil
}

// ListReports возвращает список отчетов с пагинацией
func (s *reportService) ListReports(ctx context.Context, filter models.ReportFilter) ([]*models.Report, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, e.Validation("unknown status " + string(filter.Status))
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":   "report",
		"method":    "ListReports",
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})

	reports, err := s.repo.ListReports(ctx, filter)
	if err != nil {
		log.WithError(err).Error("Failed to list reports from repository")
		return nil, fmt.Errorf("service: could not list reports: %w", err)
	}

	log.WithField("count", len(reports)).Debug("Reports listed")
	return reports, nil
}

// ClaimIncident передает гонку арбитру и сбрасывает кеш победителя
func (s *reportService) ClaimIncident(ctx context.Context, id uuid.UUID, responderID string) (models.ClaimOutcome, error) {
	outcome, err := s.arbiter.Claim(ctx, id, responderID)
	if err != nil {
		return models.ClaimLost, err
	}
	if outcome == models.ClaimWon {
		s.invalidate(ctx, id)
	}
	return outcome, nil
}

// Transition применяет разрешенные переходы графа статусов отчета
func (s *reportService) Transition(ctx context.Context, id uuid.UUID, next models.ReportStatus, actor models.Actor) (*models.Report, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":   "report",
		"method":    "Transition",
		"report_id": id,
		"next":      next,
		"actor_id":  actor.ID,
		"role":      actor.Role,
	})

	if !next.Valid() {
		return nil, e.Validation("unknown status " + string(next))
	}
	if actor.ID == "" {
		return nil, e.Validation("actor is required")
	}

	current, err := s.repo.GetReportByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: could not get report: %w", err)
	}

	if next != models.ReportResolved {
		// in-progress выставляется только через claim, назад статус не двигается
		log.WithField("from", current.Status).Warn("Rejected report transition")
		return nil, e.IllegalTransition(string(current.Status), string(next))
	}

	var assignee *string
	switch current.Status {
	case models.ReportInProgress:
		isAssignee := current.AssignedResponderID != nil && *current.AssignedResponderID == actor.ID
		if !isAssignee && !actor.IsAuthority() {
			log.Warn("Actor may not resolve report")
			return nil, fmt.Errorf("%w: %w", e.IllegalTransition(string(current.Status), string(next)), e.ErrActorNotPermitted)
		}
	case models.ReportPending:
		if !actor.IsAuthority() {
			log.Warn("Unclaimed report cannot be closed")
			return nil, e.IllegalTransition(string(current.Status), string(next))
		}
		assignee = &actor.ID
		log.Warn("Authority override: resolving unclaimed report")
	default:
		return nil, e.IllegalTransition(string(current.Status), string(next))
	}

	updated, ok, err := s.repo.UpdateReportStatus(ctx, id, current.Status, next, assignee)
	if err != nil {
		log.WithError(err).Error("Failed to update report status")
		return nil, fmt.Errorf("service: could not update report: %w", err)
	}
	if !ok {
		// Запись изменилась между чтением и условным обновлением
		log.Info("Report changed concurrently, transition rejected")
		return nil, e.IllegalTransition(string(current.Status), string(next))
	}

	s.invalidate(ctx, id)
	log.Info("Report transitioned")
	return updated, nil
}

func (s *reportService) ResolveIncident(ctx context.Context, id uuid.UUID, actor models.Actor) (*models.Report, error) {
	return s.Transition(ctx, id, models.ReportResolved, actor)
}

func (s *reportService) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.repo.InvalidateReportCache(ctx, id); err != nil {
		s.logger.WithError(err).WithField("report_id", id).Warn("Failed to invalidate report cache")
	}
}
