package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/safety_dispatch/internal/config"
	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/shenikar/safety_dispatch/internal/service/mocks"
	"github.com/shenikar/safety_dispatch/pkg/e"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах
	return logger
}

// newTestReportService - вспомогательная функция для создания инстанса сервиса с моками.
func newTestReportService(t *testing.T) (*reportService, *mocks.MockReportRepository, *mocks.MockMatchQueue) {
	ctrl := gomock.NewController(t)
	repoMock := mocks.NewMockReportRepository(ctrl)
	queueMock := mocks.NewMockMatchQueue(ctrl)
	alertMock := mocks.NewMockAlertRepository(ctrl)

	logger := newTestLogger()
	cfg := &config.Config{AlertMaxResponders: 3}

	arbiter := NewArbiter(repoMock, alertMock, cfg.AlertMaxResponders, logger)
	service := NewReportService(repoMock, queueMock, arbiter, logger, cfg)
	return service.(*reportService), repoMock, queueMock
}

func validDraft() models.ReportDraft {
	return models.ReportDraft{
		ReporterID:  "reporter-1",
		Description: "suspicious person",
		Location:    &models.Location{Latitude: 40.0, Longitude: -73.0},
		Priority:    models.PriorityHigh,
	}
}

func TestSubmitReport_Success(t *testing.T) {
	// Подготовка
	service, repoMock, queueMock := newTestReportService(t)
	ctx := context.Background()

	var stored *models.Report
	// Ожидания
	repoMock.EXPECT().
		CreateReport(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, r *models.Report) error {
			stored = r
			return nil
		}).Times(1)
	queueMock.EXPECT().
		Enqueue(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, job models.MatchJob) error {
			assert.Equal(t, models.KindReport, job.Kind)
			assert.Equal(t, stored.ID, job.RecordID)
			assert.Equal(t, 0, job.Attempt)
			return nil
		}).Times(1)

	// Действие
	report, err := service.SubmitReport(ctx, validDraft())

	// Проверки
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, report.ID)
	assert.Equal(t, models.ReportPending, report.Status)
	assert.Nil(t, report.AssignedResponderID)
	assert.Equal(t, models.PriorityHigh, report.Priority)
	assert.Equal(t, 40.0, report.Location.Latitude)
}

func TestSubmitReport_DefaultsPriority(t *testing.T) {
	service, repoMock, queueMock := newTestReportService(t)
	ctx := context.Background()
	draft := validDraft()
	draft.Priority = ""

	repoMock.EXPECT().CreateReport(ctx, gomock.Any()).Return(nil).Times(1)
	queueMock.EXPECT().Enqueue(ctx, gomock.Any()).Return(nil).Times(1)

	report, err := service.SubmitReport(ctx, draft)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityMedium, report.Priority)
}

func TestSubmitReport_ValidationNeverPersists(t *testing.T) {
	cases := map[string]func(d *models.ReportDraft){
		"empty description": func(d *models.ReportDraft) { d.Description = "" },
		"blank description": func(d *models.ReportDraft) { d.Description = "   " },
		"missing location":  func(d *models.ReportDraft) { d.Location = nil },
		"latitude range":    func(d *models.ReportDraft) { d.Location = &models.Location{Latitude: 91, Longitude: 0} },
		"longitude range":   func(d *models.ReportDraft) { d.Location = &models.Location{Latitude: 0, Longitude: -181} },
		"unknown priority":  func(d *models.ReportDraft) { d.Priority = "urgent" },
		"missing reporter":  func(d *models.ReportDraft) { d.ReporterID = "" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			service, repoMock, queueMock := newTestReportService(t)
			draft := validDraft()
			mutate(&draft)

			repoMock.EXPECT().CreateReport(gomock.Any(), gomock.Any()).Times(0)
			queueMock.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Times(0)

			report, err := service.SubmitReport(context.Background(), draft)
			require.Error(t, err)
			assert.Nil(t, report)
			assert.ErrorIs(t, err, e.ErrValidation)
		})
	}
}

func TestSubmitReport_EnqueueFailureKeepsReport(t *testing.T) {
	service, repoMock, queueMock := newTestReportService(t)
	ctx := context.Background()

	repoMock.EXPECT().CreateReport(ctx, gomock.Any()).Return(nil).Times(1)
	queueMock.EXPECT().Enqueue(ctx, gomock.Any()).Return(errors.New("redis down")).Times(1)

	report, err := service.SubmitReport(ctx, validDraft())
	require.NoError(t, err)
	assert.Equal(t, models.ReportPending, report.Status)
	// Срок подбора сохранен вместе с отчетом, его подхватит сверка
	require.NotNil(t, report.NextMatchAt)
	assert.Equal(t, report.CreatedAt, *report.NextMatchAt)
}

func TestSubmitReport_RepositoryError(t *testing.T) {
	service, repoMock, queueMock := newTestReportService(t)
	ctx := context.Background()

	repoMock.EXPECT().CreateReport(ctx, gomock.Any()).Return(e.ErrInternal).Times(1)
	queueMock.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Times(0)

	_, err := service.SubmitReport(ctx, validDraft())
	require.Error(t, err)
	assert.ErrorContains(t, err, "could not create report")
}

func TestGetReport_FromCache(t *testing.T) {
	service, repoMock, _ := newTestReportService(t)
	ctx := context.Background()
	expected := &models.Report{ID: uuid.New(), Status: models.ReportPending}

	repoMock.EXPECT().GetReportFromCache(ctx, expected.ID).Return(expected, nil).Times(1)
	repoMock.EXPECT().GetReportByID(gomock.Any(), gomock.Any()).Times(0)

	report, err := service.GetReport(ctx, expected.ID)
	require.NoError(t, err)
	assert.Equal(t, expected, report)
}

func TestGetReport_FromDB(t *testing.T) {
	service, repoMock, _ := newTestReportService(t)
	ctx := context.Background()
	expected := &models.Report{ID: uuid.New(), Status: models.ReportPending}

	// 1. Промах кеша
	repoMock.EXPECT().GetReportFromCache(ctx, expected.ID).Return(nil, nil).Times(1)
	// 2. Попадание в БД
	repoMock.EXPECT().GetReportByID(ctx, expected.ID).Return(expected, nil).Times(1)
	// 3. Запись в кеш
	repoMock.EXPECT().SetReportCache(ctx, expected).Return(nil).Times(1)

	report, err := service.GetReport(ctx, expected.ID)
	require.NoError(t, err)
	assert.Equal(t, expected, report)
}

func TestGetReport_NotFound(t *testing.T) {
	service, repoMock, _ := newTestReportService(t)
	ctx := context.Background()
	id := uuid.New()

	repoMock.EXPECT().GetReportFromCache(ctx, id).Return(nil, nil).Times(1)
	repoMock.EXPECT().GetReportByID(ctx, id).Return(nil, e.ErrNotFound).Times(1)

	report, err := service.GetReport(ctx, id)
	require.Error(t, err)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestListReports_NormalizesPaging(t *testing.T) {
	service, repoMock, _ := newTestReportService(t)
	ctx := context.Background()

	repoMock.EXPECT().
		ListReports(ctx, models.ReportFilter{ResponderID: "v1", Page: 1, PageSize: 20}).
		Return([]*models.Report{}, nil).
		Times(1)

	_, err := service.ListReports(ctx, models.ReportFilter{ResponderID: "v1", Page: 0, PageSize: 1000})
	require.NoError(t, err)
}

func TestListReports_UnknownStatus(t *testing.T) {
	service, repoMock, _ := newTestReportService(t)

	repoMock.EXPECT().ListReports(gomock.Any(), gomock.Any()).Times(0)

	_, err := service.ListReports(context.Background(), models.ReportFilter{Status: "closed"})
	assert.ErrorIs(t, err, e.ErrValidation)
}

func strPtr(s string) *string { return &s }

func TestTransition_AssigneeResolves(t *testing.T) {
	service, repoMock, _ := newTestReportService(t)
	ctx := context.Background()
	current := &models.Report{ID: uuid.New(), Status: models.ReportInProgress, AssignedResponderID: strPtr("v1")}
	resolved := current.Clone()
	resolved.Status = models.ReportResolved

	repoMock.EXPECT().GetReportByID(ctx, current.ID).Return(current, nil).Times(1)
	repoMock.EXPECT().
		UpdateReportStatus(ctx, current.ID, models.ReportInProgress, models.ReportResolved, (*string)(nil)).
		Return(resolved, true, nil).
		Times(1)
	repoMock.EXPECT().InvalidateReportCache(ctx, current.ID).Return(nil).Times(1)

	report, err := service.ResolveIncident(ctx, current.ID, models.Actor{ID: "v1", Role: models.RoleVolunteer})
	require.NoError(t, err)
	assert.Equal(t, models.ReportResolved, report.Status)
}

func TestTransition_OtherVolunteerNotPermitted(t *testing.T) {
	service, repoMock, _ := newTestReportService(t)
	ctx := context.Background()
	current := &models.Report{ID: uuid.New(), Status: models.ReportInProgress, AssignedResponderID: strPtr("v1")}

	repoMock.EXPECT().GetReportByID(ctx, current.ID).Return(current, nil).Times(1)
	repoMock.EXPECT().UpdateReportStatus(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, err := service.ResolveIncident(ctx, current.ID, models.Actor{ID: "v2", Role: models.RoleVolunteer})
	assert.ErrorIs(t, err, e.ErrIllegalTransition)
	assert.ErrorIs(t, err, e.ErrActorNotPermitted)
}

func TestTransition_AuthorityResolvesInProgress(t *testing.T) {
	service, repoMock, _ := newTestReportService(t)
	ctx := context.Background()
	current := &models.Report{ID: uuid.New(), Status: models.ReportInProgress, AssignedResponderID: strPtr("v1")}
	resolved := current.Clone()
	resolved.Status = models.ReportResolved

	repoMock.EXPECT().GetReportByID(ctx, current.ID).Return(current, nil).Times(1)
	repoMock.EXPECT().
		UpdateReportStatus(ctx, current.ID, models.ReportInProgress, models.ReportResolved, (*string)(nil)).
		Return(resolved, true, nil).
		Times(1)
	repoMock.EXPECT().InvalidateReportCache(ctx, current.ID).Return(nil).Times(1)

	_, err := service.ResolveIncident(ctx, current.ID, models.Actor{ID: "police-1", Role: models.RoleAuthority})
	require.NoError(t, err)
}

func TestTransition_PendingToResolvedRejected(t *testing.T) {
	service, repoMock, _ := newTestReportService(t)
	ctx := context.Background()
	current := &models.Report{ID: uuid.New(), Status: models.ReportPending}

	repoMock.EXPECT().GetReportByID(ctx, current.ID).Return(current, nil).Times(1)
	repoMock.EXPECT().UpdateReportStatus(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, err := service.ResolveIncident(ctx, current.ID, models.Actor{ID: "reporter-1", Role: models.RoleReporter})
	assert.ErrorIs(t, err, e.ErrIllegalTransition)
}

func TestTransition_AuthorityOverridePending(t *testing.T) {
	service, repoMock, _ := newTestReportService(t)
	ctx := context.Background()
	current := &models.Report{ID: uuid.New(), Status: models.ReportPending}
	resolved := current.Clone()
	resolved.Status = models.ReportResolved
	resolved.AssignedResponderID = strPtr("police-1")

	repoMock.EXPECT().GetReportByID(ctx, current.ID).Return(current, nil).Times(1)
	repoMock.EXPECT().
		UpdateReportStatus(ctx, current.ID, models.ReportPending, models.ReportResolved, strPtr("police-1")).
		Return(resolved, true, nil).
		Times(1)
	repoMock.EXPECT().InvalidateReportCache(ctx, current.ID).Return(nil).Times(1)

	report, err := service.ResolveIncident(ctx, current.ID, models.Actor{ID: "police-1", Role: models.RoleAuthority})
	require.NoError(t, err)
	require.NotNil(t, report.AssignedResponderID)
	assert.Equal(t, "police-1", *report.AssignedResponderID)
}

func TestTransition_DirectInProgressRejected(t *testing.T) {
	service, repoMock, _ := newTestReportService(t)
	ctx := context.Background()
	current := &models.Report{ID: uuid.New(), Status: models.ReportPending}

	repoMock.EXPECT().GetReportByID(ctx, current.ID).Return(current, nil).Times(1)

	_, err := service.Transition(ctx, current.ID, models.ReportInProgress, models.Actor{ID: "police-1", Role: models.RoleAuthority})
	assert.ErrorIs(t, err, e.ErrIllegalTransition)
}

func TestTransition_ResolvedIsTerminal(t *testing.T) {
	for _, next := range []models.ReportStatus{models.ReportPending, models.ReportInProgress, models.ReportResolved} {
		t.Run(string(next), func(t *testing.T) {
			service, repoMock, _ := newTestReportService(t)
			ctx := context.Background()
			current := &models.Report{ID: uuid.New(), Status: models.ReportResolved, AssignedResponderID: strPtr("v1")}

			repoMock.EXPECT().GetReportByID(ctx, current.ID).Return(current, nil).Times(1)
			repoMock.EXPECT().UpdateReportStatus(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

			_, err := service.Transition(ctx, current.ID, next, models.Actor{ID: "police-1", Role: models.RoleAuthority})
			assert.ErrorIs(t, err, e.ErrIllegalTransition)
		})
	}
}

func TestTransition_ConcurrentChangeRejected(t *testing.T) {
	service, repoMock, _ := newTestReportService(t)
	ctx := context.Background()
	current := &models.Report{ID: uuid.New(), Status: models.ReportInProgress, AssignedResponderID: strPtr("v1")}

	repoMock.EXPECT().GetReportByID(ctx, current.ID).Return(current, nil).Times(1)
	repoMock.EXPECT().
		UpdateReportStatus(ctx, current.ID, models.ReportInProgress, models.ReportResolved, (*string)(nil)).
		Return(nil, false, nil).
		Times(1)

	_, err := service.ResolveIncident(ctx, current.ID, models.Actor{ID: "v1", Role: models.RoleVolunteer})
	assert.ErrorIs(t, err, e.ErrIllegalTransition)
}

func TestTransition_UnknownStatus(t *testing.T) {
	service, _, _ := newTestReportService(t)

	_, err := service.Transition(context.Background(), uuid.New(), "closed", models.Actor{ID: "v1"})
	assert.ErrorIs(t, err, e.ErrValidation)
}

func TestClaimIncident_WonInvalidatesCache(t *testing.T) {
	service, repoMock, _ := newTestReportService(t)
	ctx := context.Background()
	id := uuid.New()

	repoMock.EXPECT().ClaimReport(ctx, id, "v1").Return(&models.Report{ID: id}, true, nil).Times(1)
	repoMock.EXPECT().InvalidateReportCache(ctx, id).Return(nil).Times(1)

	outcome, err := service.ClaimIncident(ctx, id, "v1")
	require.NoError(t, err)
	assert.Equal(t, models.ClaimWon, outcome)
}

func TestClaimIncident_LostIsNotAnError(t *testing.T) {
	service, repoMock, _ := newTestReportService(t)
	ctx := context.Background()
	id := uuid.New()

	repoMock.EXPECT().ClaimReport(ctx, id, "v2").Return(nil, false, nil).Times(1)
	repoMock.EXPECT().InvalidateReportCache(gomock.Any(), gomock.Any()).Times(0)

	outcome, err := service.ClaimIncident(ctx, id, "v2")
	require.NoError(t, err)
	assert.Equal(t, models.ClaimLost, outcome)
}

func TestSubmitReport_SetsTimestamps(t *testing.T) {
	service, repoMock, queueMock := newTestReportService(t)
	ctx := context.Background()
	fixed := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return fixed }

	repoMock.EXPECT().CreateReport(ctx, gomock.Any()).Return(nil).Times(1)
	queueMock.EXPECT().Enqueue(ctx, gomock.Any()).Return(nil).Times(1)

	report, err := service.SubmitReport(ctx, validDraft())
	require.NoError(t, err)
	assert.Equal(t, fixed, report.CreatedAt)
	assert.Equal(t, fixed, report.UpdatedAt)
}
