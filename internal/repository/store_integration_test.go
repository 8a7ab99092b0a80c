//go:build integration

package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/shenikar/safety_dispatch/pkg/e"
)

var (
	testPool  *pgxpool.Pool
	testRedis *redis.Client
	tc        testcontainers.Container
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	user := "postgres"
	pass := "postgres"
	db := "postgres"

	req := testcontainers.ContainerRequest{
		Image:        "postgis/postgis:16-3.4-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     user,
			"POSTGRES_PASSWORD": pass,
			"POSTGRES_DB":       db,
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections"),
		).WithDeadline(90 * time.Second),
	}

	var err error
	tc, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Println("cannot start container:", err)
		os.Exit(1)
	}

	host, _ := tc.Host(ctx)
	mappedPort, _ := tc.MappedPort(ctx, "5432/tcp")
	hostPort := fmt.Sprintf("%s:%s@%s:%s/%s?sslmode=disable", user, pass, host, mappedPort.Port(), db)

	if err := applyMigrations("pgx5://" + hostPort); err != nil {
		fmt.Println("migrations:", err)
		_ = tc.Terminate(ctx)
		os.Exit(1)
	}

	testPool, err = pgxpool.New(ctx, "postgres://"+hostPort)
	if err != nil {
		fmt.Println("pgxpool.New:", err)
		_ = tc.Terminate(ctx)
		os.Exit(1)
	}

	mr, err := miniredis.Run()
	if err != nil {
		fmt.Println("miniredis:", err)
		testPool.Close()
		_ = tc.Terminate(ctx)
		os.Exit(1)
	}
	testRedis = redis.NewClient(&redis.Options{Addr: mr.Addr()})

	code := m.Run()

	_ = testRedis.Close()
	mr.Close()
	testPool.Close()
	_ = tc.Terminate(ctx)
	os.Exit(code)
}

// applyMigrations прогоняет те же миграции, что и сервис при старте
func applyMigrations(url string) error {
	m, err := migrate.New("file://../../migrations", url)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	_, err := testPool.Exec(context.Background(), `TRUNCATE TABLE reports, panic_alerts, responders, emergency_contacts`)
	if err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return NewStore(testPool, testRedis, time.Minute)
}

func newPendingReport(t *testing.T, s *Store, createdAt time.Time) *models.Report {
	t.Helper()
	report := &models.Report{
		ID:          uuid.New(),
		ReporterID:  "reporter-1",
		Description: "smoke in the stairwell",
		Location:    models.Location{Latitude: 55.75, Longitude: 37.61, Address: "Tverskaya 1"},
		Priority:    models.PriorityHigh,
		Status:      models.ReportPending,
		NextMatchAt: &createdAt,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	require.NoError(t, s.CreateReport(context.Background(), report))
	return report
}

func TestStore_CreateAndGetReport(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	created := newPendingReport(t, s, time.Now().UTC().Truncate(time.Microsecond))

	got, err := s.GetReportByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Description, got.Description)
	assert.InDelta(t, 55.75, got.Location.Latitude, 1e-9)
	assert.InDelta(t, 37.61, got.Location.Longitude, 1e-9)
	assert.Equal(t, models.ReportPending, got.Status)
	require.NotNil(t, got.NextMatchAt)
	assert.True(t, created.NextMatchAt.Equal(*got.NextMatchAt))

	_, err = s.GetReportByID(ctx, uuid.New())
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestStore_ClaimReportSingleWinner(t *testing.T) {
	s := newIntegrationStore(t)
	report := newPendingReport(t, s, time.Now().UTC())

	const claimers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func(responderID string) {
			defer wg.Done()
			_, claimed, err := s.ClaimReport(context.Background(), report.ID, responderID)
			assert.NoError(t, err)
			if claimed {
				mu.Lock()
				winners = append(winners, responderID)
				mu.Unlock()
			}
		}(fmt.Sprintf("volunteer-%d", i))
	}
	wg.Wait()

	require.Len(t, winners, 1)
	got, err := s.GetReportByID(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportInProgress, got.Status)
	require.NotNil(t, got.AssignedResponderID)
	assert.Equal(t, winners[0], *got.AssignedResponderID)

	_, _, err = s.ClaimReport(context.Background(), uuid.New(), "volunteer-x")
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestStore_UpdateReportStatusExpected(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	report := newPendingReport(t, s, time.Now().UTC())

	_, claimed, err := s.ClaimReport(ctx, report.ID, "volunteer-1")
	require.NoError(t, err)
	require.True(t, claimed)

	resolved, ok, err := s.UpdateReportStatus(ctx, report.ID, models.ReportInProgress, models.ReportResolved, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.ReportResolved, resolved.Status)

	// Повтор с устаревшим expected не меняет запись
	_, ok, err = s.UpdateReportStatus(ctx, report.ID, models.ReportInProgress, models.ReportResolved, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_RecordReportMatchAttemptConditional(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	report := newPendingReport(t, s, time.Now().UTC())
	next := time.Now().UTC().Add(time.Minute).Truncate(time.Microsecond)

	applied, err := s.RecordReportMatchAttempt(ctx, report.ID, models.MatchAttempt{Attempts: 1, NextMatchAt: &next})
	require.NoError(t, err)
	assert.True(t, applied)

	got, err := s.GetReportByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.MatchAttempts)
	require.NotNil(t, got.NextMatchAt)
	assert.True(t, next.Equal(*got.NextMatchAt))

	_, claimed, err := s.ClaimReport(ctx, report.ID, "volunteer-1")
	require.NoError(t, err)
	require.True(t, claimed)

	applied, err = s.RecordReportMatchAttempt(ctx, report.ID, models.MatchAttempt{Attempts: 2, ManualHandling: true})
	require.NoError(t, err)
	assert.False(t, applied)

	got, err = s.GetReportByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.MatchAttempts)
	assert.False(t, got.ManualHandling)

	_, err = s.RecordReportMatchAttempt(ctx, uuid.New(), models.MatchAttempt{Attempts: 1})
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestStore_ReclaimStalledReports(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	stalled := newPendingReport(t, s, now.Add(-10*time.Minute))
	fresh := newPendingReport(t, s, now)
	manual := newPendingReport(t, s, now.Add(-10*time.Minute))
	_, err := s.RecordReportMatchAttempt(ctx, manual.ID, models.MatchAttempt{Attempts: 4, ManualHandling: true})
	require.NoError(t, err)

	reclaimed, err := s.ReclaimStalledReports(ctx, now.Add(-2*time.Minute), now)
	require.NoError(t, err)
	require.Len(t, reclaimed, 1)
	assert.Equal(t, stalled.ID, reclaimed[0].ID)
	require.NotNil(t, reclaimed[0].NextMatchAt)

	// Срок перенесен, повторная сверка запись не берет
	reclaimed, err = s.ReclaimStalledReports(ctx, now.Add(-2*time.Minute), now)
	require.NoError(t, err)
	assert.Empty(t, reclaimed)

	got, err := s.GetReportByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Zero(t, got.MatchAttempts)
}

func newActiveAlert(reporterID string, createdAt time.Time) *models.PanicAlert {
	return &models.PanicAlert{
		ID:          uuid.New(),
		ReporterID:  reporterID,
		Location:    &models.Location{Latitude: 55.7, Longitude: 37.6},
		Status:      models.AlertActive,
		NextMatchAt: &createdAt,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func TestStore_CreateAlertIfNoneActiveOncePerReporter(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	const triggers = 6
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < triggers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.CreateAlertIfNoneActive(ctx, newActiveAlert("reporter-1", now))
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)

	active, err := s.GetActiveAlertByReporter(ctx, "reporter-1")
	require.NoError(t, err)
	assert.Empty(t, active.ResponderIDs)
	require.NotNil(t, active.Location)
	assert.InDelta(t, 55.7, active.Location.Latitude, 1e-9)

	// После закрытия заявитель может поднять новую тревогу
	_, ok, err := s.UpdateAlertStatus(ctx, active.ID, models.AlertActive, models.AlertFalseAlarm, "reporter-1")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = s.CreateAlertIfNoneActive(ctx, newActiveAlert("reporter-1", now))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_AddAlertResponderLimitAndDuplicates(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	alert := newActiveAlert("reporter-2", time.Now().UTC())
	ok, err := s.CreateAlertIfNoneActive(ctx, alert)
	require.NoError(t, err)
	require.True(t, ok)

	got, added, err := s.AddAlertResponder(ctx, alert.ID, "volunteer-1", 2)
	require.NoError(t, err)
	require.True(t, added)
	assert.Equal(t, []string{"volunteer-1"}, got.ResponderIDs)

	_, added, err = s.AddAlertResponder(ctx, alert.ID, "volunteer-1", 2)
	require.NoError(t, err)
	assert.False(t, added)

	_, added, err = s.AddAlertResponder(ctx, alert.ID, "volunteer-2", 2)
	require.NoError(t, err)
	require.True(t, added)

	_, added, err = s.AddAlertResponder(ctx, alert.ID, "volunteer-3", 2)
	require.NoError(t, err)
	assert.False(t, added)

	// Откликнувшаяся тревога больше не ждет подбора
	applied, err := s.RecordAlertMatchAttempt(ctx, alert.ID, models.MatchAttempt{Attempts: 1})
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestStore_ReclaimStalledAlerts(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	stalled := newActiveAlert("reporter-3", now.Add(-10*time.Minute))
	_, err := s.CreateAlertIfNoneActive(ctx, stalled)
	require.NoError(t, err)
	_, err = s.CreateAlertIfNoneActive(ctx, newActiveAlert("reporter-4", now))
	require.NoError(t, err)

	reclaimed, err := s.ReclaimStalledAlerts(ctx, now.Add(-2*time.Minute), now)
	require.NoError(t, err)
	require.Len(t, reclaimed, 1)
	assert.Equal(t, stalled.ID, reclaimed[0].ID)
}

func TestStore_ListAvailableResponders(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.UpsertResponder(ctx, &models.Responder{
		ID: "volunteer-1", Available: true, Location: &models.Location{Latitude: 55.7, Longitude: 37.6}, AvailabilityChangedAt: now,
	}))
	require.NoError(t, s.UpsertResponder(ctx, &models.Responder{ID: "volunteer-2", Available: true, AvailabilityChangedAt: now}))
	require.NoError(t, s.UpsertResponder(ctx, &models.Responder{ID: "volunteer-3", AvailabilityChangedAt: now}))

	available, err := s.ListAvailableResponders(ctx)
	require.NoError(t, err)
	require.Len(t, available, 2)

	byID := map[string]*models.Responder{}
	for _, r := range available {
		byID[r.ID] = r
	}
	require.NotNil(t, byID["volunteer-1"].Location)
	assert.InDelta(t, 37.6, byID["volunteer-1"].Location.Longitude, 1e-9)
	assert.Nil(t, byID["volunteer-2"].Location)
}

func TestStore_ReportCacheRoundTrip(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	report := newPendingReport(t, s, time.Now().UTC())

	cached, err := s.GetReportFromCache(ctx, report.ID)
	require.NoError(t, err)
	assert.Nil(t, cached)

	require.NoError(t, s.SetReportCache(ctx, report))
	cached, err = s.GetReportFromCache(ctx, report.ID)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, report.ID, cached.ID)

	require.NoError(t, s.InvalidateReportCache(ctx, report.ID))
	cached, err = s.GetReportFromCache(ctx, report.ID)
	require.NoError(t, err)
	assert.Nil(t, cached)
}
