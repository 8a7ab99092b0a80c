package matcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/safety_dispatch/internal/config"
	"github.com/shenikar/safety_dispatch/internal/matcher/mocks"
	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/shenikar/safety_dispatch/internal/queue"
	"github.com/shenikar/safety_dispatch/internal/webhook"
	webhook_mocks "github.com/shenikar/safety_dispatch/internal/webhook/mocks"
	"github.com/shenikar/safety_dispatch/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestWorker_ConsumesReadyAndDelayedJobs(t *testing.T) {
	m, deps := newTestMatcher(t, func(string) error { return nil })
	q := queue.NewMemoryQueue()

	ready := pendingReport()
	delayed := pendingReport()
	seen := make(chan uuid.UUID, 2)

	// Обе записи уже взяты в работу, поэтому Handle только читает их
	deps.reports.EXPECT().GetReportByID(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id uuid.UUID) (*models.Report, error) {
			seen <- id
			assignee := "volunteer-1"
			return &models.Report{ID: id, Status: models.ReportInProgress, AssignedResponderID: &assignee}, nil
		}).Times(2)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, q.Enqueue(ctx, models.MatchJob{Kind: models.KindReport, RecordID: ready.ID}))
	require.NoError(t, q.Schedule(ctx, models.MatchJob{Kind: models.KindReport, RecordID: delayed.ID, Attempt: 1},
		time.Now().Add(20*time.Millisecond)))

	w := NewWorker(q, m, 2, 10*time.Millisecond, newTestLogger())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(ctx)
	}()

	got := map[uuid.UUID]bool{}
	for len(got) < 2 {
		select {
		case id := <-seen:
			got[id] = true
		case <-time.After(2 * time.Second):
			t.Fatal("match jobs were not consumed")
		}
	}
	cancel()
	wg.Wait()

	assert.True(t, got[ready.ID])
	assert.True(t, got[delayed.ID])
	assert.Equal(t, 0, q.Pending())
}

func TestWorker_RosterOutageKeepsJobScheduled(t *testing.T) {
	ctrl := gomock.NewController(t)
	reports := mocks.NewMockReportSource(ctrl)
	roster := mocks.NewMockRoster(ctrl)
	publisher := webhook_mocks.NewMockWebhookPublisher(ctrl)
	q := queue.NewMemoryQueue()

	report := pendingReport()
	escalated := make(chan webhook.WebhookEvent, 1)

	reports.EXPECT().GetReportByID(gomock.Any(), report.ID).Return(report, nil)
	roster.EXPECT().ListAvailableResponders(gomock.Any()).Return(nil, e.ErrInternal)
	reports.EXPECT().RecordReportMatchAttempt(gomock.Any(), report.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, attempt models.MatchAttempt) (bool, error) {
			assert.Equal(t, 1, attempt.Attempts)
			assert.False(t, attempt.ManualHandling)
			assert.NotNil(t, attempt.NextMatchAt)
			return true, nil
		})
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event webhook.WebhookEvent) error {
			escalated <- event
			return nil
		})

	tr := transportFunc(func(context.Context, string, models.Notification) error { return nil })
	cfg := &config.Config{MatchTopK: 2, MatchBackoff: time.Minute, MatchMaxRetries: 3}
	m := NewMatcher(reports, mocks.NewMockAlertSource(ctrl), roster, NewDispatcher(tr, time.Second, newTestLogger()),
		q, publisher, newTestLogger(), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, q.Enqueue(ctx, models.MatchJob{Kind: models.KindReport, RecordID: report.ID}))

	w := NewWorker(q, m, 1, 10*time.Millisecond, newTestLogger())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(ctx)
	}()

	select {
	case event := <-escalated:
		assert.Equal(t, reasonRosterFailure, event.Reason)
	case <-time.After(2 * time.Second):
		t.Fatal("roster outage was not escalated")
	}
	require.Eventually(t, func() bool { return q.Pending() == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	wg.Wait()

	// Повтор ждет MATCH_BACKOFF со следующим номером попытки
	n, err := q.PromoteDue(context.Background(), time.Now().Add(2*time.Minute))
	require.NoError(t, err)
	require.Equal(t, 1, n)
	job, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.MatchJob{Kind: models.KindReport, RecordID: report.ID, Attempt: 1}, job)
}
