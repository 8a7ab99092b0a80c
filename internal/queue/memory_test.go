package queue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/shenikar/safety_dispatch/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueue_EnqueueDequeue(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()
	job := models.MatchJob{Kind: models.KindReport, RecordID: uuid.New()}

	require.NoError(t, q.Enqueue(ctx, job))

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, job, got)
}

func TestMemoryQueue_DequeueCanceled(t *testing.T) {
	q := NewMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, e.ErrCanceled)
}

func TestMemoryQueue_PromoteDue(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()
	now := time.Now()

	early := models.MatchJob{Kind: models.KindReport, RecordID: uuid.New(), Attempt: 1}
	late := models.MatchJob{Kind: models.KindPanic, RecordID: uuid.New(), Attempt: 1}

	require.NoError(t, q.Schedule(ctx, late, now.Add(time.Minute)))
	require.NoError(t, q.Schedule(ctx, early, now.Add(-time.Second)))

	n, err := q.PromoteDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, q.Pending())

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, early, got)

	n, err = q.PromoteDue(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, q.Pending())
}
