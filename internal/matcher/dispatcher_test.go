package matcher

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/shenikar/safety_dispatch/pkg/e"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// transportFunc позволяет описать транспорт в тесте одной функцией
type transportFunc func(ctx context.Context, responderID string, n models.Notification) error

func (f transportFunc) Send(ctx context.Context, responderID string, n models.Notification) error {
	return f(ctx, responderID, n)
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	return logger
}

func candidates(ids ...string) []Candidate {
	out := make([]Candidate, 0, len(ids))
	for _, id := range ids {
		out = append(out, Candidate{Responder: &models.Responder{ID: id, Available: true}})
	}
	return out
}

func TestDispatch_FirstDeliveryWins(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	tr := transportFunc(func(ctx context.Context, responderID string, _ models.Notification) error {
		if responderID == "fast" {
			return nil
		}
		select {
		case <-release:
		case <-ctx.Done():
		}
		return e.ErrDeliveryFailed
	})
	d := NewDispatcher(tr, time.Minute, newTestLogger())

	result, err := d.Dispatch(context.Background(), candidates("slow-1", "fast", "slow-2"), models.Notification{RecordID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, "fast", result.DeliveredTo)
	assert.Equal(t, 3, result.Attempted)
}

func TestDispatch_PartialFailureStillSucceeds(t *testing.T) {
	tr := transportFunc(func(_ context.Context, responderID string, _ models.Notification) error {
		if responderID == "ok" {
			time.Sleep(10 * time.Millisecond)
			return nil
		}
		return errors.New("device offline")
	})
	d := NewDispatcher(tr, time.Second, newTestLogger())

	result, err := d.Dispatch(context.Background(), candidates("bad-1", "bad-2", "ok"), models.Notification{})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.DeliveredTo)
}

func TestDispatch_AllFail(t *testing.T) {
	tr := transportFunc(func(context.Context, string, models.Notification) error {
		return e.ErrDeliveryFailed
	})
	d := NewDispatcher(tr, time.Second, newTestLogger())

	_, err := d.Dispatch(context.Background(), candidates("a", "b"), models.Notification{})
	assert.ErrorIs(t, err, e.ErrDeliveryFailed)
}

func TestDispatch_PerRecipientTimeout(t *testing.T) {
	tr := transportFunc(func(ctx context.Context, _ string, _ models.Notification) error {
		<-ctx.Done()
		return ctx.Err()
	})
	d := NewDispatcher(tr, 20*time.Millisecond, newTestLogger())

	start := time.Now()
	_, err := d.Dispatch(context.Background(), candidates("a", "b", "c"), models.Notification{})
	assert.ErrorIs(t, err, e.ErrDeliveryFailed)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDispatch_NoCandidates(t *testing.T) {
	d := NewDispatcher(transportFunc(func(context.Context, string, models.Notification) error {
		t.Error("transport must not be called")
		return nil
	}), time.Second, newTestLogger())

	_, err := d.Dispatch(context.Background(), nil, models.Notification{})
	assert.ErrorIs(t, err, e.ErrDeliveryFailed)
}

func TestDispatch_SendsConcurrently(t *testing.T) {
	var (
		mu      sync.Mutex
		started int
	)
	allStarted := make(chan struct{})
	tr := transportFunc(func(ctx context.Context, _ string, _ models.Notification) error {
		mu.Lock()
		started++
		if started == 3 {
			close(allStarted)
		}
		mu.Unlock()

		// Ни одна отправка не завершится, пока не стартовали все
		select {
		case <-allStarted:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	d := NewDispatcher(tr, time.Second, newTestLogger())

	_, err := d.Dispatch(context.Background(), candidates("a", "b", "c"), models.Notification{})
	require.NoError(t, err)
}

func TestDispatch_CarriesDistance(t *testing.T) {
	got := make(chan *float64, 1)
	tr := transportFunc(func(_ context.Context, _ string, n models.Notification) error {
		got <- n.DistanceKM
		return nil
	})
	d := NewDispatcher(tr, time.Second, newTestLogger())

	dist := 1.5
	c := []Candidate{{Responder: &models.Responder{ID: "a"}, DistanceKM: &dist}}
	_, err := d.Dispatch(context.Background(), c, models.Notification{})
	require.NoError(t, err)

	received := <-got
	require.NotNil(t, received)
	assert.InDelta(t, 1.5, *received, 1e-9)
}
