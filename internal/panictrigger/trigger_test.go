package panictrigger

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/shenikar/safety_dispatch/pkg/e"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type locatorFunc func(ctx context.Context) (*models.Location, error)

func (f locatorFunc) Resolve(ctx context.Context) (*models.Location, error) {
	return f(ctx)
}

var unavailable = locatorFunc(func(context.Context) (*models.Location, error) {
	return nil, e.ErrUnavailable
})

// recordingActivator запоминает все отправленные запросы
type recordingActivator struct {
	mu    sync.Mutex
	calls []models.ActivateAlert
	fail  error
}

func (a *recordingActivator) Activate(_ context.Context, req models.ActivateAlert) (*models.PanicAlert, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, req)
	if a.fail != nil {
		return nil, a.fail
	}
	return &models.PanicAlert{ID: uuid.New(), ReporterID: req.ReporterID, Location: req.Location, Status: models.AlertActive}, nil
}

func (a *recordingActivator) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

func (a *recordingActivator) setFail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fail = err
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	return logger
}

func newTestTrigger(locator LocationProvider) (*Trigger, *fakeClock, *recordingActivator) {
	clock := &fakeClock{}
	activator := &recordingActivator{}
	cfg := Config{ReporterID: "reporter-1", ArmingWindow: 3 * time.Second}
	return New(cfg, clock, locator, activator, newTestLogger()), clock, activator
}

func TestTrigger_ReleaseBeforeWindowNeverEmits(t *testing.T) {
	trigger, clock, activator := newTestTrigger(unavailable)

	trigger.Press(context.Background())
	assert.Equal(t, Arming, trigger.State())

	clock.Advance(2900 * time.Millisecond)
	trigger.Release()
	clock.Advance(time.Minute)

	assert.Equal(t, Idle, trigger.State())
	assert.Equal(t, 0, activator.count())
}

func TestTrigger_HoldPastWindowEmitsOnce(t *testing.T) {
	trigger, clock, activator := newTestTrigger(unavailable)

	trigger.Press(context.Background())
	clock.Advance(3500 * time.Millisecond)

	assert.Equal(t, Committed, trigger.State())
	require.Equal(t, 1, activator.count())

	// Дальнейшее удержание и повторные нажатия ничего не меняют
	clock.Advance(time.Hour)
	trigger.Press(context.Background())
	clock.Advance(time.Hour)
	trigger.Release()

	assert.Equal(t, Committed, trigger.State())
	assert.Equal(t, 1, activator.count())

	alert, err := trigger.Result()
	require.NoError(t, err)
	assert.Equal(t, models.AlertActive, alert.Status)
}

func TestTrigger_UnavailableLocationCommitsWithNull(t *testing.T) {
	trigger, clock, activator := newTestTrigger(unavailable)

	trigger.Press(context.Background())
	clock.Advance(3500 * time.Millisecond)

	require.Equal(t, 1, activator.count())
	assert.Nil(t, activator.calls[0].Location)
	assert.Equal(t, "reporter-1", activator.calls[0].ReporterID)

	alert, err := trigger.Result()
	require.NoError(t, err)
	assert.Nil(t, alert.Location)
	assert.Equal(t, models.AlertActive, alert.Status)
}

func TestTrigger_ResolvedLocationIsAttached(t *testing.T) {
	want := &models.Location{Latitude: 40.0, Longitude: -73.0}
	trigger, clock, activator := newTestTrigger(locatorFunc(func(context.Context) (*models.Location, error) {
		return want, nil
	}))

	trigger.Press(context.Background())
	require.Eventually(t, func() bool { return trigger.Location() != nil }, time.Second, time.Millisecond)
	clock.Advance(3 * time.Second)

	require.Equal(t, 1, activator.count())
	assert.Equal(t, want, activator.calls[0].Location)
}

func TestTrigger_ReentrantPressDoesNotRestartWindow(t *testing.T) {
	trigger, clock, activator := newTestTrigger(unavailable)

	trigger.Press(context.Background())
	clock.Advance(2 * time.Second)
	trigger.Press(context.Background())
	clock.Advance(1500 * time.Millisecond)

	assert.Equal(t, Committed, trigger.State())
	assert.Equal(t, 1, activator.count())
}

func TestTrigger_FailureStaysCommittedAndRetries(t *testing.T) {
	trigger, clock, activator := newTestTrigger(unavailable)
	activator.setFail(e.ErrUnavailable)

	trigger.Press(context.Background())
	clock.Advance(3500 * time.Millisecond)

	assert.Equal(t, Committed, trigger.State())
	_, err := trigger.Result()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrActivationFailed)
	assert.True(t, IsRetryable(err))

	activator.setFail(nil)
	alert, err := trigger.Retry(context.Background())
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, 2, activator.count())

	// После успеха Retry не отправляет повторно
	again, err := trigger.Retry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, alert.ID, again.ID)
	assert.Equal(t, 2, activator.count())
}

func TestTrigger_AlreadyActiveIsNotRetryable(t *testing.T) {
	trigger, clock, activator := newTestTrigger(unavailable)
	activator.setFail(e.ErrAlreadyActive)

	trigger.Press(context.Background())
	clock.Advance(3 * time.Second)

	_, err := trigger.Result()
	assert.ErrorIs(t, err, e.ErrAlreadyActive)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, Committed, trigger.State())
}

func TestTrigger_ForceCommit(t *testing.T) {
	trigger, clock, activator := newTestTrigger(unavailable)

	_, err := trigger.ForceCommit(context.Background())
	assert.ErrorIs(t, err, ErrNotArming)

	trigger.Press(context.Background())
	clock.Advance(time.Second)

	alert, err := trigger.ForceCommit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, Committed, trigger.State())

	// Таймер окна уже остановлен
	clock.Advance(time.Minute)
	assert.Equal(t, 1, activator.count())

	same, err := trigger.ForceCommit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, alert.ID, same.ID)
	assert.Equal(t, 1, activator.count())
}

func TestTrigger_RetryRequiresCommit(t *testing.T) {
	trigger, _, _ := newTestTrigger(unavailable)

	_, err := trigger.Retry(context.Background())
	assert.ErrorIs(t, err, ErrNotCommitted)
}

func TestTrigger_ResetStartsFreshGesture(t *testing.T) {
	trigger, clock, activator := newTestTrigger(unavailable)

	trigger.Press(context.Background())
	clock.Advance(3 * time.Second)
	require.Equal(t, Committed, trigger.State())

	trigger.Reset()
	assert.Equal(t, Idle, trigger.State())

	trigger.Press(context.Background())
	clock.Advance(3 * time.Second)
	assert.Equal(t, 2, activator.count())
}

func TestTrigger_ReleaseRacesCommit(t *testing.T) {
	for i := 0; i < 200; i++ {
		var calls int32
		activator := ActivatorFunc(func(context.Context, models.ActivateAlert) (*models.PanicAlert, error) {
			atomic.AddInt32(&calls, 1)
			return &models.PanicAlert{ID: uuid.New()}, nil
		})
		trigger := New(Config{ArmingWindow: time.Millisecond}, RealClock(), nil, activator, newTestLogger())

		trigger.Press(context.Background())
		time.Sleep(time.Millisecond)
		trigger.Release()

		if trigger.State() == Committed {
			select {
			case <-trigger.Done():
			case <-time.After(time.Second):
				t.Fatal("commit never finished")
			}
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
		} else {
			assert.Equal(t, Idle, trigger.State())
			// Отмененное окно не должно сработать позже
			time.Sleep(2 * time.Millisecond)
			assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
		}
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "arming", Arming.String())
	assert.Equal(t, "committed", Committed.String())
	assert.Equal(t, "state(7)", State(7).String())
}
