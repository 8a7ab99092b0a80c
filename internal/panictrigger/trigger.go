package panictrigger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/shenikar/safety_dispatch/pkg/e"
	"github.com/sirupsen/logrus"
)

type State int

const (
	Idle State = iota
	Arming
	Committed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Arming:
		return "arming"
	case Committed:
		return "committed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	// ErrActivationFailed - тревога зафиксирована, но не отправлена. Нужен Retry или ручной вызов служб.
	ErrActivationFailed = errors.New("panic activation failed")
	ErrNotArming        = errors.New("trigger is not arming")
	ErrNotCommitted     = errors.New("trigger is not committed")
)

// IsRetryable сообщает, имеет ли смысл повторить отправку тревоги
func IsRetryable(err error) bool {
	return errors.Is(err, ErrActivationFailed) && !errors.Is(err, e.ErrAlreadyActive) && !errors.Is(err, e.ErrValidation)
}

// LocationProvider возвращает e.ErrUnavailable, если координаты получить не удалось
type LocationProvider interface {
	Resolve(ctx context.Context) (*models.Location, error)
}

type Activator interface {
	Activate(ctx context.Context, req models.ActivateAlert) (*models.PanicAlert, error)
}

type ActivatorFunc func(ctx context.Context, req models.ActivateAlert) (*models.PanicAlert, error)

func (f ActivatorFunc) Activate(ctx context.Context, req models.ActivateAlert) (*models.PanicAlert, error) {
	return f(ctx, req)
}

type Config struct {
	ReporterID      string
	ArmingWindow    time.Duration
	LocationTimeout time.Duration
	LocationRetries int
	LocationBackoff time.Duration
	SubmitTimeout   time.Duration
}

func (c *Config) setDefaults() {
	if c.ArmingWindow <= 0 {
		c.ArmingWindow = 3 * time.Second
	}
	if c.LocationTimeout <= 0 {
		c.LocationTimeout = 2 * time.Second
	}
	if c.LocationRetries < 0 {
		c.LocationRetries = 0
	}
	if c.LocationBackoff <= 0 {
		c.LocationBackoff = 500 * time.Millisecond
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = 10 * time.Second
	}
}

// Trigger превращает удержание кнопки в одно событие ActivateAlert.
// Один экземпляр обслуживает один сеанс пользователя.
type Trigger struct {
	cfg       Config
	clock     Clock
	locator   LocationProvider
	activator Activator
	logger    *logrus.Logger

	mu         sync.Mutex
	state      State
	gen        uint64
	timer      Timer
	location   *models.Location
	stopLocate context.CancelFunc
	pressCtx   context.Context
	done       chan struct{}
	alert      *models.PanicAlert
	lastErr    error

	// submitMu не дает Retry и коммиту отправить тревогу параллельно
	submitMu sync.Mutex
}

func New(cfg Config, clock Clock, locator LocationProvider, activator Activator, logger *logrus.Logger) *Trigger {
	cfg.setDefaults()
	if clock == nil {
		clock = RealClock()
	}
	return &Trigger{
		cfg:       cfg,
		clock:     clock,
		locator:   locator,
		activator: activator,
		logger:    logger,
		state:     Idle,
		done:      make(chan struct{}),
	}
}

func (t *Trigger) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Location - координаты, известные на текущий момент жеста
func (t *Trigger) Location() *models.Location {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.location == nil {
		return nil
	}
	loc := *t.location
	return &loc
}

// Press начинает жест. Повторное нажатие в Arming или Committed ничего не делает.
func (t *Trigger) Press(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Idle {
		return
	}

	t.state = Arming
	t.gen++
	gen := t.gen
	t.location = nil
	t.alert = nil
	t.lastErr = nil
	t.done = make(chan struct{})
	t.pressCtx = ctx

	locateCtx, cancel := context.WithCancel(ctx)
	t.stopLocate = cancel
	if t.locator != nil {
		go t.locate(locateCtx, gen)
	}

	t.timer = t.clock.AfterFunc(t.cfg.ArmingWindow, func() {
		t.commit(gen)
	})
	t.logger.WithField("arming_window", t.cfg.ArmingWindow).Debug("Panic trigger arming")
}

// Release до истечения окна отменяет жест без побочных эффектов
func (t *Trigger) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Arming {
		return
	}
	t.cancelArmingLocked()
	t.state = Idle
	t.logger.Debug("Panic trigger released before commit")
}

// Reset возвращает триггер в Idle для нового жеста
func (t *Trigger) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == Arming {
		t.cancelArmingLocked()
	}
	t.state = Idle
}

func (t *Trigger) cancelArmingLocked() {
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.stopLocate != nil {
		t.stopLocate()
		t.stopLocate = nil
	}
}

// ForceCommit фиксирует тревогу, не дожидаясь конца окна, и ждет результата отправки
func (t *Trigger) ForceCommit(ctx context.Context) (*models.PanicAlert, error) {
	t.mu.Lock()
	switch t.state {
	case Idle:
		t.mu.Unlock()
		return nil, ErrNotArming
	case Committed:
		done := t.done
		t.mu.Unlock()
		return t.wait(ctx, done)
	}
	gen := t.gen
	done := t.done
	t.mu.Unlock()

	t.commit(gen)
	return t.wait(ctx, done)
}

// Done закрывается после первой попытки отправки текущего жеста
func (t *Trigger) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

func (t *Trigger) Result() (*models.PanicAlert, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.alert, t.lastErr
}

func (t *Trigger) wait(ctx context.Context, done <-chan struct{}) (*models.PanicAlert, error) {
	select {
	case <-done:
		return t.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// commit срабатывает ровно один раз на жест: по таймеру или через ForceCommit
func (t *Trigger) commit(gen uint64) {
	t.mu.Lock()
	if t.state != Arming || t.gen != gen {
		t.mu.Unlock()
		return
	}
	t.state = Committed
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.stopLocate != nil {
		t.stopLocate()
		t.stopLocate = nil
	}
	req := models.ActivateAlert{ReporterID: t.cfg.ReporterID, Location: t.location}
	ctx := context.WithoutCancel(t.pressCtx)
	done := t.done
	t.mu.Unlock()

	t.logger.WithField("located", req.Location != nil).Warn("Panic trigger committed")
	t.submit(ctx, gen, req)
	close(done)
}

// Retry повторно отправляет зафиксированную тревогу после сбоя
func (t *Trigger) Retry(ctx context.Context) (*models.PanicAlert, error) {
	t.mu.Lock()
	if t.state != Committed {
		t.mu.Unlock()
		return nil, ErrNotCommitted
	}
	if t.alert != nil {
		alert := t.alert
		t.mu.Unlock()
		return alert, nil
	}
	req := models.ActivateAlert{ReporterID: t.cfg.ReporterID, Location: t.location}
	gen := t.gen
	t.mu.Unlock()

	t.submit(ctx, gen, req)
	return t.Result()
}

func (t *Trigger) submit(ctx context.Context, gen uint64, req models.ActivateAlert) {
	t.submitMu.Lock()
	defer t.submitMu.Unlock()

	t.mu.Lock()
	if t.alert != nil || t.gen != gen {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	submitCtx, cancel := context.WithTimeout(ctx, t.cfg.SubmitTimeout)
	defer cancel()

	alert, err := t.activator.Activate(submitCtx, req)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gen != gen {
		// Жест сброшен во время отправки
		return
	}
	if err != nil {
		t.lastErr = fmt.Errorf("%w: %w", ErrActivationFailed, err)
		t.logger.WithError(err).Error("Panic alert submission failed")
		return
	}
	t.alert = alert
	t.lastErr = nil
	t.logger.WithField("alert_id", alert.ID).Info("Panic alert submitted")
}

// locate пытается получить координаты до коммита, с повторами
func (t *Trigger) locate(ctx context.Context, gen uint64) {
	for attempt := 0; attempt <= t.cfg.LocationRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(t.cfg.LocationBackoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}

		resolveCtx, cancel := context.WithTimeout(ctx, t.cfg.LocationTimeout)
		loc, err := t.locator.Resolve(resolveCtx)
		cancel()
		if err == nil && loc != nil {
			t.mu.Lock()
			if t.gen == gen && t.state == Arming {
				t.location = loc
			}
			t.mu.Unlock()
			return
		}
		if ctx.Err() != nil {
			return
		}
		t.logger.WithError(err).WithField("attempt", attempt).Debug("Location unavailable")
	}
}
