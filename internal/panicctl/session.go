package panicctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/shenikar/safety_dispatch/internal/panictrigger"
	"github.com/shenikar/safety_dispatch/pkg/e"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

// ErrReleased - кнопку отпустили раньше окна удержания, тревога не отправлялась
var ErrReleased = errors.New("released before the arming window elapsed")

// NewTrigger собирает автомат тревожной кнопки по настройкам CLI
func NewTrigger(settings *Settings, activator panictrigger.Activator, logger *logrus.Logger) *panictrigger.Trigger {
	cfg := panictrigger.Config{
		ReporterID:    settings.ReporterID,
		ArmingWindow:  settings.ArmingWindow,
		SubmitTimeout: settings.Timeout,
	}
	return panictrigger.New(cfg, panictrigger.RealClock(), NewStaticLocation(settings), activator, logger)
}

// Session проводит один жест удержания и сообщает пользователю результат
type Session struct {
	trigger         *panictrigger.Trigger
	emergencyNumber string
	log             *zap.SugaredLogger
	out             io.Writer
}

func NewSession(trigger *panictrigger.Trigger, emergencyNumber string, log *zap.SugaredLogger, out io.Writer) *Session {
	if emergencyNumber == "" {
		emergencyNumber = DefaultEmergencyNumber
	}
	return &Session{
		trigger:         trigger,
		emergencyNumber: emergencyNumber,
		log:             log,
		out:             out,
	}
}

// Hold нажимает кнопку и держит ее, пока не закроется release.
// После фиксации тревоги неудачная отправка повторяется один раз,
// затем выводится инструкция позвонить в экстренную службу.
func (s *Session) Hold(ctx context.Context, release <-chan struct{}) (*models.PanicAlert, error) {
	s.trigger.Press(ctx)
	s.log.Infof("Holding panic button, keep holding to send the alert")

	select {
	case <-release:
		s.trigger.Release()
		if s.trigger.State() != panictrigger.Committed {
			s.log.Infof("Released early, no alert sent")
			return nil, ErrReleased
		}
	case <-s.trigger.Done():
	case <-ctx.Done():
		s.trigger.Release()
		if s.trigger.State() != panictrigger.Committed {
			return nil, ctx.Err()
		}
	}

	// Отправка уже запущена коммитом, ее результат не зависит от отмены ctx
	<-s.trigger.Done()
	alert, err := s.trigger.Result()
	if err != nil && panictrigger.IsRetryable(err) {
		s.log.Warnw("Panic alert not delivered, retrying once", "error", err)
		alert, err = s.trigger.Retry(context.WithoutCancel(ctx))
	}

	switch {
	case err == nil:
		s.log.Infow("Panic alert sent", "alert_id", alert.ID, "located", alert.Location != nil)
		fmt.Fprintf(s.out, "Panic alert %s is active. Help is being dispatched.\n", alert.ID)
		return alert, nil
	case errors.Is(err, e.ErrAlreadyActive):
		fmt.Fprintln(s.out, "A panic alert is already active for you. Responders have been notified.")
		return nil, err
	default:
		s.log.Errorw("Panic alert failed", "error", err)
		fmt.Fprintf(s.out, "Could not reach the dispatch service. Call %s now.\n", s.emergencyNumber)
		// Координаты для оператора экстренной службы
		if loc := s.trigger.Location(); loc != nil {
			line := fmt.Sprintf("Your last known location: %.5f, %.5f %s", loc.Latitude, loc.Longitude, loc.Address)
			fmt.Fprintln(s.out, strings.TrimSpace(line))
		}
		return nil, err
	}
}
