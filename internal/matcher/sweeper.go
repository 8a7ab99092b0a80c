package matcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shenikar/safety_dispatch/internal/config"
	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/shenikar/safety_dispatch/pkg/e"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=sweeper.go -destination=mocks/mock_sweeper.go -package=mocks

// Reclaimer находит записи, чей срок подбора истек, а задача так и не выполнилась:
// очередь не приняла ее при создании записи или процесс остановился посреди попытки.
type Reclaimer interface {
	// ReclaimStalledReports переносит срок найденных отчетов на next и возвращает их.
	ReclaimStalledReports(ctx context.Context, before, next time.Time) ([]*models.Report, error)
	ReclaimStalledAlerts(ctx context.Context, before, next time.Time) ([]*models.PanicAlert, error)
}

// Sweeper периодически возвращает просроченные записи в очередь подбора
type Sweeper struct {
	source    Reclaimer
	scheduler Scheduler
	interval  time.Duration
	grace     time.Duration
	logger    *logrus.Logger
	now       func() time.Time
}

func NewSweeper(source Reclaimer, scheduler Scheduler, logger *logrus.Logger, cfg *config.Config) *Sweeper {
	return &Sweeper{
		source:    source,
		scheduler: scheduler,
		interval:  cfg.MatchSweepInterval,
		grace:     cfg.MatchSweepGrace,
		logger:    logger,
		now:       time.Now,
	}
}

// Sweep ставит в очередь записи, просроченные больше чем на grace, и возвращает их число
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now().UTC()
	before := now.Add(-s.grace)

	reports, err := s.source.ReclaimStalledReports(ctx, before, now)
	if err != nil {
		return 0, fmt.Errorf("matcher: could not reclaim stalled reports: %w", err)
	}
	alerts, err := s.source.ReclaimStalledAlerts(ctx, before, now)
	if err != nil {
		return 0, fmt.Errorf("matcher: could not reclaim stalled panic alerts: %w", err)
	}

	jobs := make([]models.MatchJob, 0, len(reports)+len(alerts))
	for _, alert := range alerts {
		jobs = append(jobs, models.MatchJob{Kind: models.KindPanic, RecordID: alert.ID, Attempt: alert.MatchAttempts})
	}
	for _, report := range reports {
		jobs = append(jobs, models.MatchJob{Kind: models.KindReport, RecordID: report.ID, Attempt: report.MatchAttempts})
	}

	for i, job := range jobs {
		// Срок уже перенесен, поэтому незапланированные записи вернутся через grace
		if err := s.scheduler.Schedule(ctx, job, now); err != nil {
			return i, fmt.Errorf("matcher: could not requeue stalled %s %s: %w", job.Kind, job.RecordID, err)
		}
		s.logger.WithFields(logrus.Fields{
			"service":   "matcher",
			"kind":      job.Kind,
			"record_id": job.RecordID,
			"attempt":   job.Attempt,
		}).Warn("Stalled record returned to the match queue")
	}
	return len(jobs), nil
}

// Run блокируется до отмены ctx. Нулевой интервал отключает сверку.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && !errors.Is(err, e.ErrCanceled) {
				s.logger.WithError(err).Error("Match sweep failed")
			}
		}
	}
}
