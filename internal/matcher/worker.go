package matcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shenikar/safety_dispatch/internal/queue"
	"github.com/shenikar/safety_dispatch/pkg/e"
	"github.com/sirupsen/logrus"
)

// Worker разбирает очередь подбора несколькими обработчиками и переносит созревшие повторы
type Worker struct {
	queue        queue.Queue
	matcher      *Matcher
	workers      int
	promoteEvery time.Duration
	logger       *logrus.Logger
}

func NewWorker(q queue.Queue, m *Matcher, workers int, promoteEvery time.Duration, logger *logrus.Logger) *Worker {
	if workers <= 0 {
		workers = 1
	}
	if promoteEvery <= 0 {
		promoteEvery = time.Second
	}
	return &Worker{queue: q, matcher: m, workers: workers, promoteEvery: promoteEvery, logger: logger}
}

// Run блокируется до отмены ctx
func (w *Worker) Run(ctx context.Context) {
	w.logger.WithField("workers", w.workers).Info("Starting match worker...")

	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.consume(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.promote(ctx)
	}()

	wg.Wait()
	w.logger.Info("Stopping match worker.")
}

func (w *Worker) consume(ctx context.Context) {
	for ctx.Err() == nil {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, e.ErrQueueEmpty) || errors.Is(err, e.ErrCanceled) {
				continue
			}
			w.logger.WithError(err).Error("Failed to dequeue match job")
			if !sleepCtx(ctx, w.promoteEvery) {
				return
			}
			continue
		}

		if err := w.matcher.Handle(ctx, job); err != nil {
			w.logger.WithError(err).WithField("record_id", job.RecordID).Error("Match job failed")
		}
	}
}

func (w *Worker) promote(ctx context.Context) {
	ticker := time.NewTicker(w.promoteEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := w.queue.PromoteDue(ctx, now)
			if err != nil && !errors.Is(err, e.ErrCanceled) {
				w.logger.WithError(err).Error("Failed to promote delayed match jobs")
				continue
			}
			if n > 0 {
				w.logger.WithField("count", n).Debug("Delayed match jobs promoted")
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
