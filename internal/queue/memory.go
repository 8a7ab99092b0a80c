package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/shenikar/safety_dispatch/pkg/e"
)

const memoryQueueSize = 1024

type delayedJob struct {
	job models.MatchJob
	at  time.Time
}

// MemoryQueue - очередь в памяти процесса для STORE_DRIVER=memory и тестов
type MemoryQueue struct {
	ready chan models.MatchJob

	mu      sync.Mutex
	delayed []delayedJob
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{ready: make(chan models.MatchJob, memoryQueueSize)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job models.MatchJob) error {
	select {
	case q.ready <- job:
		return nil
	case <-ctx.Done():
		return e.WrapError(ctx, "queue.Enqueue", ctx.Err())
	}
}

func (q *MemoryQueue) Schedule(_ context.Context, job models.MatchJob, at time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.delayed = append(q.delayed, delayedJob{job: job, at: at})
	sort.SliceStable(q.delayed, func(i, j int) bool {
		return q.delayed[i].at.Before(q.delayed[j].at)
	})
	return nil
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (models.MatchJob, error) {
	timer := time.NewTimer(pollTimeout)
	defer timer.Stop()

	select {
	case job := <-q.ready:
		return job, nil
	case <-timer.C:
		return models.MatchJob{}, e.ErrQueueEmpty
	case <-ctx.Done():
		return models.MatchJob{}, e.WrapError(ctx, "queue.Dequeue", ctx.Err())
	}
}

func (q *MemoryQueue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	q.mu.Lock()
	n := 0
	for n < len(q.delayed) && !q.delayed[n].at.After(now) {
		n++
	}
	due := make([]delayedJob, n)
	copy(due, q.delayed[:n])
	q.delayed = q.delayed[n:]
	q.mu.Unlock()

	for i, d := range due {
		if err := q.Enqueue(ctx, d.job); err != nil {
			// Возвращаем непереданные задачи обратно
			for _, rest := range due[i:] {
				_ = q.Schedule(ctx, rest.job, rest.at)
			}
			return i, err
		}
	}
	return n, nil
}

// Pending - число отложенных задач
func (q *MemoryQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.delayed)
}
