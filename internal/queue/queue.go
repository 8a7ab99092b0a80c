package queue

import (
	"context"
	"time"

	"github.com/shenikar/safety_dispatch/internal/models"
)

// pollTimeout ограничивает одно ожидание Dequeue, чтобы воркер видел отмену контекста
const pollTimeout = time.Second

// Queue - очередь записей для подбора волонтеров.
// Dequeue возвращает e.ErrQueueEmpty, если за pollTimeout ничего не пришло.
type Queue interface {
	Enqueue(ctx context.Context, job models.MatchJob) error
	Schedule(ctx context.Context, job models.MatchJob, at time.Time) error
	Dequeue(ctx context.Context) (models.MatchJob, error)
	// PromoteDue переносит отложенные задачи со сроком не позже now в очередь готовых
	PromoteDue(ctx context.Context, now time.Time) (int, error)
}
