package matcher

import (
	"context"
	"fmt"
	"time"

	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/shenikar/safety_dispatch/pkg/e"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=dispatcher.go -destination=mocks/mock_dispatcher.go -package=mocks

// Transport доставляет уведомление одному получателю, не чаще одного раза за вызов
type Transport interface {
	Send(ctx context.Context, responderID string, n models.Notification) error
}

// DispatchResult - итог рассылки на момент ее завершения
type DispatchResult struct {
	Attempted   int
	DeliveredTo string
}

// Dispatcher рассылает уведомления кандидатам параллельно
type Dispatcher struct {
	transport Transport
	timeout   time.Duration
	logger    *logrus.Logger
}

func NewDispatcher(transport Transport, timeout time.Duration, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{transport: transport, timeout: timeout, logger: logger}
}

type sendResult struct {
	responderID string
	err         error
}

// Dispatch завершается на первой подтвержденной доставке или когда все попытки провалились.
// Оставшиеся отправки продолжаются, каждая ограничена своим таймаутом.
func (d *Dispatcher) Dispatch(ctx context.Context, candidates []Candidate, n models.Notification) (DispatchResult, error) {
	result := DispatchResult{Attempted: len(candidates)}
	if len(candidates) == 0 {
		return result, fmt.Errorf("no candidates: %w", e.ErrDeliveryFailed)
	}

	log := d.logger.WithFields(logrus.Fields{
		"kind":      n.Kind,
		"record_id": n.RecordID,
	})

	results := make(chan sendResult, len(candidates))
	sendCtx := context.WithoutCancel(ctx)
	for _, c := range candidates {
		note := n
		note.DistanceKM = c.DistanceKM
		go func(responderID string) {
			attemptCtx, cancel := context.WithTimeout(sendCtx, d.timeout)
			defer cancel()
			results <- sendResult{responderID: responderID, err: d.transport.Send(attemptCtx, responderID, note)}
		}(c.Responder.ID)
	}

	for range candidates {
		select {
		case r := <-results:
			if r.err != nil {
				log.WithError(r.err).WithField("responder_id", r.responderID).Warn("Notification delivery failed")
				continue
			}
			result.DeliveredTo = r.responderID
			return result, nil
		case <-ctx.Done():
			return result, e.WrapError(ctx, "dispatcher.Dispatch", ctx.Err())
		}
	}
	return result, fmt.Errorf("all %d deliveries failed: %w", len(candidates), e.ErrDeliveryFailed)
}
