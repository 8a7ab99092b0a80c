package e

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrIllegalTransition = errors.New("illegal transition")
	ErrActorNotPermitted = errors.New("actor not permitted")
	ErrAlreadyActive     = errors.New("panic alert already active")
	ErrNotFound          = errors.New("not found")
	ErrUnavailable       = errors.New("unavailable")
	ErrDeliveryFailed    = errors.New("delivery failed")
	ErrInternal          = errors.New("internal error")
	ErrDeadline          = errors.New("deadline exceeded")
	ErrCanceled          = errors.New("context canceled")
	ErrUniqueViolation   = errors.New("unique violation")
	ErrQueueEmpty        = errors.New("queue is empty")
)

// Validation wraps msg as an ErrValidation.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// IllegalTransition wraps an attempted edge as an ErrIllegalTransition.
func IllegalTransition(from, to string) error {
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}

// WrapError maps driver and context errors onto the package sentinels.
func WrapError(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrDeadline)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, ErrCanceled)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", op, ErrUniqueViolation)
		case "23503", "23514", "22P02":
			return fmt.Errorf("%s: %w", op, ErrValidation)
		default:
			return fmt.Errorf("%s: pg error %s: %w", op, pgErr.Code, ErrInternal)
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrInternal, err)
}
