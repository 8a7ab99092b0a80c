package e

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestWrapError(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"deadline", context.DeadlineExceeded, ErrDeadline},
		{"canceled", fmt.Errorf("query: %w", context.Canceled), ErrCanceled},
		{"unique", &pgconn.PgError{Code: "23505"}, ErrUniqueViolation},
		{"check", &pgconn.PgError{Code: "23514"}, ErrValidation},
		{"other pg", &pgconn.PgError{Code: "40001"}, ErrInternal},
		{"no rows", pgx.ErrNoRows, ErrNotFound},
		{"unknown", errors.New("boom"), ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WrapError(ctx, "op", tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.Contains(t, got.Error(), "op")
		})
	}

	assert.NoError(t, WrapError(ctx, "op", nil))
}

func TestHelpers(t *testing.T) {
	assert.ErrorIs(t, Validation("description is required"), ErrValidation)

	err := IllegalTransition("pending", "resolved")
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Contains(t, err.Error(), "pending -> resolved")
}
