package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/shenikar/safety_dispatch/pkg/e"
)

const alertColumns = `
	id,
	reporter_id,
	ST_Y(location::geometry) AS latitude,
	ST_X(location::geometry) AS longitude,
	address,
	status,
	responder_ids,
	closed_by,
	match_attempts,
	manual_handling,
	next_match_at,
	created_at,
	updated_at`

func scanAlert(row pgx.Row) (*models.PanicAlert, error) {
	alert := &models.PanicAlert{}
	var (
		lat, lon *float64
		address  string
	)
	err := row.Scan(
		&alert.ID,
		&alert.ReporterID,
		&lat,
		&lon,
		&address,
		&alert.Status,
		&alert.ResponderIDs,
		&alert.ClosedBy,
		&alert.MatchAttempts,
		&alert.ManualHandling,
		&alert.NextMatchAt,
		&alert.CreatedAt,
		&alert.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lat != nil && lon != nil {
		alert.Location = &models.Location{Latitude: *lat, Longitude: *lon, Address: address}
	}
	if alert.ResponderIDs == nil {
		alert.ResponderIDs = []string{}
	}
	return alert, nil
}

// CreateAlertIfNoneActive опирается на частичный уникальный индекс по активным тревогам
func (s *Store) CreateAlertIfNoneActive(ctx context.Context, alert *models.PanicAlert) (bool, error) {
	var lat, lon *float64
	address := ""
	if alert.Location != nil {
		lat, lon = &alert.Location.Latitude, &alert.Location.Longitude
		address = alert.Location.Address
	}
	x, y := point(lat, lon)

	query := `
		INSERT INTO panic_alerts (id, reporter_id, location, address, status, responder_ids, next_match_at, created_at, updated_at)
		VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3::float8, $4::float8), 4326), $5, $6, '{}', $7, $8, $9)
		ON CONFLICT (reporter_id) WHERE status = 'active' DO NOTHING
		RETURNING id;
	`
	var id uuid.UUID
	err := s.db.QueryRow(ctx, query,
		alert.ID,
		alert.ReporterID,
		x,
		y,
		address,
		alert.Status,
		alert.NextMatchAt,
		alert.CreatedAt,
		alert.UpdatedAt,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, e.WrapError(ctx, "repository.CreateAlertIfNoneActive", err)
	}
	return true, nil
}

func (s *Store) GetAlertByID(ctx context.Context, id uuid.UUID) (*models.PanicAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM panic_alerts WHERE id = $1;`

	alert, err := scanAlert(s.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, e.WrapError(ctx, fmt.Sprintf("repository.GetAlertByID %s", id), err)
	}
	return alert, nil
}

func (s *Store) GetActiveAlertByReporter(ctx context.Context, reporterID string) (*models.PanicAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM panic_alerts WHERE reporter_id = $1 AND status = 'active';`

	alert, err := scanAlert(s.db.QueryRow(ctx, query, reporterID))
	if err != nil {
		return nil, e.WrapError(ctx, "repository.GetActiveAlertByReporter", err)
	}
	return alert, nil
}

// AddAlertResponder добавляет волонтера одним условным UPDATE
func (s *Store) AddAlertResponder(ctx context.Context, id uuid.UUID, responderID string, limit int) (*models.PanicAlert, bool, error) {
	query := `
		UPDATE panic_alerts SET
			responder_ids = array_append(responder_ids, $2::text),
			updated_at = NOW()
		WHERE id = $1
			AND status = 'active'
			AND cardinality(responder_ids) < $3
			AND NOT ($2::text = ANY (responder_ids))
		RETURNING ` + alertColumns + `;`

	alert, err := scanAlert(s.db.QueryRow(ctx, query, id, responderID, limit))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, s.alertExists(ctx, id)
		}
		return nil, false, e.WrapError(ctx, "repository.AddAlertResponder", err)
	}
	return alert, true, nil
}

func (s *Store) UpdateAlertStatus(ctx context.Context, id uuid.UUID, expected, next models.AlertStatus, closedBy string) (*models.PanicAlert, bool, error) {
	query := `
		UPDATE panic_alerts SET
			status = $3,
			closed_by = $4,
			updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + alertColumns + `;`

	alert, err := scanAlert(s.db.QueryRow(ctx, query, id, expected, next, closedBy))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, s.alertExists(ctx, id)
		}
		return nil, false, e.WrapError(ctx, "repository.UpdateAlertStatus", err)
	}
	return alert, true, nil
}

// ListActiveAlertsBefore возвращает активные тревоги, созданные раньше before
func (s *Store) ListActiveAlertsBefore(ctx context.Context, before time.Time) ([]*models.PanicAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM panic_alerts WHERE status = 'active' AND created_at < $1 ORDER BY created_at;`

	rows, err := s.db.Query(ctx, query, before)
	if err != nil {
		return nil, e.WrapError(ctx, "repository.ListActiveAlertsBefore", err)
	}
	defer rows.Close()

	alerts := make([]*models.PanicAlert, 0)
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, e.WrapError(ctx, "repository.ListActiveAlertsBefore scan", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, e.WrapError(ctx, "repository.ListActiveAlertsBefore iteration", err)
	}
	return alerts, nil
}

// RecordAlertMatchAttempt сохраняет итог попытки, пока на активную тревогу никто не откликнулся
func (s *Store) RecordAlertMatchAttempt(ctx context.Context, id uuid.UUID, attempt models.MatchAttempt) (bool, error) {
	query := `
		UPDATE panic_alerts SET
			match_attempts = $2,
			manual_handling = $3,
			next_match_at = $4,
			updated_at = NOW()
		WHERE id = $1
			AND status = 'active'
			AND cardinality(responder_ids) = 0;
	`
	cmdTag, err := s.db.Exec(ctx, query, id, attempt.Attempts, attempt.ManualHandling, attempt.NextMatchAt)
	if err != nil {
		return false, e.WrapError(ctx, "repository.RecordAlertMatchAttempt", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return false, s.alertExists(ctx, id)
	}
	return true, nil
}

func (s *Store) ReclaimStalledAlerts(ctx context.Context, before, next time.Time) ([]*models.PanicAlert, error) {
	query := `
		UPDATE panic_alerts SET next_match_at = $2
		WHERE status = 'active'
			AND cardinality(responder_ids) = 0
			AND NOT manual_handling
			AND next_match_at < $1
		RETURNING ` + alertColumns + `;`

	rows, err := s.db.Query(ctx, query, before, next)
	if err != nil {
		return nil, e.WrapError(ctx, "repository.ReclaimStalledAlerts", err)
	}
	defer rows.Close()

	alerts := make([]*models.PanicAlert, 0)
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, e.WrapError(ctx, "repository.ReclaimStalledAlerts scan", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, e.WrapError(ctx, "repository.ReclaimStalledAlerts iteration", err)
	}
	return alerts, nil
}

func (s *Store) alertExists(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM panic_alerts WHERE id = $1);`, id).Scan(&exists); err != nil {
		return e.WrapError(ctx, "repository.alertExists", err)
	}
	if !exists {
		return fmt.Errorf("panic alert %s: %w", id, e.ErrNotFound)
	}
	return nil
}
