package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/shenikar/safety_dispatch/pkg/e"
)

const reportColumns = `
	id,
	reporter_id,
	description,
	ST_Y(location::geometry) AS latitude,
	ST_X(location::geometry) AS longitude,
	address,
	priority,
	is_anonymous,
	has_voice_note,
	has_photo,
	status,
	assigned_responder_id,
	match_attempts,
	manual_handling,
	next_match_at,
	created_at,
	updated_at`

func scanReport(row pgx.Row) (*models.Report, error) {
	report := &models.Report{}
	err := row.Scan(
		&report.ID,
		&report.ReporterID,
		&report.Description,
		&report.Location.Latitude,
		&report.Location.Longitude,
		&report.Location.Address,
		&report.Priority,
		&report.IsAnonymous,
		&report.HasVoiceNote,
		&report.HasPhoto,
		&report.Status,
		&report.AssignedResponderID,
		&report.MatchAttempts,
		&report.ManualHandling,
		&report.NextMatchAt,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// CreateReport создает новую запись об отчете в бд
func (s *Store) CreateReport(ctx context.Context, report *models.Report) error {
	query := `
		INSERT INTO reports (
			id, reporter_id, description, location, address, priority,
			is_anonymous, has_voice_note, has_photo, status, next_match_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326), $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	_, err := s.db.Exec(ctx, query,
		report.ID,
		report.ReporterID,
		report.Description,
		report.Location.Longitude,
		report.Location.Latitude,
		report.Location.Address,
		report.Priority,
		report.IsAnonymous,
		report.HasVoiceNote,
		report.HasPhoto,
		report.Status,
		report.NextMatchAt,
		report.CreatedAt,
		report.UpdatedAt,
	)
	if err != nil {
		return e.WrapError(ctx, "repository.CreateReport", err)
	}
	return nil
}

// GetReportByID возвращает отчет по его UUID
func (s *Store) GetReportByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1;`

	report, err := scanReport(s.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, e.WrapError(ctx, fmt.Sprintf("repository.GetReportByID %s", id), err)
	}
	return report, nil
}

// ListReports возвращает отчеты по фильтру, новые первыми
func (s *Store) ListReports(ctx context.Context, filter models.ReportFilter) ([]*models.Report, error) {
	var (
		conds []string
		args  []any
	)
	if filter.ReporterID != "" {
		args = append(args, filter.ReporterID)
		conds = append(conds, fmt.Sprintf("reporter_id = $%d", len(args)))
	}
	if filter.ResponderID != "" {
		args = append(args, filter.ResponderID)
		conds = append(conds, fmt.Sprintf("assigned_responder_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + reportColumns + ` FROM reports`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}

	// рассчитываем смещение
	offset := (filter.Page - 1) * filter.PageSize
	args = append(args, filter.PageSize, offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d;`, len(args)-1, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, e.WrapError(ctx, "repository.ListReports", err)
	}
	defer rows.Close()

	reports := make([]*models.Report, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, e.WrapError(ctx, "repository.ListReports scan", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, e.WrapError(ctx, "repository.ListReports iteration", err)
	}
	return reports, nil
}

// ClaimReport - единственный путь pending -> in-progress.
// Условие и запись выполняются одним UPDATE, промежутка между чтением и записью нет.
func (s *Store) ClaimReport(ctx context.Context, id uuid.UUID, responderID string) (*models.Report, bool, error) {
	query := `
		UPDATE reports SET
			status = 'in-progress',
			assigned_responder_id = $2,
			updated_at = NOW()
		WHERE id = $1
			AND status = 'pending'
			AND assigned_responder_id IS NULL
		RETURNING ` + reportColumns + `;`

	report, err := scanReport(s.db.QueryRow(ctx, query, id, responderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, s.reportExists(ctx, id)
		}
		return nil, false, e.WrapError(ctx, "repository.ClaimReport", err)
	}
	return report, true, nil
}

// UpdateReportStatus меняет статус, только если он все еще равен expected
func (s *Store) UpdateReportStatus(ctx context.Context, id uuid.UUID, expected, next models.ReportStatus, assignee *string) (*models.Report, bool, error) {
	query := `
		UPDATE reports SET
			status = $3,
			assigned_responder_id = COALESCE(assigned_responder_id, $4),
			updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + reportColumns + `;`

	report, err := scanReport(s.db.QueryRow(ctx, query, id, expected, next, assignee))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, s.reportExists(ctx, id)
		}
		return nil, false, e.WrapError(ctx, "repository.UpdateReportStatus", err)
	}
	return report, true, nil
}

// RecordReportMatchAttempt сохраняет итог попытки, только пока отчет ждет волонтера.
// false без ошибки означает, что отчет уже взят или закрыт.
func (s *Store) RecordReportMatchAttempt(ctx context.Context, id uuid.UUID, attempt models.MatchAttempt) (bool, error) {
	query := `
		UPDATE reports SET
			match_attempts = $2,
			manual_handling = $3,
			next_match_at = $4,
			updated_at = NOW()
		WHERE id = $1
			AND status = 'pending'
			AND assigned_responder_id IS NULL;
	`
	cmdTag, err := s.db.Exec(ctx, query, id, attempt.Attempts, attempt.ManualHandling, attempt.NextMatchAt)
	if err != nil {
		return false, e.WrapError(ctx, "repository.RecordReportMatchAttempt", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return false, s.reportExists(ctx, id)
	}
	return true, nil
}

// ReclaimStalledReports забирает отчеты, чей срок подбора истек раньше before,
// и переносит срок на next, чтобы следующая сверка не взяла их повторно
func (s *Store) ReclaimStalledReports(ctx context.Context, before, next time.Time) ([]*models.Report, error) {
	query := `
		UPDATE reports SET next_match_at = $2
		WHERE status = 'pending'
			AND assigned_responder_id IS NULL
			AND NOT manual_handling
			AND next_match_at < $1
		RETURNING ` + reportColumns + `;`

	rows, err := s.db.Query(ctx, query, before, next)
	if err != nil {
		return nil, e.WrapError(ctx, "repository.ReclaimStalledReports", err)
	}
	defer rows.Close()

	reports := make([]*models.Report, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, e.WrapError(ctx, "repository.ReclaimStalledReports scan", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, e.WrapError(ctx, "repository.ReclaimStalledReports iteration", err)
	}
	return reports, nil
}

// reportExists отличает проигранное условие от отсутствующей записи
func (s *Store) reportExists(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reports WHERE id = $1);`, id).Scan(&exists); err != nil {
		return e.WrapError(ctx, "repository.reportExists", err)
	}
	if !exists {
		return fmt.Errorf("report %s: %w", id, e.ErrNotFound)
	}
	return nil
}
