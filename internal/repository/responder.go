package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/shenikar/safety_dispatch/pkg/e"
)

const responderColumns = `
	id,
	available,
	ST_Y(location::geometry) AS latitude,
	ST_X(location::geometry) AS longitude,
	address,
	availability_changed_at`

func scanResponder(row pgx.Row) (*models.Responder, error) {
	responder := &models.Responder{}
	var (
		lat, lon *float64
		address  string
	)
	if err := row.Scan(&responder.ID, &responder.Available, &lat, &lon, &address, &responder.AvailabilityChangedAt); err != nil {
		return nil, err
	}
	if lat != nil && lon != nil {
		responder.Location = &models.Location{Latitude: *lat, Longitude: *lon, Address: address}
	}
	return responder, nil
}

// UpsertResponder сохраняет доступность и последнее известное местоположение волонтера
func (s *Store) UpsertResponder(ctx context.Context, responder *models.Responder) error {
	var lat, lon *float64
	address := ""
	if responder.Location != nil {
		lat, lon = &responder.Location.Latitude, &responder.Location.Longitude
		address = responder.Location.Address
	}
	x, y := point(lat, lon)

	query := `
		INSERT INTO responders (id, available, location, address, availability_changed_at)
		VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3::float8, $4::float8), 4326), $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			available = EXCLUDED.available,
			location = EXCLUDED.location,
			address = EXCLUDED.address,
			availability_changed_at = EXCLUDED.availability_changed_at;
	`
	if _, err := s.db.Exec(ctx, query, responder.ID, responder.Available, x, y, address, responder.AvailabilityChangedAt); err != nil {
		return e.WrapError(ctx, "repository.UpsertResponder", err)
	}
	return nil
}

func (s *Store) GetResponder(ctx context.Context, id string) (*models.Responder, error) {
	query := `SELECT ` + responderColumns + ` FROM responders WHERE id = $1;`

	responder, err := scanResponder(s.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, e.WrapError(ctx, "repository.GetResponder", err)
	}
	return responder, nil
}

// ListAvailableResponders возвращает всех доступных; ранжирование выполняет matcher
func (s *Store) ListAvailableResponders(ctx context.Context) ([]*models.Responder, error) {
	query := `SELECT ` + responderColumns + ` FROM responders WHERE available;`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, e.WrapError(ctx, "repository.ListAvailableResponders", err)
	}
	defer rows.Close()

	responders := make([]*models.Responder, 0)
	for rows.Next() {
		responder, err := scanResponder(rows)
		if err != nil {
			return nil, e.WrapError(ctx, "repository.ListAvailableResponders scan", err)
		}
		responders = append(responders, responder)
	}
	if err := rows.Err(); err != nil {
		return nil, e.WrapError(ctx, "repository.ListAvailableResponders iteration", err)
	}
	return responders, nil
}
