package panicctl

import (
	"context"

	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/shenikar/safety_dispatch/pkg/e"
)

// StaticLocation отдает координаты из настроек. Без них местоположение недоступно.
type StaticLocation struct {
	location *models.Location
}

func NewStaticLocation(settings *Settings) *StaticLocation {
	if settings.Latitude == nil || settings.Longitude == nil {
		return &StaticLocation{}
	}
	return &StaticLocation{location: &models.Location{
		Latitude:  *settings.Latitude,
		Longitude: *settings.Longitude,
		Address:   settings.Address,
	}}
}

func (s *StaticLocation) Resolve(ctx context.Context) (*models.Location, error) {
	if err := ctx.Err(); err != nil {
		return nil, e.WrapError(ctx, "resolve location", err)
	}
	if s.location == nil {
		return nil, e.ErrUnavailable
	}
	loc := *s.location
	return &loc, nil
}
