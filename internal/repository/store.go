package repository

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/safety_dispatch/internal/matcher"
	"github.com/shenikar/safety_dispatch/internal/service"
)

var (
	_ service.ReportRepository    = (*Store)(nil)
	_ service.AlertRepository     = (*Store)(nil)
	_ service.ResponderRepository = (*Store)(nil)
	_ service.ContactRepository   = (*Store)(nil)
	_ matcher.ReportSource        = (*Store)(nil)
	_ matcher.AlertSource         = (*Store)(nil)
	_ matcher.Roster              = (*Store)(nil)
	_ matcher.Reclaimer           = (*Store)(nil)
)

// Store - хранилище на PostgreSQL с кешем отчетов в Redis.
// Все изменения статуса выполняются одним условным UPDATE.
type Store struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
	cacheTTL    time.Duration
}

func NewStore(db *pgxpool.Pool, redisClient *redis.Client, cacheTTL time.Duration) *Store {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Store{
		db:          db,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
	}
}

// point переводит необязательные координаты в аргументы ST_MakePoint
func point(lat, lon *float64) (any, any) {
	if lat == nil || lon == nil {
		return nil, nil
	}
	return *lon, *lat
}
