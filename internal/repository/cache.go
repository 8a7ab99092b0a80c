package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/safety_dispatch/internal/models"
)

func reportCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("report:%s", id.String())
}

// GetReportFromCache пытается получить отчет из Redis
func (s *Store) GetReportFromCache(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	val, err := s.redisClient.Get(ctx, reportCacheKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get report from cache: %w", err)
	}

	report := &models.Report{}
	if err := json.Unmarshal(val, report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report from cache: %w", err)
	}
	return report, nil
}

// SetReportCache сохраняет отчет в Redis
func (s *Store) SetReportCache(ctx context.Context, report *models.Report) error {
	val, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report for cache: %w", err)
	}
	if err := s.redisClient.Set(ctx, reportCacheKey(report.ID), val, s.cacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set report in cache: %w", err)
	}
	return nil
}

// InvalidateReportCache удаляет отчет из кеша после любого изменения статуса
func (s *Store) InvalidateReportCache(ctx context.Context, id uuid.UUID) error {
	if err := s.redisClient.Del(ctx, reportCacheKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate report cache: %w", err)
	}
	return nil
}
