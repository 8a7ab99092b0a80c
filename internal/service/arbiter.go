package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/shenikar/safety_dispatch/pkg/e"
	"github.com/sirupsen/logrus"
)

// Arbiter разрешает гонку волонтеров за запись.
// Собственного состояния у него нет: победителя определяет одно условное обновление в хранилище.
type Arbiter struct {
	reports       ReportRepository
	alerts        AlertRepository
	maxResponders int
	logger        *logrus.Logger
}

func NewArbiter(reports ReportRepository, alerts AlertRepository, maxResponders int, logger *logrus.Logger) *Arbiter {
	if maxResponders <= 0 {
		maxResponders = 1
	}
	return &Arbiter{
		reports:       reports,
		alerts:        alerts,
		maxResponders: maxResponders,
		logger:        logger,
	}
}

// Claim возвращает ClaimWon ровно одному из конкурирующих волонтеров.
// Проигрыш, в том числе по уже закрытому отчету, ошибкой не является.
func (a *Arbiter) Claim(ctx context.Context, reportID uuid.UUID, responderID string) (models.ClaimOutcome, error) {
	log := a.logger.WithFields(logrus.Fields{
		"service":      "arbiter",
		"method":       "Claim",
		"report_id":    reportID,
		"responder_id": responderID,
	})

	if responderID == "" {
		return models.ClaimLost, e.Validation("responder is required")
	}

	_, won, err := a.reports.ClaimReport(ctx, reportID, responderID)
	if err != nil {
		log.WithError(err).Error("Claim failed")
		return models.ClaimLost, fmt.Errorf("service: could not claim report: %w", err)
	}

	if !won {
		log.Info("Claim lost")
		return models.ClaimLost, nil
	}

	log.Info("Claim won")
	return models.ClaimWon, nil
}

// Acknowledge закрепляет волонтера за активной тревогой, пока не набран лимит откликнувшихся
func (a *Arbiter) Acknowledge(ctx context.Context, alertID uuid.UUID, responderID string) (models.ClaimOutcome, error) {
	log := a.logger.WithFields(logrus.Fields{
		"service":      "arbiter",
		"method":       "Acknowledge",
		"alert_id":     alertID,
		"responder_id": responderID,
	})

	if responderID == "" {
		return models.ClaimLost, e.Validation("responder is required")
	}

	_, won, err := a.alerts.AddAlertResponder(ctx, alertID, responderID, a.maxResponders)
	if err != nil {
		log.WithError(err).Error("Acknowledge failed")
		return models.ClaimLost, fmt.Errorf("service: could not acknowledge alert: %w", err)
	}

	if !won {
		log.Info("Acknowledge lost")
		return models.ClaimLost, nil
	}

	log.Info("Acknowledge won")
	return models.ClaimWon, nil
}
