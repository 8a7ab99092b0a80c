package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/shenikar/safety_dispatch/pkg/e"
	"github.com/shenikar/safety_dispatch/pkg/validator"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=responder.go -destination=mocks/mock_responder.go -package=mocks

// ResponderRepository хранит реестр волонтеров
type ResponderRepository interface {
	UpsertResponder(ctx context.Context, responder *models.Responder) error
	GetResponder(ctx context.Context, id string) (*models.Responder, error)
	ListAvailableResponders(ctx context.Context) ([]*models.Responder, error)
}

// ContactRepository хранит экстренные контакты пользователей
type ContactRepository interface {
	ContactReader
	CreateContact(ctx context.Context, contact *models.EmergencyContact) error
	DeleteContact(ctx context.Context, userID, contactID string) error
}

type ResponderService interface {
	// SetAvailability меняется только явным действием самого волонтера
	SetAvailability(ctx context.Context, responderID string, available bool, location *models.Location) (*models.Responder, error)
	GetResponder(ctx context.Context, id string) (*models.Responder, error)
}

type ContactService interface {
	AddContact(ctx context.Context, contact models.EmergencyContact) (*models.EmergencyContact, error)
	ListContacts(ctx context.Context, userID string) ([]*models.EmergencyContact, error)
	DeleteContact(ctx context.Context, userID, contactID string) error
}

type responderService struct {
	repo   ResponderRepository
	logger *logrus.Logger
	now    func() time.Time
}

func NewResponderService(repo ResponderRepository, logger *logrus.Logger) ResponderService {
	return &responderService{repo: repo, logger: logger, now: time.Now}
}

func (s *responderService) SetAvailability(ctx context.Context, responderID string, available bool, location *models.Location) (*models.Responder, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":      "responder",
		"method":       "SetAvailability",
		"responder_id": responderID,
		"available":    available,
	})

	if responderID == "" {
		return nil, e.Validation("responder is required")
	}
	if location != nil {
		if err := validator.ValidateStruct(locationRules{Latitude: location.Latitude, Longitude: location.Longitude}); err != nil {
			return nil, e.Validation(err.Error())
		}
	}

	responder := &models.Responder{
		ID:                    responderID,
		Available:             available,
		Location:              location,
		AvailabilityChangedAt: s.now().UTC(),
	}
	if location == nil {
		// Сохраняем последнее известное местоположение
		if existing, err := s.repo.GetResponder(ctx, responderID); err == nil {
			responder.Location = existing.Location
		}
	}

	if err := s.repo.UpsertResponder(ctx, responder); err != nil {
		log.WithError(err).Error("Failed to store responder availability")
		return nil, fmt.Errorf("service: could not update availability: %w", err)
	}

	log.Info("Responder availability updated")
	return responder, nil
}

func (s *responderService) GetResponder(ctx context.Context, id string) (*models.Responder, error) {
	responder, err := s.repo.GetResponder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: could not get responder: %w", err)
	}
	return responder, nil
}

type contactService struct {
	repo   ContactRepository
	logger *logrus.Logger
}

func NewContactService(repo ContactRepository, logger *logrus.Logger) ContactService {
	return &contactService{repo: repo, logger: logger}
}

func (s *contactService) AddContact(ctx context.Context, contact models.EmergencyContact) (*models.EmergencyContact, error) {
	if contact.UserID == "" || strings.TrimSpace(contact.Name) == "" || strings.TrimSpace(contact.PhoneNumber) == "" {
		return nil, e.Validation("user, name and phone number are required")
	}
	contact.ID = uuid.NewString()

	if err := s.repo.CreateContact(ctx, &contact); err != nil {
		s.logger.WithError(err).WithField("user_id", contact.UserID).Error("Failed to create emergency contact")
		return nil, fmt.Errorf("service: could not create contact: %w", err)
	}
	return &contact, nil
}

func (s *contactService) ListContacts(ctx context.Context, userID string) ([]*models.EmergencyContact, error) {
	contacts, err := s.repo.ListContacts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: could not list contacts: %w", err)
	}
	return contacts, nil
}

func (s *contactService) DeleteContact(ctx context.Context, userID, contactID string) error {
	if err := s.repo.DeleteContact(ctx, userID, contactID); err != nil {
		return fmt.Errorf("service: could not delete contact: %w", err)
	}
	return nil
}
