package repository

import (
	"context"
	"fmt"

	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/shenikar/safety_dispatch/pkg/e"
)

func (s *Store) CreateContact(ctx context.Context, contact *models.EmergencyContact) error {
	query := `
		INSERT INTO emergency_contacts (id, user_id, name, phone_number, relationship)
		VALUES ($1, $2, $3, $4, $5);
	`
	_, err := s.db.Exec(ctx, query, contact.ID, contact.UserID, contact.Name, contact.PhoneNumber, contact.Relationship)
	if err != nil {
		return e.WrapError(ctx, "repository.CreateContact", err)
	}
	return nil
}

func (s *Store) ListContacts(ctx context.Context, userID string) ([]*models.EmergencyContact, error) {
	query := `
		SELECT id::text, user_id, name, phone_number, relationship
		FROM emergency_contacts
		WHERE user_id = $1
		ORDER BY name;
	`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, e.WrapError(ctx, "repository.ListContacts", err)
	}
	defer rows.Close()

	contacts := make([]*models.EmergencyContact, 0)
	for rows.Next() {
		contact := &models.EmergencyContact{}
		if err := rows.Scan(&contact.ID, &contact.UserID, &contact.Name, &contact.PhoneNumber, &contact.Relationship); err != nil {
			return nil, e.WrapError(ctx, "repository.ListContacts scan", err)
		}
		contacts = append(contacts, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, e.WrapError(ctx, "repository.ListContacts iteration", err)
	}
	return contacts, nil
}

func (s *Store) DeleteContact(ctx context.Context, userID, contactID string) error {
	cmdTag, err := s.db.Exec(ctx, `DELETE FROM emergency_contacts WHERE id = $1 AND user_id = $2;`, contactID, userID)
	if err != nil {
		return e.WrapError(ctx, "repository.DeleteContact", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("contact %s: %w", contactID, e.ErrNotFound)
	}
	return nil
}
