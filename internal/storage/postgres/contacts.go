package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/listaszap/listaszap/internal/models"
	"github.com/listaszap/listaszap/internal/storage"
)

func (s *Store) GetContacts(ctx context.Context, sess models.Session) ([]models.Contact, error) {
	query := `
		SELECT id, name, phone
		FROM contacts
		WHERE user_id = $1
		ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	var contacts []models.Contact
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (s *Store) CreateContact(ctx context.Context, sess models.Session, in storage.ContactInput) (*models.Contact, error) {
	query := `
		INSERT INTO contacts (user_id, name, phone)
		VALUES ($1, $2, $3)
		RETURNING id`

	c := models.Contact{Name: in.Name, Phone: models.PhoneDigits(in.Phone)}
	if err := s.db.QueryRowContext(ctx, query, sess.UserID, c.Name, c.Phone).Scan(&c.ID); err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}
	return &c, nil
}

func (s *Store) UpdateContact(ctx context.Context, sess models.Session, id string, patch storage.ContactPatch) (*models.Contact, error) {
	var phone *string
	if patch.Phone != nil {
		p := models.PhoneDigits(*patch.Phone)
		phone = &p
	}
	query := `
		UPDATE contacts
		SET name = COALESCE($3, name), phone = COALESCE($4, phone)
		WHERE id = $1 AND user_id = $2
		RETURNING id, name, phone`

	var c models.Contact
	err := s.db.QueryRowContext(ctx, query, id, sess.UserID, patch.Name, phone).
		Scan(&c.ID, &c.Name, &c.Phone)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}
	return &c, nil
}

func (s *Store) DeleteContact(ctx context.Context, sess models.Session, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM contacts WHERE id = $1 AND user_id = $2`, id, sess.UserID); err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	return nil
}
