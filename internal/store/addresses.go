package store

import (
	"context"

	"storefront/internal/models"

	"github.com/google/uuid"
)

func (s *Store) CreateAddress(ctx context.Context, address *models.Address) error {
	query := `
		INSERT INTO addresses (id, user_id, full_name, phone, street, city, state, country, postal_code, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`

	return s.get(ctx, &address.CreatedAt, query,
		address.ID, address.UserID, address.FullName, address.Phone, address.Street,
		address.City, address.State, address.Country, address.PostalCode, address.IsDefault)
}

func (s *Store) GetAddressByID(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	var address models.Address
	if err := s.get(ctx, &address, "SELECT * FROM addresses WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &address, nil
}

func (s *Store) ListAddressesByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	var addresses []models.Address
	err := s.selectAll(ctx, &addresses,
		"SELECT * FROM addresses WHERE user_id = $1 ORDER BY is_default DESC, created_at", userID)
	return addresses, err
}

func (s *Store) UpdateAddress(ctx context.Context, address *models.Address) error {
	return s.execOne(ctx, `
		UPDATE addresses SET full_name = $1, phone = $2, street = $3, city = $4, state = $5,
			country = $6, postal_code = $7, is_default = $8
		WHERE id = $9`,
		address.FullName, address.Phone, address.Street, address.City, address.State,
		address.Country, address.PostalCode, address.IsDefault, address.ID)
}

func (s *Store) DeleteAddress(ctx context.Context, id uuid.UUID) error {
	return s.execOne(ctx, "DELETE FROM addresses WHERE id = $1", id)
}

func (s *Store) ClearDefaultAddress(ctx context.Context, userID uuid.UUID) error {
	return s.exec(ctx,
		"UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND is_default", userID)
}
