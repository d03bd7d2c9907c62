package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"

	"github.com/google/uuid"
)

// AddressService manages a user's shipping addresses. A user has at most
// one default address; the first one saved becomes it.
type AddressService struct {
	repo models.Repository
}

func NewAddressService(repo models.Repository) *AddressService {
	return &AddressService{repo: repo}
}

type AddressInput struct {
	FullName   string `json:"full_name" binding:"required,max=200"`
	Phone      string `json:"phone" binding:"required,max=32"`
	Street     string `json:"street" binding:"required,max=300"`
	City       string `json:"city" binding:"required,max=100"`
	State      string `json:"state" binding:"max=100"`
	Country    string `json:"country" binding:"required,max=100"`
	PostalCode string `json:"postal_code" binding:"max=20"`
	IsDefault  bool   `json:"is_default"`
}

func (in AddressInput) apply(a *models.Address) {
	a.FullName = in.FullName
	a.Phone = in.Phone
	a.Street = in.Street
	a.City = in.City
	a.State = in.State
	a.Country = in.Country
	a.PostalCode = in.PostalCode
}

func (s *AddressService) List(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	return s.repo.ListAddressesByUser(ctx, userID)
}

func (s *AddressService) Get(ctx context.Context, userID, id uuid.UUID) (*models.Address, error) {
	address, err := s.repo.GetAddressByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) || (err == nil && address.UserID != userID) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get address: %w", err)
	}
	return address, nil
}

func (s *AddressService) Create(ctx context.Context, userID uuid.UUID, in AddressInput) (*models.Address, error) {
	address := &models.Address{ID: uuid.New(), UserID: userID, IsDefault: in.IsDefault}
	in.apply(address)

	err := s.repo.InTx(ctx, func(tx models.Repository) error {
		existing, err := tx.ListAddressesByUser(ctx, userID)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			address.IsDefault = true
		}
		if address.IsDefault {
			if err := tx.ClearDefaultAddress(ctx, userID); err != nil {
				return err
			}
		}
		return tx.CreateAddress(ctx, address)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create address: %w", err)
	}
	return address, nil
}

func (s *AddressService) Update(ctx context.Context, userID, id uuid.UUID, in AddressInput) (*models.Address, error) {
	address, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	in.apply(address)

	err = s.repo.InTx(ctx, func(tx models.Repository) error {
		if in.IsDefault && !address.IsDefault {
			if err := tx.ClearDefaultAddress(ctx, userID); err != nil {
				return err
			}
			address.IsDefault = true
		}
		return tx.UpdateAddress(ctx, address)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update address: %w", err)
	}
	return address, nil
}

// SetDefault makes id the user's default address.
func (s *AddressService) SetDefault(ctx context.Context, userID, id uuid.UUID) (*models.Address, error) {
	address, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	err = s.repo.InTx(ctx, func(tx models.Repository) error {
		if err := tx.ClearDefaultAddress(ctx, userID); err != nil {
			return err
		}
		address.IsDefault = true
		return tx.UpdateAddress(ctx, address)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set default address: %w", err)
	}
	return address, nil
}

func (s *AddressService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	err := s.repo.DeleteAddress(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return ErrAddressNotFound
	}
	return err
}
