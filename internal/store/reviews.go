package store

import (
	"context"

	"storefront/internal/models"

	"github.com/google/uuid"
)

func (s *Store) CreateReview(ctx context.Context, review *models.Review) error {
	query := `
		INSERT INTO reviews (id, product_id, user_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	return mapWriteError(s.get(ctx, review, query,
		review.ID, review.ProductID, review.UserID, review.Rating, review.Comment))
}

func (s *Store) GetReviewByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := s.get(ctx, &review, "SELECT * FROM reviews WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &review, nil
}

func (s *Store) GetReviewByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := s.get(ctx, &review,
		"SELECT * FROM reviews WHERE user_id = $1 AND product_id = $2", userID, productID)
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (s *Store) ListReviewsByProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error) {
	var reviews []models.Review
	err := s.selectAll(ctx, &reviews,
		"SELECT * FROM reviews WHERE product_id = $1 ORDER BY created_at DESC", productID)
	return reviews, err
}

func (s *Store) UpdateReview(ctx context.Context, review *models.Review) error {
	return s.execOne(ctx,
		"UPDATE reviews SET rating = $1, comment = $2, updated_at = NOW() WHERE id = $3",
		review.Rating, review.Comment, review.ID)
}

func (s *Store) DeleteReview(ctx context.Context, id uuid.UUID) error {
	return s.execOne(ctx, "DELETE FROM reviews WHERE id = $1", id)
}
