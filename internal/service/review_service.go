package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReviewService lets customers who received a product rate it
type ReviewService struct {
	repo   models.Repository
	logger *zap.Logger
}

func NewReviewService(repo models.Repository) *ReviewService {
	return &ReviewService{repo: repo, logger: util.GetLogger()}
}

type ReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment" binding:"max=2000"`
}

// ProductReviews is a product's reviews with their mean rating
type ProductReviews struct {
	ProductID     uuid.UUID       `json:"product_id"`
	Reviews       []models.Review `json:"reviews"`
	Count         int             `json:"count"`
	AverageRating decimal.Decimal `json:"average_rating"`
}

func (s *ReviewService) AddReview(ctx context.Context, userID, productID uuid.UUID, in ReviewInput) (*models.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, ErrReviewInvalidRating
	}

	if _, err := s.repo.GetProductByID(ctx, productID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ProductNotFound(productID)
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	purchased, err := s.repo.HasPurchased(ctx, userID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to check purchase: %w", err)
	}
	if !purchased {
		return nil, ErrReviewNotPurchased
	}

	_, err = s.repo.GetReviewByUserAndProduct(ctx, userID, productID)
	if err == nil {
		return nil, ErrReviewDuplicate
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to check review: %w", err)
	}

	review := &models.Review{
		ID:        uuid.New(),
		ProductID: productID,
		UserID:    userID,
		Rating:    in.Rating,
		Comment:   strings.TrimSpace(in.Comment),
	}
	if err := s.repo.CreateReview(ctx, review); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, ErrReviewDuplicate
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	s.logger.Info("Review added",
		zap.String("product_id", productID.String()),
		zap.Int("rating", in.Rating))
	return review, nil
}

func (s *ReviewService) editable(ctx context.Context, actor Actor, id uuid.UUID) (*models.Review, error) {
	review, err := s.repo.GetReviewByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrReviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	if review.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrReviewForbidden
	}
	return review, nil
}

func (s *ReviewService) UpdateReview(ctx context.Context, actor Actor, id uuid.UUID, in ReviewInput) (*models.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, ErrReviewInvalidRating
	}
	review, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	review.Rating = in.Rating
	review.Comment = strings.TrimSpace(in.Comment)
	if err := s.repo.UpdateReview(ctx, review); err != nil {
		return nil, fmt.Errorf("failed to update review: %w", err)
	}
	return review, nil
}

func (s *ReviewService) DeleteReview(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.editable(ctx, actor, id); err != nil {
		return err
	}
	err := s.repo.DeleteReview(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return ErrReviewNotFound
	}
	return err
}

func (s *ReviewService) ListProductReviews(ctx context.Context, productID uuid.UUID) (*ProductReviews, error) {
	reviews, err := s.repo.ListReviewsByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	if reviews == nil {
		reviews = []models.Review{}
	}

	out := &ProductReviews{ProductID: productID, Reviews: reviews, Count: len(reviews), AverageRating: decimal.Zero}
	if len(reviews) > 0 {
		sum := 0
		for _, r := range reviews {
			sum += r.Rating
		}
		out.AverageRating = decimal.NewFromInt(int64(sum)).Div(decimal.NewFromInt(int64(len(reviews)))).Round(2)
	}
	return out, nil
}
