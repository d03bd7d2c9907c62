package store

import (
	"context"

	"storefront/internal/models"

	"github.com/google/uuid"
)

// CreateUser inserts a new user
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, phone_number, role, google_subject, email_confirmed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err := s.get(ctx, user, query,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.PhoneNumber, user.Role, user.GoogleSubject, user.EmailConfirmed)
	return mapWriteError(err)
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.get(ctx, &user, "SELECT * FROM users WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.get(ctx, &user, "SELECT * FROM users WHERE LOWER(email) = LOWER($1)", email); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByGoogleSubject(ctx context.Context, subject string) (*models.User, error) {
	var user models.User
	if err := s.get(ctx, &user, "SELECT * FROM users WHERE google_subject = $1", subject); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	return s.execOne(ctx, `
		UPDATE users SET email = $1, password_hash = $2, first_name = $3, last_name = $4,
			phone_number = $5, role = $6, google_subject = $7, email_confirmed = $8, updated_at = NOW()
		WHERE id = $9`,
		user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.PhoneNumber, user.Role, user.GoogleSubject, user.EmailConfirmed, user.ID)
}

func (s *Store) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	var users []models.User
	err := s.selectAll(ctx, &users,
		"SELECT * FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, offset)
	return users, err
}

// CreateRefreshToken stores a hashed refresh token
func (s *Store) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return s.exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)`,
		token.ID, token.UserID, token.TokenHash, token.ExpiresAt)
}

func (s *Store) GetRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := s.get(ctx, &token, "SELECT * FROM refresh_tokens WHERE token_hash = $1", tokenHash); err != nil {
		return nil, err
	}
	return &token, nil
}

func (s *Store) RevokeRefreshToken(ctx context.Context, id uuid.UUID) error {
	return s.exec(ctx,
		"UPDATE refresh_tokens SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL", id)
}

func (s *Store) RevokeUserRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	return s.exec(ctx,
		"UPDATE refresh_tokens SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL", userID)
}

// CreateVerificationToken stores a one-time password
func (s *Store) CreateVerificationToken(ctx context.Context, token *models.VerificationToken) error {
	return s.exec(ctx, `
		INSERT INTO verification_tokens (id, user_id, purpose, code, expires_at)
		VALUES ($1, $2, $3, $4, $5)`,
		token.ID, token.UserID, token.Purpose, token.Code, token.ExpiresAt)
}

// GetVerificationToken returns the newest token for the purpose
func (s *Store) GetVerificationToken(ctx context.Context, userID uuid.UUID, purpose string) (*models.VerificationToken, error) {
	var token models.VerificationToken
	err := s.get(ctx, &token, `
		SELECT * FROM verification_tokens
		WHERE user_id = $1 AND purpose = $2
		ORDER BY created_at DESC LIMIT 1`, userID, purpose)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (s *Store) IncrementVerificationAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	var attempts int
	err := s.get(ctx, &attempts,
		"UPDATE verification_tokens SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts", id)
	return attempts, err
}

func (s *Store) DeleteVerificationTokens(ctx context.Context, userID uuid.UUID, purpose string) error {
	return s.exec(ctx,
		"DELETE FROM verification_tokens WHERE user_id = $1 AND purpose = $2", userID, purpose)
}
