package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"storefront/internal/email"
	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxOtpAttempts is how many wrong guesses burn a code.
const maxOtpAttempts = 5

// OtpService runs the emailed one-time-password reset flow
type OtpService struct {
	repo   models.Repository
	users  *AuthService
	mailer email.Sender
	ttl    time.Duration
	length int
	now    func() time.Time
	logger *zap.Logger
}

func NewOtpService(repo models.Repository, users *AuthService, mailer email.Sender, ttl time.Duration, length int) *OtpService {
	return &OtpService{
		repo:   repo,
		users:  users,
		mailer: mailer,
		ttl:    ttl,
		length: length,
		now:    time.Now,
		logger: util.GetLogger(),
	}
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type VerifyOtpRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

// RequestPasswordReset emails a fresh code. Unknown addresses succeed
// without sending anything so accounts cannot be enumerated.
func (s *OtpService) RequestPasswordReset(ctx context.Context, address string) error {
	ctx, span := util.StartSpan(ctx, "OtpService.RequestPasswordReset")
	defer span.End()

	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(address))
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return util.RecordError(span, fmt.Errorf("failed to load user: %w", err))
	}

	code := randomDigits(s.length)
	err = s.repo.InTx(ctx, func(tx models.Repository) error {
		if err := tx.DeleteVerificationTokens(ctx, user.ID, models.TokenPurposePasswordReset); err != nil {
			return err
		}
		return tx.CreateVerificationToken(ctx, &models.VerificationToken{
			ID:        uuid.New(),
			UserID:    user.ID,
			Purpose:   models.TokenPurposePasswordReset,
			Code:      code,
			ExpiresAt: s.now().Add(s.ttl),
		})
	})
	if err != nil {
		return util.RecordError(span, fmt.Errorf("failed to store reset code: %w", err))
	}
	util.OTPIssuedTotal.Inc()

	msg, err := email.PasswordReset(user.Email, user.FullName(), code, s.ttl)
	if err != nil {
		return util.RecordError(span, err)
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return util.RecordError(span, fmt.Errorf("failed to send reset code: %w", err))
	}

	s.logger.Info("Password reset code issued", zap.String("user_id", user.ID.String()))
	return nil
}

// VerifyOtp checks a code without consuming it.
func (s *OtpService) VerifyOtp(ctx context.Context, address, code string) error {
	_, _, err := s.check(ctx, address, code)
	return err
}

// ResetPassword consumes the code and replaces the password.
func (s *OtpService) ResetPassword(ctx context.Context, address, code, newPassword string) error {
	user, _, err := s.check(ctx, address, code)
	if err != nil {
		return err
	}

	err = s.repo.InTx(ctx, func(tx models.Repository) error {
		if err := tx.DeleteVerificationTokens(ctx, user.ID, models.TokenPurposePasswordReset); err != nil {
			return err
		}
		return s.users.setPassword(ctx, tx, user, newPassword)
	})
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	s.logger.Info("Password reset", zap.String("user_id", user.ID.String()))
	return nil
}

func (s *OtpService) check(ctx context.Context, address, code string) (*models.User, *models.VerificationToken, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(address))
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil, ErrOtpInvalid
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load user: %w", err)
	}

	token, err := s.repo.GetVerificationToken(ctx, user.ID, models.TokenPurposePasswordReset)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil, ErrOtpInvalid
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load reset code: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(token.Code), []byte(code)) != 1 {
		if err := s.recordMiss(ctx, token); err != nil {
			return nil, nil, err
		}
		return nil, nil, ErrOtpInvalid
	}
	if token.Expired(s.now()) {
		return nil, nil, ErrOtpExpired
	}
	return user, token, nil
}

func (s *OtpService) recordMiss(ctx context.Context, token *models.VerificationToken) error {
	attempts, err := s.repo.IncrementVerificationAttempts(ctx, token.ID)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to count reset attempt: %w", err)
	}
	if attempts < maxOtpAttempts {
		return nil
	}
	if err := s.repo.DeleteVerificationTokens(ctx, token.UserID, token.Purpose); err != nil {
		return fmt.Errorf("failed to revoke reset code: %w", err)
	}
	s.logger.Warn("Password reset code revoked after repeated misses",
		zap.String("user_id", token.UserID.String()))
	return nil
}
