package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthService manages accounts and sessions
type AuthService struct {
	repo       models.Repository
	tokens     *auth.TokenManager
	google     auth.GoogleVerifier
	refreshTTL time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// NewAuthService creates the account service. google may be nil when Google
// sign-in is not configured.
func NewAuthService(repo models.Repository, tokens *auth.TokenManager, google auth.GoogleVerifier, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		repo:       repo,
		tokens:     tokens,
		google:     google,
		refreshTTL: refreshTTL,
		now:        time.Now,
		logger:     util.GetLogger(),
	}
}

type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8,max=72"`
	FirstName   string `json:"first_name" binding:"required,max=100"`
	LastName    string `json:"last_name" binding:"max=100"`
	PhoneNumber string `json:"phone_number" binding:"max=32"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ProfileInput struct {
	FirstName   string `json:"first_name" binding:"required,max=100"`
	LastName    string `json:"last_name" binding:"max=100"`
	PhoneNumber string `json:"phone_number" binding:"max=32"`
}

// Session is the credential pair handed to a signed-in client.
type Session struct {
	User             *models.User `json:"user"`
	AccessToken      string       `json:"access_token"`
	AccessExpiresAt  time.Time    `json:"access_expires_at"`
	RefreshToken     string       `json:"-"`
	RefreshExpiresAt time.Time    `json:"-"`
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Register")
	defer span.End()

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to hash password: %w", err))
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        normalizeEmail(req.Email),
		PasswordHash: &hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
		Role:         models.RoleCustomer,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, ErrUserEmailTaken
		}
		return nil, util.RecordError(span, fmt.Errorf("failed to create user: %w", err))
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID.String()))
	return s.startSession(ctx, s.repo, user)
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}
	return s.startSession(ctx, s.repo, user)
}

// Refresh rotates a refresh token. Presenting an already rotated token
// revokes every session of its owner.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}

	var (
		session *Session
		reused  *models.RefreshToken
	)
	err := s.repo.InTx(ctx, func(tx models.Repository) error {
		stored, err := tx.GetRefreshToken(ctx, auth.HashToken(refreshToken))
		if errors.Is(err, models.ErrNotFound) {
			return ErrInvalidRefreshToken
		}
		if err != nil {
			return fmt.Errorf("failed to load refresh token: %w", err)
		}
		if stored.RevokedAt != nil {
			reused = stored
			return ErrInvalidRefreshToken
		}
		if !stored.Active(s.now()) {
			return ErrInvalidRefreshToken
		}

		user, err := tx.GetUserByID(ctx, stored.UserID)
		if err != nil {
			return fmt.Errorf("failed to load user: %w", err)
		}
		if err := tx.RevokeRefreshToken(ctx, stored.ID); err != nil {
			return fmt.Errorf("failed to revoke refresh token: %w", err)
		}
		session, err = s.startSession(ctx, tx, user)
		return err
	})

	if reused != nil {
		s.logger.Warn("Refresh token reuse detected, revoking sessions",
			zap.String("user_id", reused.UserID.String()))
		if revErr := s.repo.RevokeUserRefreshTokens(ctx, reused.UserID); revErr != nil {
			s.logger.Error("Failed to revoke sessions", zap.Error(revErr))
		}
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Logout revokes refreshToken; unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	stored, err := s.repo.GetRefreshToken(ctx, auth.HashToken(refreshToken))
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load refresh token: %w", err)
	}
	return s.repo.RevokeRefreshToken(ctx, stored.ID)
}

// GoogleLogin signs in with a Google ID token, linking to an existing
// account by email or creating one.
func (s *AuthService) GoogleLogin(ctx context.Context, idToken string) (*Session, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.GoogleLogin")
	defer span.End()

	if s.google == nil || idToken == "" {
		return nil, ErrGoogleTokenInvalid
	}
	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		s.logger.Warn("Google token rejected", zap.Error(err))
		return nil, ErrGoogleTokenInvalid
	}
	if identity.Subject == "" || identity.Email == "" {
		return nil, ErrGoogleTokenInvalid
	}

	user, err := s.repo.GetUserByGoogleSubject(ctx, identity.Subject)
	if err == nil {
		return s.startSession(ctx, s.repo, user)
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, util.RecordError(span, fmt.Errorf("failed to load user: %w", err))
	}

	subject := identity.Subject
	user, err = s.repo.GetUserByEmail(ctx, normalizeEmail(identity.Email))
	switch {
	case err == nil:
		if !identity.EmailVerified {
			return nil, ErrGoogleTokenInvalid
		}
		user.GoogleSubject = &subject
		user.EmailConfirmed = true
		if err := s.repo.UpdateUser(ctx, user); err != nil {
			return nil, util.RecordError(span, fmt.Errorf("failed to link google account: %w", err))
		}
		s.logger.Info("Google account linked", zap.String("user_id", user.ID.String()))

	case errors.Is(err, models.ErrNotFound):
		user = &models.User{
			ID:             uuid.New(),
			Email:          normalizeEmail(identity.Email),
			FirstName:      identity.GivenName,
			LastName:       identity.FamilyName,
			Role:           models.RoleCustomer,
			GoogleSubject:  &subject,
			EmailConfirmed: identity.EmailVerified,
		}
		if err := s.repo.CreateUser(ctx, user); err != nil {
			if errors.Is(err, models.ErrDuplicate) {
				return nil, ErrUserEmailTaken
			}
			return nil, util.RecordError(span, fmt.Errorf("failed to create user: %w", err))
		}
		s.logger.Info("User registered with Google", zap.String("user_id", user.ID.String()))

	default:
		return nil, util.RecordError(span, fmt.Errorf("failed to load user: %w", err))
	}

	return s.startSession(ctx, s.repo, user)
}

func (s *AuthService) startSession(ctx context.Context, repo models.TokenRepository, user *models.User) (*Session, error) {
	access, accessExp, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	plain, hash, err := auth.NewRefreshToken()
	if err != nil {
		return nil, err
	}

	refreshExp := s.now().Add(s.refreshTTL)
	if err := repo.CreateRefreshToken(ctx, &models.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: refreshExp,
	}); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &Session{
		User:             user,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     plain,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *AuthService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (*models.User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.FirstName = strings.TrimSpace(in.FirstName)
	user.LastName = strings.TrimSpace(in.LastName)
	user.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// ChangePassword sets a new password and ends every other session.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	// Google-only accounts have no password to check.
	if user.PasswordHash != nil && !auth.CheckPassword(user.PasswordHash, current) {
		return ErrInvalidCredentials
	}
	return s.setPassword(ctx, s.repo, user, next)
}

func (s *AuthService) setPassword(ctx context.Context, repo models.Repository, user *models.User, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = &hash
	if err := repo.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if err := repo.RevokeUserRefreshTokens(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return nil
}

func (s *AuthService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListUsers(ctx, limit, offset)
}

func (s *AuthService) SetRole(ctx context.Context, userID uuid.UUID, role string) (*models.User, error) {
	var r models.Role
	for _, candidate := range []models.Role{models.RoleCustomer, models.RoleSeller, models.RoleAdmin} {
		if strings.EqualFold(string(candidate), role) {
			r = candidate
		}
	}
	if r == "" {
		return nil, ErrUserInvalidRole
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Role = r
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	s.logger.Info("User role changed", zap.String("user_id", userID.String()), zap.String("role", string(r)))
	return user, nil
}
