package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("secret", "storefront", 15*time.Minute)
	user := &models.User{ID: uuid.New(), Email: "a@example.com", Role: models.RoleSeller}

	token, expires, err := m.IssueAccessToken(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expires, 5*time.Second)

	claims, err := m.ParseAccessToken(token)
	require.NoError(t, err)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
	assert.Equal(t, models.RoleSeller, claims.Role)
}

func TestAccessTokenRejections(t *testing.T) {
	m := NewTokenManager("secret", "storefront", time.Minute)
	user := &models.User{ID: uuid.New(), Role: models.RoleCustomer}
	token, _, err := m.IssueAccessToken(user)
	require.NoError(t, err)

	_, err = NewTokenManager("other", "storefront", time.Minute).ParseAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokenManager("secret", "someone-else", time.Minute).ParseAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	late := NewTokenManager("secret", "storefront", time.Minute)
	late.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = late.ParseAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Typ:              "refresh",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "storefront", Subject: user.ID.String()},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = m.ParseAccessToken(other)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenHashing(t *testing.T) {
	plain, hash, err := NewRefreshToken()
	require.NoError(t, err)
	assert.NotEqual(t, plain, hash)
	assert.Equal(t, hash, HashToken(plain))

	plain2, _, err := NewRefreshToken()
	require.NoError(t, err)
	assert.NotEqual(t, plain, plain2)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)

	assert.True(t, CheckPassword(&hash, "s3cret!"))
	assert.False(t, CheckPassword(&hash, "wrong"))
	assert.False(t, CheckPassword(nil, "s3cret!"))
}

func TestIDTokenVerifierTriesEveryAudience(t *testing.T) {
	v := NewIDTokenVerifier([]string{"web-client", "mobile-client"})
	v.validate = func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
		if audience != "mobile-client" {
			return nil, errors.New("audience mismatch")
		}
		return &idtoken.Payload{
			Subject: "google-123",
			Claims: map[string]interface{}{
				"email":          "g@example.com",
				"email_verified": true,
				"given_name":     "Gigi",
			},
		}, nil
	}

	id, err := v.Verify(context.Background(), "raw")
	require.NoError(t, err)
	assert.Equal(t, "google-123", id.Subject)
	assert.Equal(t, "g@example.com", id.Email)
	assert.True(t, id.EmailVerified)
	assert.Equal(t, "Gigi", id.GivenName)

	v.validate = func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
		return nil, errors.New("bad token")
	}
	_, err = v.Verify(context.Background(), "raw")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
