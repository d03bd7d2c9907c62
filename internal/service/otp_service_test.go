package service

import (
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOtpFixture(t *testing.T) (*fixture, *AuthService, *OtpService, *recordingMailer) {
	f := newFixture(t)
	users := newAuthService(f, nil)
	mailer := &recordingMailer{}
	return f, users, NewOtpService(f.repo, users, mailer, 10*time.Minute, 6), mailer
}

func issuedCode(t *testing.T, f *fixture, user *models.User) string {
	t.Helper()
	token, err := f.repo.GetVerificationToken(f.ctx, user.ID, models.TokenPurposePasswordReset)
	require.NoError(t, err)
	return token.Code
}

func TestRequestPasswordResetEmailsCode(t *testing.T) {
	f, users, otp, mailer := newOtpFixture(t)
	session := register(t, users, "nour@example.com")

	require.NoError(t, otp.RequestPasswordReset(f.ctx, "NOUR@example.com"))

	code := issuedCode(t, f, session.User)
	assert.Regexp(t, `^\d{6}$`, code)
	sent := mailer.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "nour@example.com", sent[0].To)
	assert.Contains(t, sent[0].HTML, code)

	// a second request replaces the first code
	require.NoError(t, otp.RequestPasswordReset(f.ctx, "nour@example.com"))
	latest := issuedCode(t, f, session.User)
	if latest != code {
		assert.ErrorIs(t, otp.VerifyOtp(f.ctx, "nour@example.com", code), ErrOtpInvalid)
	}
	assert.NoError(t, otp.VerifyOtp(f.ctx, "nour@example.com", latest))
}

func TestRequestPasswordResetForUnknownEmailIsSilent(t *testing.T) {
	f, _, otp, mailer := newOtpFixture(t)

	assert.NoError(t, otp.RequestPasswordReset(f.ctx, "ghost@example.com"))
	assert.Empty(t, mailer.messages())
}

func TestVerifyOtpRejectsWrongAndExpiredCodes(t *testing.T) {
	f, users, otp, _ := newOtpFixture(t)
	session := register(t, users, "nour@example.com")
	require.NoError(t, otp.RequestPasswordReset(f.ctx, "nour@example.com"))
	code := issuedCode(t, f, session.User)

	assert.ErrorIs(t, otp.VerifyOtp(f.ctx, "nour@example.com", "x"+code), ErrOtpInvalid)
	assert.ErrorIs(t, otp.VerifyOtp(f.ctx, "ghost@example.com", code), ErrOtpInvalid)

	otp.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	assert.ErrorIs(t, otp.VerifyOtp(f.ctx, "nour@example.com", code), ErrOtpExpired)
	assert.ErrorIs(t, otp.ResetPassword(f.ctx, "nour@example.com", code, "brand new pw"), ErrOtpExpired)
}

func TestOtpRevokedAfterRepeatedMisses(t *testing.T) {
	f, users, otp, _ := newOtpFixture(t)
	session := register(t, users, "nour@example.com")
	require.NoError(t, otp.RequestPasswordReset(f.ctx, "nour@example.com"))
	code := issuedCode(t, f, session.User)

	for i := 0; i < maxOtpAttempts-1; i++ {
		assert.ErrorIs(t, otp.VerifyOtp(f.ctx, "nour@example.com", "wrong"), ErrOtpInvalid)
	}
	token, err := f.repo.GetVerificationToken(f.ctx, session.User.ID, models.TokenPurposePasswordReset)
	require.NoError(t, err)
	assert.Equal(t, maxOtpAttempts-1, token.Attempts)
	require.NoError(t, otp.VerifyOtp(f.ctx, "nour@example.com", code))

	assert.ErrorIs(t, otp.ResetPassword(f.ctx, "nour@example.com", "wrong", "brand new pw"), ErrOtpInvalid)

	_, err = f.repo.GetVerificationToken(f.ctx, session.User.ID, models.TokenPurposePasswordReset)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, otp.ResetPassword(f.ctx, "nour@example.com", code, "brand new pw"), ErrOtpInvalid)
}

func TestResetPasswordConsumesCode(t *testing.T) {
	f, users, otp, _ := newOtpFixture(t)
	session := register(t, users, "nour@example.com")
	require.NoError(t, otp.RequestPasswordReset(f.ctx, "nour@example.com"))
	code := issuedCode(t, f, session.User)

	require.NoError(t, otp.ResetPassword(f.ctx, "nour@example.com", code, "brand new pw"))

	_, err := users.Login(f.ctx, LoginRequest{Email: "nour@example.com", Password: "brand new pw"})
	assert.NoError(t, err)
	_, err = users.Refresh(f.ctx, session.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	assert.ErrorIs(t, otp.ResetPassword(f.ctx, "nour@example.com", code, "again pw 123"), ErrOtpInvalid)
}
