package auth

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"
)

// GoogleIdentity is what a verified Google ID token tells us about the user.
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	GivenName     string
	FamilyName    string
}

type GoogleVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*GoogleIdentity, error)
}

// IDTokenVerifier validates tokens against Google's published keys and
// accepts any of the configured OAuth client ids as audience.
type IDTokenVerifier struct {
	clientIDs []string
	validate  func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewIDTokenVerifier(clientIDs []string) *IDTokenVerifier {
	return &IDTokenVerifier{clientIDs: clientIDs, validate: idtoken.Validate}
}

func (v *IDTokenVerifier) Verify(ctx context.Context, rawIDToken string) (*GoogleIdentity, error) {
	if len(v.clientIDs) == 0 {
		return nil, errors.New("google sign-in is not configured")
	}

	var lastErr error
	for _, aud := range v.clientIDs {
		payload, err := v.validate(ctx, rawIDToken, aud)
		if err != nil {
			lastErr = err
			continue
		}
		return identityFromPayload(payload), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidToken, lastErr)
}

func identityFromPayload(p *idtoken.Payload) *GoogleIdentity {
	str := func(key string) string {
		s, _ := p.Claims[key].(string)
		return s
	}
	verified, _ := p.Claims["email_verified"].(bool)

	return &GoogleIdentity{
		Subject:       p.Subject,
		Email:         str("email"),
		EmailVerified: verified,
		GivenName:     str("given_name"),
		FamilyName:    str("family_name"),
	}
}
