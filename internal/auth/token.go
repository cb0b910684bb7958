package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token is the raw grant returned by the hosted auth endpoint.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// TokenClient talks to the hosted auth endpoint. Implementations must map
// rejected credentials to common.ErrUnauthorized so callers can branch with
// errors.Is.
type TokenClient interface {
	PasswordGrant(ctx context.Context, email, password string) (*Token, error)
	SignUp(ctx context.Context, email, password string) (*Token, error)
	Refresh(ctx context.Context, refreshToken string) (*Token, error)
	SignOut(ctx context.Context, accessToken string) error
}

// sessionFromToken decodes the access token's claims into an Identity and
// Session. The signature is not verified locally: the backend validates every
// request itself, the client only needs the subject, email and expiry.
func sessionFromToken(tok *Token, now time.Time) (*Identity, *Session, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok.AccessToken, claims); err != nil {
		return nil, nil, fmt.Errorf("decode access token: %w", err)
	}

	identity := &Identity{}
	if sub, ok := claims["sub"].(string); ok {
		identity.ID = sub
	}
	if email, ok := claims["email"].(string); ok {
		identity.Email = email
	}
	if identity.ID == "" && identity.Email == "" {
		return nil, nil, fmt.Errorf("access token carries no identity")
	}

	session := &Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    now.Add(time.Duration(tok.ExpiresIn) * time.Second),
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		session.ExpiresAt = exp.Time
	}

	return identity, session, nil
}
