// Package google binds the provider interfaces to the Google Calendar and
// Gmail APIs using delegated OAuth credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/studyhub-ai/assistant-api/internal/credstore"
)

// Scopes is the full delegated scope set requested during authorization.
var Scopes = []string{
	"https://www.googleapis.com/auth/calendar",
	"https://www.googleapis.com/auth/gmail.modify",
	"https://www.googleapis.com/auth/gmail.send",
	"https://www.googleapis.com/auth/gmail.compose",
}

const stateTTL = 10 * time.Minute

// ErrInvalidState rejects an OAuth callback whose state token is missing,
// tampered with, or expired.
var ErrInvalidState = errors.New("google: invalid oauth state")

// OAuthConfig drives the authorization-code flow. The state parameter is a
// short-lived signed JWT carrying the user id, so the callback can attribute
// tokens without server-side session storage.
type OAuthConfig struct {
	cfg         *oauth2.Config
	stateSecret []byte
}

// NewOAuthConfig creates the flow configuration.
func NewOAuthConfig(clientID, clientSecret, redirectURL, stateSecret string) *OAuthConfig {
	return &OAuthConfig{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       Scopes,
			Endpoint:     googleoauth.Endpoint,
		},
		stateSecret: []byte(stateSecret),
	}
}

// AuthURL returns the consent-screen URL for userID, with offline access so
// a refresh token is issued.
func (o *OAuthConfig) AuthURL(userID string) (string, error) {
	now := time.Now()
	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		ID:        uuid.New().String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
	}).SignedString(o.stateSecret)
	if err != nil {
		return "", fmt.Errorf("sign state: %w", err)
	}

	return o.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// VerifyState validates a callback state token and returns the user id it
// was issued for.
func (o *OAuthConfig) VerifyState(state string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(state, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return o.stateSecret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidState
	}
	return claims.Subject, nil
}

// Exchange redeems an authorization code for tokens.
func (o *OAuthConfig) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := o.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return token, nil
}

// TokenSource builds an auto-refreshing token source from stored
// credentials. Refreshed access tokens live only for the request; the
// long-lived refresh token in the store keeps working.
func (o *OAuthConfig) TokenSource(ctx context.Context, cred *credstore.Credential) oauth2.TokenSource {
	return o.cfg.TokenSource(ctx, &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		Expiry:       cred.Expiry,
	})
}
