package google

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/studyhub-ai/assistant-api/internal/credstore"
	"github.com/studyhub-ai/assistant-api/internal/provider"
)

// Resolver implements provider.Resolver on top of the credential store and
// the OAuth configuration.
type Resolver struct {
	creds *credstore.Store
	oauth *OAuthConfig
}

// NewResolver creates a resolver.
func NewResolver(creds *credstore.Store, oauth *OAuthConfig) *Resolver {
	return &Resolver{creds: creds, oauth: oauth}
}

// Calendar returns an authorized calendar handle for userID.
func (r *Resolver) Calendar(ctx context.Context, userID string) (provider.Calendar, error) {
	ts, err := r.tokenSource(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NewCalendarClient(ctx, ts)
}

// Mail returns an authorized mail handle for userID.
func (r *Resolver) Mail(ctx context.Context, userID string) (provider.Mail, error) {
	ts, err := r.tokenSource(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NewMailClient(ctx, ts)
}

func (r *Resolver) tokenSource(ctx context.Context, userID string) (oauth2.TokenSource, error) {
	cred, err := r.creds.Get(ctx, userID)
	if errors.Is(err, credstore.ErrNotFound) {
		return nil, fmt.Errorf("user %q: %w", userID, provider.ErrAuthRequired)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve credentials: %w", err)
	}
	return r.oauth.TokenSource(ctx, cred), nil
}
