// Package oidc validates federated identity tokens against their issuer.
package oidc

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/rumsan/gatekeeper/core"
	"github.com/rumsan/gatekeeper/ports"
)

// GoogleIssuer is the OpenID issuer for Google accounts.
const GoogleIssuer = "https://accounts.google.com"

// GoogleVerifier implements the IdentityVerifier interface against Google's
// OpenID discovery document.
type GoogleVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewGoogleVerifier discovers Google's signing keys and builds a verifier
// for ID tokens issued to clientID.
func NewGoogleVerifier(ctx context.Context, clientID string) (*GoogleVerifier, error) {
	provider, err := oidc.NewProvider(ctx, GoogleIssuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	return &GoogleVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// Verify validates a raw ID token and returns the asserted identity.
func (v *GoogleVerifier) Verify(ctx context.Context, rawToken string) (*ports.FederatedIdentity, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrIdentityMismatch, err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}
	if !claims.EmailVerified {
		return nil, core.ErrIdentityMismatch
	}

	return &ports.FederatedIdentity{
		Subject: idToken.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
	}, nil
}

var _ ports.IdentityVerifier = (*GoogleVerifier)(nil)
