package ports

import "context"

// FederatedIdentity is the identity asserted by an external provider token.
type FederatedIdentity struct {
	Subject string
	Email   string
	Name    string
}

// IdentityVerifier validates federated identity tokens (e.g. Google ID
// tokens) against their provider.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawToken string) (*FederatedIdentity, error)
}
