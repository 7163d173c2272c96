package ports

import (
	"context"

	"github.com/rumsan/gatekeeper/core"
)

// CredentialStore is the persistent user/role/permission store the login
// flow consults. Implementations own their consistency guarantees.
type CredentialStore interface {
	// GetCredential looks up a credential by service and identifier.
	// Returns core.ErrCredentialNotFound when no row exists.
	GetCredential(ctx context.Context, service core.Service, identifier string) (*core.Credential, error)

	// GetUser returns the non-deleted user with the given CUID, or
	// core.ErrUserNotFound.
	GetUser(ctx context.Context, cuid string) (*core.User, error)

	// GetUserByEmail returns the non-deleted user with the given email, or
	// core.ErrUserNotFound.
	GetUserByEmail(ctx context.Context, email string) (*core.User, error)

	// GetAuthority resolves the user's roles and the permissions attached
	// to them.
	GetAuthority(ctx context.Context, cuid string) (*core.Authority, error)

	// CreateSession persists a granted login. SessionID must be set.
	CreateSession(ctx context.Context, session core.Session) error

	// UpdateLastLogin stamps the credential's last successful login.
	UpdateLastLogin(ctx context.Context, credentialID int64) error

	// UpsertCredential creates the credential if absent and returns it.
	UpsertCredential(ctx context.Context, userID string, service core.Service, identifier string) (*core.Credential, error)
}
