package core

import "errors"

var (
	// ErrSecretMissing is returned when no application secret is configured.
	// This is a deployment error, not a request error.
	ErrSecretMissing = errors.New("secret is missing")

	// ErrDecryptionFailed is returned when a challenge token cannot be
	// decoded or its authentication tag does not verify. Tampered, corrupt
	// and structurally malformed tokens all collapse into this error.
	ErrDecryptionFailed = errors.New("challenge decryption failed")

	// ErrChallengeExpired is returned when a challenge is older than the
	// caller's validity window.
	ErrChallengeExpired = errors.New("challenge has expired")

	// ErrIdentityMismatch is returned when a second factor does not match:
	// wrong one-time code, signature recovering a different address, or a
	// requester IP that differs from the one bound to the challenge.
	ErrIdentityMismatch = errors.New("identity verification failed")

	// ErrInvalidToken is returned when an access token is invalid or expired.
	ErrInvalidToken = errors.New("invalid token")

	// ErrCredentialNotFound is returned when no credential exists for the
	// requested service and identifier.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrUserNotFound is returned when a credential points at a missing or
	// deleted user.
	ErrUserNotFound = errors.New("user not found")

	// ErrNotFound is returned by stores and caches for missing keys.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when creating a row whose key is taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrStoreFailed is returned when a store operation fails.
	ErrStoreFailed = errors.New("store operation failed")

	// ErrSettingReadOnly is returned when updating a read-only setting.
	ErrSettingReadOnly = errors.New("setting is read-only")
)
