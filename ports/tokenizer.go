package ports

import "github.com/rumsan/gatekeeper/core"

// Tokenizer mints and validates signed access credentials. The token embeds
// the user's roles and permissions as resolved at login time.
type Tokenizer interface {
	Sign(data core.TokenData) (string, error)

	// Verify parses and validates a token, returning the embedded claims.
	// Returns core.ErrInvalidToken for expired, tampered or malformed
	// tokens.
	Verify(token string) (*core.TokenData, error)
}
