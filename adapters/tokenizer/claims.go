package tokenizer

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/rumsan/gatekeeper/core"
)

// AccessClaims are the registered claims plus the login-time snapshot of the
// user's identity and authority.
type AccessClaims struct {
	jwt.RegisteredClaims
	UserID      int64             `json:"id"`
	CUID        string            `json:"cuid"`
	Roles       []string          `json:"roles"`
	Permissions []core.Permission `json:"permissions"`
	SessionID   string            `json:"sessionId"`
}
