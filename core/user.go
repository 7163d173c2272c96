package core

import (
	"regexp"
	"time"
)

// Service identifies the channel a credential belongs to.
type Service string

const (
	ServiceEmail  Service = "EMAIL"
	ServicePhone  Service = "PHONE"
	ServiceWallet Service = "WALLET"
	ServiceGoogle Service = "GOOGLE"
)

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	walletPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	phonePattern  = regexp.MustCompile(`^\+\d{11,}$`)
)

// ServiceForAddress infers the credential service from the shape of the
// address: email, 0x-prefixed wallet, or E.164 phone number.
func ServiceForAddress(address string) (Service, bool) {
	switch {
	case emailPattern.MatchString(address):
		return ServiceEmail, true
	case walletPattern.MatchString(address):
		return ServiceWallet, true
	case phonePattern.MatchString(address):
		return ServicePhone, true
	}
	return "", false
}

// User is an account holder.
type User struct {
	ID     int64
	CUID   string
	Name   string
	Email  string
	Phone  string
	Wallet string
}

// Credential links a user to one authentication channel, e.g. the pair
// (EMAIL, "jane@example.com") or (WALLET, "0xabc...").
type Credential struct {
	ID          int64
	UserID      string // user CUID
	Service     Service
	Identifier  string
	LastLoginAt time.Time
}

// Session records one granted login.
type Session struct {
	SessionID    string
	ClientID     string
	CredentialID int64
	IP           string
	UserAgent    string
	CreatedAt    time.Time
}

// Role is a named grouping of permissions.
type Role struct {
	ID   string
	Name string
}

// Permission is one stored {action, subject} grant. Inverted rows subtract
// from what the user's other rows allow.
type Permission struct {
	Action     string         `json:"action"`
	Subject    string         `json:"subject"`
	Inverted   bool           `json:"inverted"`
	Conditions map[string]any `json:"conditions,omitempty"`
}

// Authority is a user's resolved roles and permissions at login time.
type Authority struct {
	Roles       []Role
	Permissions []Permission
}

// TokenData is the claims payload baked into an access token. Permissions
// are snapshotted at login: stale grants persist until the token expires or
// the user logs in again.
type TokenData struct {
	UserID      int64        `json:"id"`
	CUID        string       `json:"cuid"`
	Roles       []string     `json:"roles"`
	Permissions []Permission `json:"permissions"`
	SessionID   string       `json:"sessionId"`
}

// LoginResponse is returned on a granted session.
type LoginResponse struct {
	CurrentUser TokenData `json:"currentUser"`
	AccessToken string    `json:"accessToken"`
}

// RequestContext is the transport metadata attached to every auth request.
type RequestContext struct {
	IP        string
	UserAgent string
}
