package core

// Challenge binds a client to the context it was issued in. It is transient:
// its only persistence is as ciphertext held by the client, and it is only
// ever materialized by decrypting a previously issued token.
type Challenge struct {
	ClientID  string         // identifier of the requesting client, generated when absent
	Timestamp int64          // Unix seconds at issuance
	IP        string         // requester address at issuance, may be empty
	Address   string         // identity being verified (email/phone/wallet), may be empty
	Data      map[string]any // caller-supplied context
}

// CreateChallenge carries the optional context for a new challenge.
type CreateChallenge struct {
	ClientID string
	IP       string
	Address  string
	Data     map[string]any
}

// AuthResponse is returned when a challenge is issued.
type AuthResponse struct {
	ClientID  string `json:"clientId"`
	IP        string `json:"ip,omitempty"`
	Challenge string `json:"challenge"`
}
