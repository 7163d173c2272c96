// Package challenge issues and verifies the encrypted, time-bound tokens
// that tie a multi-step login flow together. A challenge binds a client to
// the address being verified, the requester's IP and arbitrary caller data;
// it travels as an opaque authenticated ciphertext and is reconstructed only
// by verification against the server-held secret.
package challenge

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/rumsan/gatekeeper/core"
)

const (
	// DefaultMaxAge is the validity window, in seconds, for general
	// challenge verification.
	DefaultMaxAge = 300

	// ClientTokenLifetime is the longer window, in seconds, granted for the
	// second-factor step of the login flow.
	ClientTokenLifetime = 600
)

// Create issues a new challenge bound to the given context and returns it as
// an opaque encrypted token. A missing client id is replaced with a fresh
// one. Fails with core.ErrSecretMissing when no secret is configured.
func Create(secret string, params core.CreateChallenge) (core.AuthResponse, error) {
	if secret == "" {
		return core.AuthResponse{}, core.ErrSecretMissing
	}

	clientID := params.ClientID
	if clientID == "" {
		clientID = uuid.New().String()
	}

	payload := core.Challenge{
		ClientID:  clientID,
		Timestamp: time.Now().Unix(),
		IP:        params.IP,
		Address:   params.Address,
		Data:      params.Data,
	}
	if payload.Data == nil {
		payload.Data = map[string]any{}
	}

	raw, err := marshalPayload(payload)
	if err != nil {
		return core.AuthResponse{}, err
	}

	token, err := encrypt(raw, secret)
	if err != nil {
		return core.AuthResponse{}, err
	}

	return core.AuthResponse{
		ClientID:  clientID,
		IP:        params.IP,
		Challenge: token,
	}, nil
}

// Verify decrypts a challenge token and checks it against the validity
// window, in seconds. See VerifyAt.
func Verify(secret, token string, maxAge int64) (core.Challenge, error) {
	return VerifyAt(secret, token, maxAge, time.Now())
}

// VerifyAt is Verify against an explicit clock. It fails with
// core.ErrSecretMissing, core.ErrDecryptionFailed or core.ErrChallengeExpired;
// all three are terminal and require the caller to re-issue a fresh
// challenge.
func VerifyAt(secret, token string, maxAge int64, now time.Time) (core.Challenge, error) {
	if secret == "" {
		return core.Challenge{}, core.ErrSecretMissing
	}

	raw, err := decrypt(token, secret)
	if err != nil {
		return core.Challenge{}, err
	}

	payload, err := unmarshalPayload(raw)
	if err != nil {
		return core.Challenge{}, core.ErrDecryptionFailed
	}

	if payload.Timestamp+maxAge < now.Unix() {
		return core.Challenge{}, core.ErrChallengeExpired
	}

	return payload, nil
}

// The wire payload is an ordered 5-tuple, not an object:
// [clientId, timestamp, ip, address, data] with null for absent strings.

func marshalPayload(ch core.Challenge) ([]byte, error) {
	return json.Marshal([]any{
		ch.ClientID,
		ch.Timestamp,
		nullable(ch.IP),
		nullable(ch.Address),
		ch.Data,
	})
}

func unmarshalPayload(raw []byte) (core.Challenge, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return core.Challenge{}, err
	}
	if len(parts) != 5 {
		return core.Challenge{}, core.ErrDecryptionFailed
	}

	var ch core.Challenge
	if err := json.Unmarshal(parts[0], &ch.ClientID); err != nil {
		return core.Challenge{}, err
	}
	if err := json.Unmarshal(parts[1], &ch.Timestamp); err != nil {
		return core.Challenge{}, err
	}
	ch.IP = optionalString(parts[2])
	ch.Address = optionalString(parts[3])
	if err := json.Unmarshal(parts[4], &ch.Data); err != nil {
		return core.Challenge{}, err
	}

	return ch, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func optionalString(raw json.RawMessage) string {
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil || s == nil {
		return ""
	}
	return *s
}
