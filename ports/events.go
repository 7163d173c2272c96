package ports

import (
	"context"

	"github.com/rumsan/gatekeeper/core"
)

// OTPCreated is emitted when a one-time code is generated. Delivery (mail,
// SMS) is handled by subscribers, not by the auth service.
type OTPCreated struct {
	Service  core.Service `json:"service"`
	Address  string       `json:"address"`
	Code     string       `json:"code"`
	ClientID string       `json:"clientId"`
}

// ChallengeCreated is emitted when a challenge token is issued.
type ChallengeCreated struct {
	ClientID string `json:"clientId"`
	Address  string `json:"address,omitempty"`
	IP       string `json:"ip,omitempty"`
}

// LoginSucceeded is emitted when a session is granted.
type LoginSucceeded struct {
	UserCUID  string       `json:"cuid"`
	Service   core.Service `json:"service"`
	SessionID string       `json:"sessionId"`
	IP        string       `json:"ip,omitempty"`
}

// EventPublisher notifies other services about authentication activity.
type EventPublisher interface {
	PublishOTPCreated(ctx context.Context, event OTPCreated) error
	PublishChallengeCreated(ctx context.Context, event ChallengeCreated) error
	PublishLoginSucceeded(ctx context.Context, event LoginSucceeded) error
}
