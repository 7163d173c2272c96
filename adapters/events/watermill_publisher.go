// Package events publishes authentication activity to a message bus so that
// delivery services (mailers, SMS gateways) and audit consumers can react
// without being called inline.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/rumsan/gatekeeper/ports"
)

// Topics for authentication events.
const (
	TopicOTPCreated       = "auth.otp.created"
	TopicChallengeCreated = "auth.challenge.created"
	TopicLoginSucceeded   = "auth.login.succeeded"
)

// WatermillPublisher implements the EventPublisher interface using Watermill.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishOTPCreated publishes a one-time-code creation event.
func (p *WatermillPublisher) PublishOTPCreated(ctx context.Context, event ports.OTPCreated) error {
	return p.publish(TopicOTPCreated, event)
}

// PublishChallengeCreated publishes a challenge issuance event.
func (p *WatermillPublisher) PublishChallengeCreated(ctx context.Context, event ports.ChallengeCreated) error {
	return p.publish(TopicChallengeCreated, event)
}

// PublishLoginSucceeded publishes a granted-session event.
func (p *WatermillPublisher) PublishLoginSucceeded(ctx context.Context, event ports.LoginSucceeded) error {
	return p.publish(TopicLoginSucceeded, event)
}

func (p *WatermillPublisher) publish(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
