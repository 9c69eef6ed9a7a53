package service

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuthEventType enumerates the authentication events this service publishes.
type AuthEventType string

const (
	// AuthEventRegistered is published after a successful account registration.
	AuthEventRegistered AuthEventType = "auth.registered"
	// AuthEventLoginSucceeded is published after a successful credential login.
	AuthEventLoginSucceeded AuthEventType = "auth.login_succeeded"
	// AuthEventRefreshTokenReuseDetected is the security signal emitted when
	// an already-invalidated refresh token is presented again. Downstream
	// consumers treat it as a possible token theft.
	AuthEventRefreshTokenReuseDetected AuthEventType = "auth.refresh_token_reuse_detected"
)

// AuthEvent is the payload published to the event bus.
type AuthEvent struct {
	RequestID  string        `json:"request_id,omitempty"` // For distributed tracing.
	Type       AuthEventType `json:"type"`
	UserID     uuid.UUID     `json:"user_id"`
	Email      string        `json:"email,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
	// RevokedSessions carries the number of sessions invalidated by a reuse
	// event. Zero for the other event types.
	RevokedSessions int `json:"revoked_sessions,omitempty"`
}

// EventPublisher defines the interface for publishing auth events to a message queue.
type EventPublisher interface {
	// PublishAuthEvent publishes an authentication event for async processing.
	PublishAuthEvent(ctx context.Context, event *AuthEvent) error

	// Close releases any resources held by the publisher.
	Close() error
}
