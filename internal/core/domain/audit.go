package domain

import "time"

// AuthEventType names an entry in the authentication audit trail.
type AuthEventType string

const (
	EventSignup            AuthEventType = "signup"
	EventContributorSignup AuthEventType = "contributor_signup"
	EventLoginSucceeded    AuthEventType = "login_succeeded"
	EventLoginFailed       AuthEventType = "login_failed"
	EventLoginThrottled    AuthEventType = "login_throttled"
	EventAdminToggled      AuthEventType = "admin_toggled"
	EventResetRequested    AuthEventType = "reset_requested"
	EventResetConfirmed    AuthEventType = "reset_confirmed"
	EventResetRejected     AuthEventType = "reset_rejected"
)

// AuthEvent is one audit record. Secrets never appear here.
type AuthEvent struct {
	Type       AuthEventType     `json:"type" bson:"type"`
	IdentityID string            `json:"identity_id,omitempty" bson:"identity_id,omitempty"`
	ActorID    string            `json:"actor_id,omitempty" bson:"actor_id,omitempty"`
	Email      string            `json:"email,omitempty" bson:"email,omitempty"`
	Detail     map[string]string `json:"detail,omitempty" bson:"detail,omitempty"`
	OccurredAt time.Time         `json:"occurred_at" bson:"occurred_at"`
}
