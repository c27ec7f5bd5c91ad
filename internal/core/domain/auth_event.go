package domain

import "time"

// AuthEventKind names the security-relevant action being recorded.
type AuthEventKind string

const (
	EventLogin          AuthEventKind = "login"
	EventRegister       AuthEventKind = "register"
	EventPasswordChange AuthEventKind = "password_change"
	EventProfileUpdate  AuthEventKind = "profile_update"
	EventTokenRejected  AuthEventKind = "token_rejected"
	EventAccessDenied   AuthEventKind = "access_denied"
	EventBootstrap      AuthEventKind = "bootstrap"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AuthEvent is one entry of the authentication audit trail.
type AuthEvent struct {
	ID         string        `json:"id" bson:"event_id"`
	Kind       AuthEventKind `json:"kind" bson:"kind"`
	Username   string        `json:"username,omitempty" bson:"username,omitempty"`
	Outcome    string        `json:"outcome" bson:"outcome"`
	Reason     string        `json:"reason,omitempty" bson:"reason,omitempty"`
	RemoteIP   string        `json:"remote_ip,omitempty" bson:"remote_ip,omitempty"`
	OccurredAt time.Time     `json:"occurred_at" bson:"occurred_at"`
}
