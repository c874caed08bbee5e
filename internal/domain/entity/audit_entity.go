package entity

import "time"

// Audit actions recorded by the application layer. The activity feed is a
// projection over these rows.
const (
	AuditConnectionRequested = "connection.requested"
	AuditConnectionAccepted  = "connection.accepted"
	AuditConnectionDeclined  = "connection.declined"
	AuditMessageSent         = "message.sent"
	AuditMessagesRead        = "messages.read"
	AuditSponsorApproved     = "sponsor.approved"
	AuditSponsorDeclined     = "sponsor.declined"
	AuditUserRegistered      = "user.registered"
	AuditProfileUpdated      = "profile.updated"
	AuditPasswordChanged     = "password.changed"
)

// AuditEntry is one append-only audit log row. ActorUserID may be empty for
// system events. Metadata is a free-form bag keyed by the action.
type AuditEntry struct {
	ID          string
	ActorUserID string
	Action      string
	TargetType  string
	TargetID    string
	Metadata    map[string]any
	CreatedAt   time.Time
}

// ActivityItem is one human-readable line of the recent-activity feed.
type ActivityItem struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}
