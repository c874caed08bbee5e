package entity

import "time"

// Connection statuses. A connection is identified by the (SeekerID,
// SponsorID) pair; there is at most one row per pair.
const (
	ConnectionPending  = "pending"
	ConnectionAccepted = "accepted"
	ConnectionDeclined = "declined"
)

// Connection is a seeker's request to pair with a sponsor, created pending
// and resolved by the sponsor. Declining removes the row so the seeker may
// ask again later.
type Connection struct {
	SeekerID  string
	SponsorID string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
