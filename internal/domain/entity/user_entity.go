package entity

import (
	"time"
)

// Roles known to the directory. Role names live in a lookup table in
// Postgres; the domain only ever sees the resolved name.
const (
	RoleUser    = "user"
	RoleSponsor = "sponsor"
	RoleAdmin   = "admin"
)

// User is the aggregate root for the directory. Passwords are stored as
// bcrypt hashes in Password. Sponsor-only fields (Vetted, Qualifications,
// YearsOfExperience, Motivation) come from the companion sponsor_backgrounds
// row and are zero-valued for seekers and admins.
type User struct {
	ID        string
	Email     string
	Password  string
	Name      string
	AvatarURL string
	Role      string
	Vetted    bool

	Qualifications    []string
	YearsOfExperience int
	Motivation        string
	RecoveryGoals     []string

	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsSponsor reports whether the user holds the sponsor role.
func (u *User) IsSponsor() bool { return u.Role == RoleSponsor }

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// AvailableSponsor reports whether the user may be shown to seekers:
// sponsors only, and only once vetted.
func (u *User) AvailableSponsor() bool { return u.Role == RoleSponsor && u.Vetted }

// DisplayName returns the best human-readable name for the user.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
