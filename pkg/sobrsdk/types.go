package sobrsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// envelope mirrors the server's uniform response wrapper.
type envelope struct {
	Status    int             `json:"status"`
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     any             `json:"error,omitempty"`
	RequestID string          `json:"request_id"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sobr api: %d %s", e.Status, e.Message)
}

// IsAuthError reports whether err is an authentication or authorization
// denial. Denials are never served from the offline cache.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == 401 || apiErr.Status == 403
	}
	return false
}

type User struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	FullName          string    `json:"full_name"`
	AvatarURL         string    `json:"avatar_url"`
	Role              string    `json:"role"`
	Verified          bool      `json:"verified"`
	Qualifications    []string  `json:"qualifications"`
	YearsOfExperience int       `json:"years_of_experience"`
	Motivation        string    `json:"motivation"`
	RecoveryGoals     []string  `json:"recovery_goals"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type Connection struct {
	UserID    string    `json:"userId"`
	SponsorID string    `json:"sponsorId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	ID           string    `json:"id"`
	FromUserID   string    `json:"from_user_id"`
	ToUserID     string    `json:"to_user_id"`
	Body         string    `json:"body"`
	SentAt       time.Time `json:"sent_at"`
	Read         bool      `json:"read"`
	FromUserName string    `json:"from_user_name"`
	ToUserName   string    `json:"to_user_name"`
}

type Conversation struct {
	CounterpartID   string    `json:"counterpartId"`
	CounterpartName string    `json:"counterpartName"`
	CounterpartRole string    `json:"counterpartRole"`
	Messages        []Message `json:"messages"`
	LastMessage     string    `json:"lastMessage"`
	LastMessageTime time.Time `json:"lastMessageTime"`
	IsRead          bool      `json:"isRead"`
	Placeholder     string    `json:"placeholder,omitempty"`
}

type ActivityItem struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

type LoginResult struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

type DashboardMetrics struct {
	Role string `json:"role"`

	ConnectionsAccepted *int `json:"connectionsAccepted,omitempty"`
	ConnectionsPending  *int `json:"connectionsPending,omitempty"`
	UnreadMessages      *int `json:"unreadMessages,omitempty"`

	AvailableSponsors *int `json:"availableSponsors,omitempty"`

	TotalUsers                 *int `json:"totalUsers,omitempty"`
	TotalSponsors              *int `json:"totalSponsors,omitempty"`
	MessagesLast24h            *int `json:"messagesLast24h,omitempty"`
	SponsorsPendingApproval    *int `json:"sponsorsPendingApproval,omitempty"`
	UnreadMessagesFromSponsors *int `json:"unreadMessagesFromSponsors,omitempty"`
}

type BulkApproveResult struct {
	Approved int      `json:"approved"`
	Failed   []string `json:"failed"`
}
