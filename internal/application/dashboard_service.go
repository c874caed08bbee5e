package application

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/sobrhq/sobr-server/internal/domain/entity"
	"github.com/sobrhq/sobr-server/internal/domain/repository"
	"github.com/sobrhq/sobr-server/pkg/helpers"
)

const dashboardCacheTTL = 15 * time.Second

// DashboardMetrics is a role-shaped counter set. Only the fields for the
// requested role are populated; omitempty keeps the payload per-role like
// the original API.
type DashboardMetrics struct {
	Role string `json:"role"`

	// sponsor and user
	ConnectionsAccepted *int `json:"connectionsAccepted,omitempty"`
	ConnectionsPending  *int `json:"connectionsPending,omitempty"`
	UnreadMessages      *int `json:"unreadMessages,omitempty"`

	// user only
	AvailableSponsors *int `json:"availableSponsors,omitempty"`

	// admin only
	TotalUsers                 *int `json:"totalUsers,omitempty"`
	TotalSponsors              *int `json:"totalSponsors,omitempty"`
	MessagesLast24h            *int `json:"messagesLast24h,omitempty"`
	SponsorsPendingApproval    *int `json:"sponsorsPendingApproval,omitempty"`
	UnreadMessagesFromSponsors *int `json:"unreadMessagesFromSponsors,omitempty"`
}

// DashboardService aggregates counters for the role-specific dashboard.
// Results are cached briefly in Redis keyed by user and role to keep the
// dashboard cheap to poll.
type DashboardService struct {
	Users       repository.UserRepository
	Sponsors    repository.SponsorRepository
	Connections repository.ConnectionRepository
	Messages    repository.MessageRepository
	Cache       *redis.Client
	Logger      *logrus.Logger
}

func NewDashboardService(users repository.UserRepository, sponsors repository.SponsorRepository, conns repository.ConnectionRepository, msgs repository.MessageRepository, cache *redis.Client, logger *logrus.Logger) *DashboardService {
	return &DashboardService{
		Users:       users,
		Sponsors:    sponsors,
		Connections: conns,
		Messages:    msgs,
		Cache:       cache,
		Logger:      logger,
	}
}

// Metrics returns the counter set for the user's role.
func (s *DashboardService) Metrics(ctx context.Context, userID, role string) (*DashboardMetrics, error) {
	if role == "" {
		role = entity.RoleUser
	}
	cacheKey := "dashboard:metrics:" + role + ":" + userID
	if cached := s.fromCache(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	var (
		m   *DashboardMetrics
		err error
	)
	switch role {
	case entity.RoleSponsor:
		m, err = s.sponsorMetrics(ctx, userID)
	case entity.RoleAdmin:
		m, err = s.adminMetrics(ctx)
	default:
		m, err = s.userMetrics(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, cacheKey, m)
	return m, nil
}

func (s *DashboardService) sponsorMetrics(ctx context.Context, sponsorID string) (*DashboardMetrics, error) {
	accepted, err := s.Connections.CountForSponsor(ctx, sponsorID, entity.ConnectionAccepted)
	if err != nil {
		return nil, err
	}
	pending, err := s.Connections.CountForSponsor(ctx, sponsorID, entity.ConnectionPending)
	if err != nil {
		return nil, err
	}
	unread, err := s.Messages.CountUnreadForUser(ctx, sponsorID)
	if err != nil {
		return nil, err
	}
	return &DashboardMetrics{
		Role:                entity.RoleSponsor,
		ConnectionsAccepted: &accepted,
		ConnectionsPending:  &pending,
		UnreadMessages:      &unread,
	}, nil
}

func (s *DashboardService) adminMetrics(ctx context.Context) (*DashboardMetrics, error) {
	total, err := s.Users.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	sponsors, err := s.Users.CountByRole(ctx, entity.RoleSponsor)
	if err != nil {
		return nil, err
	}
	msgs24h, err := s.Messages.CountSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}
	pendingApproval, err := s.Sponsors.CountPending(ctx)
	if err != nil {
		return nil, err
	}
	unreadFromSponsors, err := s.Messages.CountUnreadFromSponsors(ctx)
	if err != nil {
		return nil, err
	}
	return &DashboardMetrics{
		Role:                       entity.RoleAdmin,
		TotalUsers:                 &total,
		TotalSponsors:              &sponsors,
		MessagesLast24h:            &msgs24h,
		SponsorsPendingApproval:    &pendingApproval,
		UnreadMessagesFromSponsors: &unreadFromSponsors,
	}, nil
}

func (s *DashboardService) userMetrics(ctx context.Context, userID string) (*DashboardMetrics, error) {
	available, err := s.Users.CountAvailableSponsors(ctx)
	if err != nil {
		return nil, err
	}
	unread, err := s.Messages.CountUnreadForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	accepted, err := s.Connections.CountForSeeker(ctx, userID, entity.ConnectionAccepted)
	if err != nil {
		return nil, err
	}
	pending, err := s.Connections.CountForSeeker(ctx, userID, entity.ConnectionPending)
	if err != nil {
		return nil, err
	}
	return &DashboardMetrics{
		Role:                entity.RoleUser,
		AvailableSponsors:   &available,
		UnreadMessages:      &unread,
		ConnectionsAccepted: &accepted,
		ConnectionsPending:  &pending,
	}, nil
}

func (s *DashboardService) fromCache(ctx context.Context, key string) *DashboardMetrics {
	if s.Cache == nil {
		return nil
	}
	var m DashboardMetrics
	ok, err := helpers.RedisGetJSON(ctx, s.Cache, key, &m)
	if err != nil || !ok {
		return nil
	}
	return &m
}

func (s *DashboardService) toCache(ctx context.Context, key string, m *DashboardMetrics) {
	if s.Cache == nil {
		return
	}
	if err := helpers.RedisSetJSON(ctx, s.Cache, key, m, dashboardCacheTTL); err != nil && s.Logger != nil {
		s.Logger.WithError(err).Debug("dashboard cache write failed")
	}
}
