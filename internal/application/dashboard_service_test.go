package application

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sobrhq/sobr-server/internal/domain/entity"
)

func dashboardFixture(t *testing.T) *DashboardService {
	t.Helper()
	users := newMemUserRepo(
		&entity.User{ID: "admin-1", Email: "support@sobr.local", Role: entity.RoleAdmin},
		&entity.User{ID: "seeker-1", Email: "amy@example.com", Name: "Amy", Role: entity.RoleUser},
		&entity.User{ID: "sponsor-1", Email: "bob@example.com", Role: entity.RoleSponsor, Vetted: true},
		&entity.User{ID: "sponsor-2", Email: "dana@example.com", Role: entity.RoleSponsor},
	)
	audit := &memAuditRepo{}
	conns := newMemConnRepo(audit)
	msgs := newMemMessageRepo(audit, users)
	ctx := context.Background()

	require.NoError(t, conns.CreatePending(ctx, &entity.Connection{SeekerID: "seeker-1", SponsorID: "sponsor-1"}, nil))
	require.NoError(t, conns.Accept(ctx, "seeker-1", "sponsor-1", nil))
	require.NoError(t, conns.CreatePending(ctx, &entity.Connection{SeekerID: "seeker-1", SponsorID: "sponsor-2"}, nil))

	_, err := msgs.Insert(ctx, &entity.Message{FromUserID: "seeker-1", ToUserID: "sponsor-1", Body: "hi"}, nil)
	require.NoError(t, err)
	_, err = msgs.Insert(ctx, &entity.Message{FromUserID: "sponsor-1", ToUserID: "seeker-1", Body: "hello"}, nil)
	require.NoError(t, err)

	return NewDashboardService(users, &memSponsorRepo{users: users}, conns, msgs, nil, nil)
}

func intp(t *testing.T, p *int) int {
	t.Helper()
	require.NotNil(t, p)
	return *p
}

func TestDashboardSponsorMetrics(t *testing.T) {
	t.Parallel()
	svc := dashboardFixture(t)

	m, err := svc.Metrics(context.Background(), "sponsor-1", entity.RoleSponsor)
	require.NoError(t, err)
	require.Equal(t, entity.RoleSponsor, m.Role)
	require.Equal(t, 1, intp(t, m.ConnectionsAccepted))
	require.Equal(t, 0, intp(t, m.ConnectionsPending))
	require.Equal(t, 1, intp(t, m.UnreadMessages))
	require.Nil(t, m.TotalUsers)
	require.Nil(t, m.AvailableSponsors)
}

func TestDashboardUserMetrics(t *testing.T) {
	t.Parallel()
	svc := dashboardFixture(t)

	m, err := svc.Metrics(context.Background(), "seeker-1", entity.RoleUser)
	require.NoError(t, err)
	require.Equal(t, entity.RoleUser, m.Role)
	require.Equal(t, 1, intp(t, m.AvailableSponsors), "only vetted sponsors count")
	require.Equal(t, 1, intp(t, m.UnreadMessages))
	require.Equal(t, 1, intp(t, m.ConnectionsAccepted))
	require.Equal(t, 1, intp(t, m.ConnectionsPending))
	require.Nil(t, m.SponsorsPendingApproval)
}

func TestDashboardAdminMetrics(t *testing.T) {
	t.Parallel()
	svc := dashboardFixture(t)

	m, err := svc.Metrics(context.Background(), "admin-1", entity.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, entity.RoleAdmin, m.Role)
	require.Equal(t, 4, intp(t, m.TotalUsers))
	require.Equal(t, 2, intp(t, m.TotalSponsors))
	require.Equal(t, 1, intp(t, m.SponsorsPendingApproval))
	require.Equal(t, 1, intp(t, m.UnreadMessagesFromSponsors))
	require.Nil(t, m.ConnectionsAccepted)
}

func TestDashboardBlankRoleDefaultsToUser(t *testing.T) {
	t.Parallel()
	svc := dashboardFixture(t)

	m, err := svc.Metrics(context.Background(), "seeker-1", "")
	require.NoError(t, err)
	require.Equal(t, entity.RoleUser, m.Role)
}

func TestDashboardJSONShapePerRole(t *testing.T) {
	t.Parallel()
	svc := dashboardFixture(t)
	ctx := context.Background()

	sponsor, err := svc.Metrics(ctx, "sponsor-1", entity.RoleSponsor)
	require.NoError(t, err)
	raw, err := json.Marshal(sponsor)
	require.NoError(t, err)
	var keys map[string]any
	require.NoError(t, json.Unmarshal(raw, &keys))
	require.ElementsMatch(t,
		[]string{"role", "connectionsAccepted", "connectionsPending", "unreadMessages"},
		mapKeys(keys))

	admin, err := svc.Metrics(ctx, "admin-1", entity.RoleAdmin)
	require.NoError(t, err)
	raw, err = json.Marshal(admin)
	require.NoError(t, err)
	keys = map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &keys))
	require.ElementsMatch(t,
		[]string{"role", "totalUsers", "totalSponsors", "messagesLast24h", "sponsorsPendingApproval", "unreadMessagesFromSponsors"},
		mapKeys(keys))
}

func mapKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
