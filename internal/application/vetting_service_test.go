package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sobrhq/sobr-server/internal/domain/entity"
)

func vettingFixture(t *testing.T, declineDemotes bool) (*VettingService, *memUserRepo, *memAuditRepo) {
	t.Helper()
	users := newMemUserRepo(
		&entity.User{ID: "sponsor-1", Email: "bob@example.com", Name: "Bob Martin", Role: entity.RoleSponsor},
		&entity.User{ID: "sponsor-2", Email: "dana@example.com", Name: "Dana", Role: entity.RoleSponsor},
		&entity.User{ID: "sponsor-3", Email: "vetted@example.com", Name: "Vetted", Role: entity.RoleSponsor, Vetted: true},
		&entity.User{ID: "seeker-1", Email: "amy@example.com", Name: "Amy", Role: entity.RoleUser},
	)
	audit := &memAuditRepo{}
	svc := NewVettingService(users, &memSponsorRepo{users: users}, audit, nil, nil, declineDemotes)
	return svc, users, audit
}

func TestVettingListPending(t *testing.T) {
	t.Parallel()
	svc, _, _ := vettingFixture(t, false)

	pending, err := svc.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 2, "only unvetted sponsors are pending")
	for _, u := range pending {
		require.Equal(t, entity.RoleSponsor, u.Role)
		require.False(t, u.Vetted)
	}
}

func TestVettingApprove(t *testing.T) {
	t.Parallel()
	svc, users, audit := vettingFixture(t, false)
	ctx := context.Background()

	require.NoError(t, svc.Approve(ctx, "admin-1", "sponsor-1"))

	u, err := users.GetByID(ctx, "sponsor-1")
	require.NoError(t, err)
	require.True(t, u.Vetted)

	require.Len(t, audit.entries, 1)
	require.Equal(t, entity.AuditSponsorApproved, audit.entries[0].Action)
	require.Equal(t, "admin-1", audit.entries[0].ActorUserID)
	require.Equal(t, "sponsor-1", audit.entries[0].Metadata["sponsorId"])

	pending, err := svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestVettingApproveUnknownSponsor(t *testing.T) {
	t.Parallel()
	svc, _, audit := vettingFixture(t, false)

	require.ErrorIs(t, svc.Approve(context.Background(), "admin-1", "nope"), ErrNotFound)
	require.Empty(t, audit.entries)
}

func TestVettingDeclineKeepsRole(t *testing.T) {
	t.Parallel()
	svc, users, audit := vettingFixture(t, false)
	ctx := context.Background()

	require.NoError(t, svc.Decline(ctx, "admin-1", "sponsor-3"))

	u, err := users.GetByID(ctx, "sponsor-3")
	require.NoError(t, err)
	require.False(t, u.Vetted)
	require.Equal(t, entity.RoleSponsor, u.Role)
	require.Equal(t, []string{entity.AuditSponsorDeclined}, audit.actions())
}

func TestVettingDeclineDemotes(t *testing.T) {
	t.Parallel()
	svc, users, _ := vettingFixture(t, true)
	ctx := context.Background()

	require.NoError(t, svc.Decline(ctx, "admin-1", "sponsor-1"))

	u, err := users.GetByID(ctx, "sponsor-1")
	require.NoError(t, err)
	require.Equal(t, entity.RoleUser, u.Role)
	require.False(t, u.Vetted)
}

func TestVettingBulkApproveContinuesPastFailures(t *testing.T) {
	t.Parallel()
	svc, users, _ := vettingFixture(t, false)
	ctx := context.Background()

	failed := svc.BulkApprove(ctx, "admin-1", []string{"sponsor-1", "nope", "sponsor-2"})
	require.Equal(t, []string{"nope"}, failed)

	for _, id := range []string{"sponsor-1", "sponsor-2"} {
		u, err := users.GetByID(ctx, id)
		require.NoError(t, err)
		require.True(t, u.Vetted)
	}
}

func TestVettingSearch(t *testing.T) {
	t.Parallel()
	svc, _, _ := vettingFixture(t, false)
	ctx := context.Background()

	byName, err := svc.Search(ctx, "MARTIN")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	require.Equal(t, "sponsor-1", byName[0].ID)

	byEmail, err := svc.Search(ctx, "dana@")
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	require.Equal(t, "sponsor-2", byEmail[0].ID)

	all, err := svc.Search(ctx, "  ")
	require.NoError(t, err)
	require.Len(t, all, 2, "blank query returns every pending sponsor")

	none, err := svc.Search(ctx, "zzz")
	require.NoError(t, err)
	require.Empty(t, none)
}
