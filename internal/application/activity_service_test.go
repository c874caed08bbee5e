package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sobrhq/sobr-server/internal/domain/entity"
)

func activityFixture(t *testing.T) (*ActivityService, *memAuditRepo) {
	t.Helper()
	users := newMemUserRepo(
		&entity.User{ID: "seeker-1", Email: "amy@example.com", Name: "Amy", Role: entity.RoleUser},
		&entity.User{ID: "sponsor-1", Email: "bob@example.com", Name: "Bob", Role: entity.RoleSponsor, Vetted: true},
		&entity.User{ID: "sponsor-2", Email: "dana@example.com", Name: "Dana", Role: entity.RoleSponsor, Vetted: true},
	)
	audit := &memAuditRepo{}
	return NewActivityService(users, audit, nil), audit
}

func appendAudit(audit *memAuditRepo, actor, action string, meta map[string]any) {
	audit.record(&entity.AuditEntry{ActorUserID: actor, Action: action, Metadata: meta})
}

func TestActivitySponsorSeesOnlyOwnEvents(t *testing.T) {
	t.Parallel()
	svc, audit := activityFixture(t)

	appendAudit(audit, "seeker-1", entity.AuditConnectionRequested, map[string]any{"userId": "seeker-1", "sponsorId": "sponsor-1"})
	appendAudit(audit, "seeker-1", entity.AuditConnectionRequested, map[string]any{"userId": "seeker-1", "sponsorId": "sponsor-2"})
	appendAudit(audit, "seeker-1", entity.AuditMessageSent, map[string]any{"to_user_id": "sponsor-1"})
	appendAudit(audit, "seeker-1", entity.AuditMessagesRead, map[string]any{"userId": "seeker-1", "fromUserId": "sponsor-1"})

	items := svc.Recent(context.Background(), "sponsor-1", entity.RoleSponsor)
	require.Len(t, items, 3, "events targeting sponsor-2 are invisible")

	// newest first
	require.Equal(t, "Amy read messages from Bob", items[0].Description)
	require.Equal(t, "Message from Amy to Bob", items[1].Description)
	require.Equal(t, "Amy requested connection with Bob", items[2].Description)
}

func TestActivityUserSeesOwnEvents(t *testing.T) {
	t.Parallel()
	svc, audit := activityFixture(t)

	appendAudit(audit, "sponsor-1", entity.AuditConnectionAccepted, map[string]any{"userId": "seeker-1", "sponsorId": "sponsor-1"})
	appendAudit(audit, "sponsor-2", entity.AuditConnectionAccepted, map[string]any{"userId": "someone-else", "sponsorId": "sponsor-2"})
	appendAudit(audit, "sponsor-1", entity.AuditMessageSent, map[string]any{"to_user_id": "seeker-1"})

	items := svc.Recent(context.Background(), "seeker-1", entity.RoleUser)
	require.Len(t, items, 2)
	require.Equal(t, "Message from Bob to Amy", items[0].Description)
	require.Equal(t, "Bob accepted connection with Amy", items[1].Description)
}

func TestActivityAdminSeesEverything(t *testing.T) {
	t.Parallel()
	svc, audit := activityFixture(t)

	appendAudit(audit, "seeker-1", entity.AuditConnectionRequested, map[string]any{"userId": "seeker-1", "sponsorId": "sponsor-1"})
	appendAudit(audit, "admin-x", entity.AuditSponsorApproved, map[string]any{"sponsorId": "sponsor-1"})
	appendAudit(audit, "", entity.AuditUserRegistered, map[string]any{"userId": "seeker-1"})
	appendAudit(audit, "seeker-1", entity.AuditPasswordChanged, map[string]any{"userId": "seeker-1"})

	items := svc.Recent(context.Background(), "admin-x", entity.RoleAdmin)
	require.Len(t, items, 4)
	require.Equal(t, "Password changed for Amy", items[0].Description)
	require.Equal(t, "New user registered: Amy", items[1].Description)
	require.Equal(t, "Sponsor approved: Bob", items[2].Description)
	require.Equal(t, "Amy requested connection with Bob", items[3].Description)
}

func TestActivityCappedAtTen(t *testing.T) {
	t.Parallel()
	svc, audit := activityFixture(t)

	for range 25 {
		appendAudit(audit, "seeker-1", entity.AuditMessageSent, map[string]any{"to_user_id": "sponsor-1"})
	}

	items := svc.Recent(context.Background(), "admin-x", entity.RoleAdmin)
	require.Len(t, items, 10)
}

func TestActivityFailsOpen(t *testing.T) {
	t.Parallel()
	svc, audit := activityFixture(t)
	audit.queryE = errors.New("db down")

	items := svc.Recent(context.Background(), "seeker-1", entity.RoleUser)
	require.NotNil(t, items)
	require.Empty(t, items)
}

func TestActivityUnknownIDFallsBackToID(t *testing.T) {
	t.Parallel()
	svc, audit := activityFixture(t)

	appendAudit(audit, "ghost-1", entity.AuditMessageSent, map[string]any{"to_user_id": "sponsor-1"})

	items := svc.Recent(context.Background(), "sponsor-1", entity.RoleSponsor)
	require.Len(t, items, 1)
	require.Equal(t, "Message from ghost-1 to Bob", items[0].Description)
}
