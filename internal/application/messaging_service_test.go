package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sobrhq/sobr-server/internal/domain/entity"
)

func messagingFixture(t *testing.T) (*MessagingService, *ConnectionService, *memAuditRepo) {
	t.Helper()
	users := newMemUserRepo(
		&entity.User{ID: "admin-1", Email: "support@sobr.local", Name: "SOBR Support", Role: entity.RoleAdmin},
		&entity.User{ID: "seeker-1", Email: "amy@example.com", Name: "Amy", Role: entity.RoleUser},
		&entity.User{ID: "sponsor-1", Email: "bob@example.com", Name: "Bob", Role: entity.RoleSponsor, Vetted: true},
		&entity.User{ID: "sponsor-2", Email: "dana@example.com", Name: "Dana", Role: entity.RoleSponsor, Vetted: true},
	)
	audit := &memAuditRepo{}
	conns := NewConnectionService(users, newMemConnRepo(audit), nil, nil)
	msgs := newMemMessageRepo(audit, users)
	return NewMessagingService(users, msgs, conns, "support@sobr.local", nil), conns, audit
}

func TestSendRejectsEmptyBody(t *testing.T) {
	t.Parallel()
	svc, _, _ := messagingFixture(t)

	_, err := svc.Send(context.Background(), "seeker-1", "sponsor-1", "   \n\t")
	require.ErrorIs(t, err, ErrEmptyBody)
}

func TestSendRequiresAcceptedConnection(t *testing.T) {
	t.Parallel()
	svc, conns, _ := messagingFixture(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, "seeker-1", "sponsor-1", "hello")
	require.ErrorIs(t, err, ErrConnectionNotApproved)

	_, err = conns.Request(ctx, "seeker-1", "sponsor-1")
	require.NoError(t, err)
	_, err = svc.Send(ctx, "seeker-1", "sponsor-1", "hello")
	require.ErrorIs(t, err, ErrConnectionNotApproved, "pending is not enough")

	require.NoError(t, conns.Respond(ctx, "seeker-1", "sponsor-1", true))
	msg, err := svc.Send(ctx, "seeker-1", "sponsor-1", "hello")
	require.NoError(t, err)
	require.NotEmpty(t, msg.ID)
	require.False(t, msg.Read)
}

func TestSendAcceptedPairBothDirections(t *testing.T) {
	t.Parallel()
	svc, conns, _ := messagingFixture(t)
	ctx := context.Background()

	_, err := conns.Request(ctx, "seeker-1", "sponsor-1")
	require.NoError(t, err)
	require.NoError(t, conns.Respond(ctx, "seeker-1", "sponsor-1", true))

	_, err = svc.Send(ctx, "sponsor-1", "seeker-1", "hi there")
	require.NoError(t, err, "sponsor may message back over the same connection")
}

func TestSendAdminBypassesConnectionCheck(t *testing.T) {
	t.Parallel()
	svc, _, _ := messagingFixture(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, "seeker-1", "admin-1", "I need help")
	require.NoError(t, err)
	_, err = svc.Send(ctx, "admin-1", "sponsor-2", "welcome aboard")
	require.NoError(t, err)
}

func TestSendAuditsRecipient(t *testing.T) {
	t.Parallel()
	svc, _, audit := messagingFixture(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, "seeker-1", "admin-1", "hello")
	require.NoError(t, err)

	require.Len(t, audit.entries, 1)
	e := audit.entries[0]
	require.Equal(t, entity.AuditMessageSent, e.Action)
	require.Equal(t, "seeker-1", e.ActorUserID)
	require.Equal(t, "admin-1", e.Metadata["to_user_id"])
}

func TestListForUserDenormalizesNames(t *testing.T) {
	t.Parallel()
	svc, _, _ := messagingFixture(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, "seeker-1", "admin-1", "first")
	require.NoError(t, err)
	_, err = svc.Send(ctx, "admin-1", "seeker-1", "second")
	require.NoError(t, err)

	list, err := svc.ListForUser(ctx, "seeker-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "first", list[0].Body)
	require.Equal(t, "Amy", list[0].FromName)
	require.Equal(t, "SOBR Support", list[0].ToName)
	require.True(t, list[0].SentAt.Before(list[1].SentAt))
}

func TestMarkReadScopedToSender(t *testing.T) {
	t.Parallel()
	svc, _, audit := messagingFixture(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, "admin-1", "seeker-1", "from admin")
	require.NoError(t, err)
	_, err = svc.Send(ctx, "seeker-1", "admin-1", "from seeker")
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(ctx, "seeker-1", "admin-1"))

	list, err := svc.ListForUser(ctx, "seeker-1")
	require.NoError(t, err)
	for _, m := range list {
		if m.ToUserID == "seeker-1" {
			require.True(t, m.Read)
		} else {
			require.False(t, m.Read, "outgoing messages untouched")
		}
	}

	last := audit.entries[len(audit.entries)-1]
	require.Equal(t, entity.AuditMessagesRead, last.Action)
	require.Equal(t, "seeker-1", last.Metadata["userId"])
	require.Equal(t, "admin-1", last.Metadata["fromUserId"])

	// idempotent
	require.NoError(t, svc.MarkRead(ctx, "seeker-1", "admin-1"))
}

func TestAdminIDUnresolvable(t *testing.T) {
	t.Parallel()
	users := newMemUserRepo(&entity.User{ID: "seeker-1", Email: "amy@example.com", Role: entity.RoleUser})
	audit := &memAuditRepo{}
	conns := NewConnectionService(users, newMemConnRepo(audit), nil, nil)
	svc := NewMessagingService(users, newMemMessageRepo(audit, users), conns, "missing@sobr.local", nil)

	require.Empty(t, svc.AdminID(context.Background()))
	_, err := svc.Send(context.Background(), "seeker-1", "other", "hi")
	require.ErrorIs(t, err, ErrConnectionNotApproved, "no admin shortcut without a resolvable admin")
}
