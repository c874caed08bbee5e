package application

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/sobrhq/sobr-server/internal/domain/entity"
	"github.com/sobrhq/sobr-server/internal/domain/repository"
	"github.com/sobrhq/sobr-server/pkg/helpers"
	"github.com/sobrhq/sobr-server/pkg/mailer"
)

// ConnectionService is the connection ledger: seeker→sponsor requests and
// their pending/accepted lifecycle. Every mutation lands atomically with its
// audit entry (the repository runs both in one transaction).
type ConnectionService struct {
	Users       repository.UserRepository
	Connections repository.ConnectionRepository
	Notify      *helpers.RabbitPublisher
	Logger      *logrus.Logger
}

func NewConnectionService(users repository.UserRepository, conns repository.ConnectionRepository, notify *helpers.RabbitPublisher, logger *logrus.Logger) *ConnectionService {
	return &ConnectionService{Users: users, Connections: conns, Notify: notify, Logger: logger}
}

// Request creates a pending connection from seeker to sponsor. Requesting an
// existing pending/accepted pair is a no-op that returns the existing row.
func (s *ConnectionService) Request(ctx context.Context, seekerID, sponsorID string) (*entity.Connection, error) {
	sponsor, err := s.Users.GetByID(ctx, sponsorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRole
		}
		return nil, err
	}
	if !sponsor.IsSponsor() {
		return nil, ErrInvalidRole
	}

	if existing, err := s.Connections.Get(ctx, seekerID, sponsorID); err == nil {
		return existing, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	conn := &entity.Connection{SeekerID: seekerID, SponsorID: sponsorID, Status: entity.ConnectionPending}
	audit := &entity.AuditEntry{
		ActorUserID: seekerID,
		Action:      entity.AuditConnectionRequested,
		TargetType:  "connection",
		TargetID:    sponsorID,
		Metadata:    map[string]any{"userId": seekerID, "sponsorId": sponsorID},
	}
	if err := s.Connections.CreatePending(ctx, conn, audit); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"seeker_id": seekerID, "sponsor_id": sponsorID}).Info("connection requested")
	}
	s.notify(ctx, sponsorID, mailer.TemplateConnectionRequested, map[string]any{
		"Name":       sponsor.DisplayName(),
		"SeekerName": s.displayName(ctx, seekerID),
	})
	return conn, nil
}

// Respond resolves a pending connection as the sponsor. Accept flips the
// status; decline removes the row so the seeker may re-request. Only pending
// rows can be resolved; anything else is ErrNotFound with no state change.
// Checking that the caller IS the named sponsor belongs to the HTTP boundary.
func (s *ConnectionService) Respond(ctx context.Context, seekerID, sponsorID string, accept bool) error {
	conn, err := s.Connections.Get(ctx, seekerID, sponsorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if conn.Status != entity.ConnectionPending {
		return ErrNotFound
	}

	action := entity.AuditConnectionAccepted
	if !accept {
		action = entity.AuditConnectionDeclined
	}
	audit := &entity.AuditEntry{
		ActorUserID: sponsorID,
		Action:      action,
		TargetType:  "connection",
		TargetID:    seekerID,
		Metadata:    map[string]any{"userId": seekerID, "sponsorId": sponsorID},
	}

	if accept {
		err = s.Connections.Accept(ctx, seekerID, sponsorID, audit)
	} else {
		err = s.Connections.DeleteDeclined(ctx, seekerID, sponsorID, audit)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err == nil && accept {
		s.notify(ctx, seekerID, mailer.TemplateConnectionAccepted, map[string]any{
			"Name":        s.displayName(ctx, seekerID),
			"SponsorName": s.displayName(ctx, sponsorID),
		})
	}
	return err
}

// notify enqueues a notification email; best effort, never blocks the
// ledger operation.
func (s *ConnectionService) notify(ctx context.Context, userID, template string, data map[string]any) {
	if s.Notify == nil {
		return
	}
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return
	}
	job := mailer.EmailJob{To: u.Email, Template: template, Data: data}
	if err := s.Notify.PublishJSON(ctx, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", userID).Warn("notify enqueue failed")
	}
}

func (s *ConnectionService) displayName(ctx context.Context, userID string) string {
	if u, err := s.Users.GetByID(ctx, userID); err == nil {
		return u.DisplayName()
	}
	return userID
}

// Status returns the connection status for the pair, or "" when none exists.
func (s *ConnectionService) Status(ctx context.Context, seekerID, sponsorID string) (string, error) {
	conn, err := s.Connections.Get(ctx, seekerID, sponsorID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return conn.Status, nil
}

// ListIncoming returns the sponsor's pending requests oldest-first, so the
// first request is reviewed first.
func (s *ConnectionService) ListIncoming(ctx context.Context, sponsorID string) ([]entity.Connection, error) {
	return s.Connections.ListPendingForSponsor(ctx, sponsorID)
}

// IsAccepted is the sole authorization gate for direct seeker↔sponsor
// messaging.
func (s *ConnectionService) IsAccepted(ctx context.Context, seekerID, sponsorID string) (bool, error) {
	status, err := s.Status(ctx, seekerID, sponsorID)
	if err != nil {
		return false, err
	}
	return status == entity.ConnectionAccepted, nil
}
