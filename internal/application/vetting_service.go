package application

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sobrhq/sobr-server/internal/domain/entity"
	"github.com/sobrhq/sobr-server/internal/domain/repository"
	"github.com/sobrhq/sobr-server/pkg/helpers"
	"github.com/sobrhq/sobr-server/pkg/mailer"
)

// VettingService is the admin workflow over sponsor applications: listing,
// approving, declining, and searching pending sponsors. Approvals and
// declines record audit entries and enqueue a notification email when a
// publisher is configured.
type VettingService struct {
	Users    repository.UserRepository
	Sponsors repository.SponsorRepository
	Audit    repository.AuditRepository
	Notify   *helpers.RabbitPublisher
	Logger   *logrus.Logger

	// DeclineDemotes mirrors the original product behavior: a declined
	// sponsor is demoted to the plain user role, not just unflagged.
	DeclineDemotes bool
}

func NewVettingService(users repository.UserRepository, sponsors repository.SponsorRepository, audit repository.AuditRepository, notify *helpers.RabbitPublisher, logger *logrus.Logger, declineDemotes bool) *VettingService {
	return &VettingService{
		Users:          users,
		Sponsors:       sponsors,
		Audit:          audit,
		Notify:         notify,
		Logger:         logger,
		DeclineDemotes: declineDemotes,
	}
}

// ListPending returns sponsors awaiting vetting: role sponsor and not yet
// verified.
func (s *VettingService) ListPending(ctx context.Context) ([]entity.User, error) {
	return s.Sponsors.ListPending(ctx)
}

// Approve marks the sponsor as vetted.
func (s *VettingService) Approve(ctx context.Context, actorID, sponsorID string) error {
	if err := s.Sponsors.SetVerified(ctx, sponsorID, true); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.record(ctx, actorID, entity.AuditSponsorApproved, sponsorID)
	s.notifyDecision(ctx, sponsorID, true)
	return nil
}

// Decline clears the vetted flag and, when configured, demotes the account
// back to the plain user role.
func (s *VettingService) Decline(ctx context.Context, actorID, sponsorID string) error {
	if err := s.Sponsors.SetVerified(ctx, sponsorID, false); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if s.DeclineDemotes {
		if err := s.Users.SetRole(ctx, sponsorID, entity.RoleUser); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
	}
	s.record(ctx, actorID, entity.AuditSponsorDeclined, sponsorID)
	s.notifyDecision(ctx, sponsorID, false)
	return nil
}

// BulkApprove applies Approve per id, continuing past failures and
// returning the ids that could not be approved.
func (s *VettingService) BulkApprove(ctx context.Context, actorID string, sponsorIDs []string) (failed []string) {
	for _, id := range sponsorIDs {
		if err := s.Approve(ctx, actorID, id); err != nil {
			if s.Logger != nil {
				s.Logger.WithError(err).WithField("sponsor_id", id).Warn("bulk approve: id failed")
			}
			failed = append(failed, id)
		}
	}
	return failed
}

// Search filters pending sponsors by case-insensitive substring match on
// display name or email.
func (s *VettingService) Search(ctx context.Context, query string) ([]entity.User, error) {
	pending, err := s.Sponsors.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return pending, nil
	}
	var out []entity.User
	for _, u := range pending {
		if strings.Contains(strings.ToLower(u.DisplayName()), q) || strings.Contains(strings.ToLower(u.Email), q) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *VettingService) record(ctx context.Context, actorID, action, sponsorID string) {
	err := s.Audit.Append(ctx, &entity.AuditEntry{
		ActorUserID: actorID,
		Action:      action,
		TargetType:  "sponsor",
		TargetID:    sponsorID,
		Metadata:    map[string]any{"sponsorId": sponsorID},
	})
	if err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("action", action).Warn("audit append failed")
	}
}

func (s *VettingService) notifyDecision(ctx context.Context, sponsorID string, approved bool) {
	if s.Notify == nil {
		return
	}
	u, err := s.Users.GetByID(ctx, sponsorID)
	if err != nil {
		return
	}
	template := mailer.TemplateSponsorDeclined
	if approved {
		template = mailer.TemplateSponsorApproved
	}
	job := mailer.EmailJob{
		To:       u.Email,
		Template: template,
		Data:     map[string]any{"Name": u.DisplayName()},
	}
	if err := s.Notify.PublishJSON(ctx, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("sponsor_id", sponsorID).Warn("notify enqueue failed")
	}
}
