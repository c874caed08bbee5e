package application

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sobrhq/sobr-server/internal/domain/entity"
	"github.com/sobrhq/sobr-server/internal/domain/repository"
)

const (
	activityFetchLimit = 50
	activityMaxItems   = 10
)

// ActivityService projects the audit trail into a role-scoped recent
// activity feed. Each role sees a different slice of the trail: sponsors
// and seekers only the events targeting them, admins everything.
type ActivityService struct {
	Users  repository.UserRepository
	Audit  repository.AuditRepository
	Logger *logrus.Logger
}

func NewActivityService(users repository.UserRepository, audit repository.AuditRepository, logger *logrus.Logger) *ActivityService {
	return &ActivityService{Users: users, Audit: audit, Logger: logger}
}

var (
	sponsorActivityActions = []string{
		entity.AuditConnectionRequested,
		entity.AuditMessageSent,
		entity.AuditConnectionAccepted,
		entity.AuditConnectionDeclined,
		entity.AuditMessagesRead,
	}
	adminActivityActions = []string{
		entity.AuditMessageSent,
		entity.AuditConnectionRequested,
		entity.AuditConnectionAccepted,
		entity.AuditConnectionDeclined,
		entity.AuditSponsorApproved,
		entity.AuditSponsorDeclined,
		entity.AuditUserRegistered,
		entity.AuditProfileUpdated,
		entity.AuditPasswordChanged,
	}
	userActivityActions = []string{
		entity.AuditMessageSent,
		entity.AuditConnectionAccepted,
		entity.AuditConnectionDeclined,
		entity.AuditMessagesRead,
		entity.AuditConnectionRequested,
	}
)

// Recent returns the newest activity items visible to the given user and
// role, capped at ten. The feed is best effort: a failing query yields an
// empty list, never an error surfaced to the dashboard.
func (s *ActivityService) Recent(ctx context.Context, userID, role string) []entity.ActivityItem {
	var (
		entries []entity.AuditEntry
		err     error
	)
	switch role {
	case entity.RoleSponsor:
		entries, err = s.Audit.QueryByActions(ctx, sponsorActivityActions, activityFetchLimit)
		if err == nil {
			entries = filterEntries(entries, func(e entity.AuditEntry) bool {
				switch e.Action {
				case entity.AuditConnectionRequested, entity.AuditConnectionAccepted, entity.AuditConnectionDeclined:
					return metaString(e, "sponsorId") == userID
				case entity.AuditMessageSent:
					return metaString(e, "to_user_id") == userID
				case entity.AuditMessagesRead:
					// someone read messages this sponsor sent
					return metaString(e, "fromUserId") == userID
				}
				return false
			})
		}
	case entity.RoleAdmin:
		entries, err = s.Audit.QueryByActions(ctx, adminActivityActions, activityFetchLimit)
	default:
		entries, err = s.Audit.QueryByActions(ctx, userActivityActions, activityFetchLimit)
		if err == nil {
			entries = filterEntries(entries, func(e entity.AuditEntry) bool {
				switch e.Action {
				case entity.AuditMessageSent:
					return metaString(e, "to_user_id") == userID
				case entity.AuditMessagesRead:
					return metaString(e, "userId") == userID
				case entity.AuditConnectionAccepted, entity.AuditConnectionDeclined, entity.AuditConnectionRequested:
					return metaString(e, "userId") == userID
				}
				return false
			})
		}
	}
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).Warn("activity query failed")
		}
		return []entity.ActivityItem{}
	}

	names := s.resolveNames(ctx, entries)
	items := make([]entity.ActivityItem, 0, len(entries))
	for _, e := range entries {
		if item, ok := renderActivity(e, names); ok {
			items = append(items, item)
		}
		if len(items) == activityMaxItems {
			break
		}
	}
	return items
}

// resolveNames collects every user id referenced by the entries and maps
// them to display names in a single lookup.
func (s *ActivityService) resolveNames(ctx context.Context, entries []entity.AuditEntry) map[string]string {
	seen := map[string]bool{}
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, e := range entries {
		add(e.ActorUserID)
		add(metaString(e, "userId"))
		add(metaString(e, "sponsorId"))
		add(metaString(e, "to_user_id"))
		add(metaString(e, "fromUserId"))
	}
	if len(ids) == 0 {
		return map[string]string{}
	}
	names, err := s.Users.DisplayNames(ctx, ids)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).Warn("activity name lookup failed")
		}
		return map[string]string{}
	}
	return names
}

// renderActivity turns one audit row into a feed line. Unknown actions are
// skipped.
func renderActivity(e entity.AuditEntry, names map[string]string) (entity.ActivityItem, bool) {
	nameOr := func(id, fallback string) string {
		if id == "" {
			return fallback
		}
		if n, ok := names[id]; ok {
			return n
		}
		return id
	}
	actor := "System"
	if e.ActorUserID != "" {
		actor = nameOr(e.ActorUserID, e.ActorUserID)
	}
	userName := nameOr(metaString(e, "userId"), "user")
	sponsorName := nameOr(metaString(e, "sponsorId"), "sponsor")
	toName := nameOr(metaString(e, "to_user_id"), "user")
	fromName := nameOr(metaString(e, "fromUserId"), "user")

	var item entity.ActivityItem
	switch e.Action {
	case entity.AuditMessageSent:
		item = entity.ActivityItem{Type: "message", Description: fmt.Sprintf("Message from %s to %s", actor, toName)}
	case entity.AuditMessagesRead:
		item = entity.ActivityItem{Type: "message", Description: fmt.Sprintf("%s read messages from %s", actor, fromName)}
	case entity.AuditConnectionRequested:
		item = entity.ActivityItem{Type: "connection", Description: fmt.Sprintf("%s requested connection with %s", actor, sponsorName)}
	case entity.AuditConnectionAccepted:
		item = entity.ActivityItem{Type: "connection", Description: fmt.Sprintf("%s accepted connection with %s", sponsorName, userName)}
	case entity.AuditConnectionDeclined:
		item = entity.ActivityItem{Type: "connection", Description: fmt.Sprintf("%s declined connection with %s", sponsorName, userName)}
	case entity.AuditSponsorApproved:
		item = entity.ActivityItem{Type: "connection", Description: "Sponsor approved: " + nameOr(metaString(e, "sponsorId"), sponsorName)}
	case entity.AuditSponsorDeclined:
		item = entity.ActivityItem{Type: "connection", Description: "Sponsor declined: " + nameOr(metaString(e, "sponsorId"), sponsorName)}
	case entity.AuditUserRegistered:
		item = entity.ActivityItem{Type: "connection", Description: "New user registered: " + fallbackName(e, names, actor)}
	case entity.AuditProfileUpdated:
		item = entity.ActivityItem{Type: "connection", Description: "Profile updated: " + fallbackName(e, names, actor)}
	case entity.AuditPasswordChanged:
		item = entity.ActivityItem{Type: "connection", Description: "Password changed for " + fallbackName(e, names, actor)}
	default:
		return entity.ActivityItem{}, false
	}
	item.Timestamp = e.CreatedAt
	return item, true
}

// fallbackName prefers the userId named in metadata, then the actor.
func fallbackName(e entity.AuditEntry, names map[string]string, actor string) string {
	if id := metaString(e, "userId"); id != "" {
		if n, ok := names[id]; ok {
			return n
		}
		return id
	}
	return actor
}

func filterEntries(entries []entity.AuditEntry, keep func(entity.AuditEntry) bool) []entity.AuditEntry {
	out := entries[:0]
	for _, e := range entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func metaString(e entity.AuditEntry, key string) string {
	if e.Metadata == nil {
		return ""
	}
	if s, ok := e.Metadata[key].(string); ok {
		return s
	}
	return ""
}
