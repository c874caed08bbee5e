package application

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/sobrhq/sobr-server/internal/domain/entity"
	"github.com/sobrhq/sobr-server/internal/domain/repository"
)

// -------- in-memory repository fakes --------

type memUserRepo struct {
	users map[string]*entity.User
}

func newMemUserRepo(users ...*entity.User) *memUserRepo {
	r := &memUserRepo{users: map[string]*entity.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) Create(ctx context.Context, u *entity.User) error {
	r.users[u.ID] = u
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) GetAll(ctx context.Context) ([]entity.User, error) {
	ids := make([]string, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]entity.User, 0, len(ids))
	for _, id := range ids {
		out = append(out, *r.users[id])
	}
	return out, nil
}

func (r *memUserRepo) UpsertByEmail(ctx context.Context, u *entity.User) (*entity.User, error) {
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			if u.Name != "" {
				existing.Name = u.Name
			}
			if u.Role != "" {
				existing.Role = u.Role
			}
			for k, v := range u.Metadata {
				if existing.Metadata == nil {
					existing.Metadata = map[string]any{}
				}
				existing.Metadata[k] = v
			}
			cp := *existing
			return &cp, nil
		}
	}
	if u.ID == "" {
		u.ID = "u-" + u.Email
	}
	if u.Role == "" {
		u.Role = entity.RoleUser
	}
	cp := *u
	r.users[u.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memUserRepo) Update(ctx context.Context, u *entity.User) error {
	if _, ok := r.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Password = passwordHash
	return nil
}

func (r *memUserRepo) SetRole(ctx context.Context, id, role string) error {
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Role = role
	return nil
}

func (r *memUserRepo) DisplayNames(ctx context.Context, ids []string) (map[string]string, error) {
	out := map[string]string{}
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out[id] = u.DisplayName()
		}
	}
	return out, nil
}

func (r *memUserRepo) CountAll(ctx context.Context) (int, error) {
	return len(r.users), nil
}

func (r *memUserRepo) CountByRole(ctx context.Context, role string) (int, error) {
	n := 0
	for _, u := range r.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (r *memUserRepo) CountAvailableSponsors(ctx context.Context) (int, error) {
	n := 0
	for _, u := range r.users {
		if u.AvailableSponsor() {
			n++
		}
	}
	return n, nil
}

type memSponsorRepo struct {
	users *memUserRepo
	err   error
}

func (r *memSponsorRepo) ListPending(ctx context.Context) ([]entity.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	all, _ := r.users.GetAll(ctx)
	var out []entity.User
	for _, u := range all {
		if u.Role == entity.RoleSponsor && !u.Vetted {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memSponsorRepo) SetVerified(ctx context.Context, sponsorID string, verified bool) error {
	if r.err != nil {
		return r.err
	}
	u, ok := r.users.users[sponsorID]
	if !ok {
		return repository.ErrNotFound
	}
	u.Vetted = verified
	return nil
}

func (r *memSponsorRepo) CountPending(ctx context.Context) (int, error) {
	pending, err := r.ListPending(ctx)
	return len(pending), err
}

type pairKey struct{ seeker, sponsor string }

type memConnRepo struct {
	conns map[pairKey]*entity.Connection
	audit *memAuditRepo
	seq   int
}

func newMemConnRepo(audit *memAuditRepo) *memConnRepo {
	return &memConnRepo{conns: map[pairKey]*entity.Connection{}, audit: audit}
}

func (r *memConnRepo) Get(ctx context.Context, seekerID, sponsorID string) (*entity.Connection, error) {
	if c, ok := r.conns[pairKey{seekerID, sponsorID}]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memConnRepo) CreatePending(ctx context.Context, conn *entity.Connection, audit *entity.AuditEntry) error {
	key := pairKey{conn.SeekerID, conn.SponsorID}
	if existing, ok := r.conns[key]; ok {
		*conn = *existing
		return nil
	}
	r.seq++
	conn.Status = entity.ConnectionPending
	conn.CreatedAt = time.Unix(int64(r.seq), 0)
	conn.UpdatedAt = conn.CreatedAt
	cp := *conn
	r.conns[key] = &cp
	r.audit.record(audit)
	return nil
}

func (r *memConnRepo) Accept(ctx context.Context, seekerID, sponsorID string, audit *entity.AuditEntry) error {
	c, ok := r.conns[pairKey{seekerID, sponsorID}]
	if !ok || c.Status != entity.ConnectionPending {
		return repository.ErrNotFound
	}
	c.Status = entity.ConnectionAccepted
	r.audit.record(audit)
	return nil
}

func (r *memConnRepo) DeleteDeclined(ctx context.Context, seekerID, sponsorID string, audit *entity.AuditEntry) error {
	key := pairKey{seekerID, sponsorID}
	c, ok := r.conns[key]
	if !ok || c.Status != entity.ConnectionPending {
		return repository.ErrNotFound
	}
	delete(r.conns, key)
	r.audit.record(audit)
	return nil
}

func (r *memConnRepo) ListPendingForSponsor(ctx context.Context, sponsorID string) ([]entity.Connection, error) {
	var out []entity.Connection
	for _, c := range r.conns {
		if c.SponsorID == sponsorID && c.Status == entity.ConnectionPending {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memConnRepo) ListForUser(ctx context.Context, userID string) ([]entity.Connection, error) {
	var out []entity.Connection
	for _, c := range r.conns {
		if c.SeekerID == userID || c.SponsorID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memConnRepo) CountForSponsor(ctx context.Context, sponsorID, status string) (int, error) {
	n := 0
	for _, c := range r.conns {
		if c.SponsorID == sponsorID && c.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *memConnRepo) CountForSeeker(ctx context.Context, seekerID, status string) (int, error) {
	n := 0
	for _, c := range r.conns {
		if c.SeekerID == seekerID && c.Status == status {
			n++
		}
	}
	return n, nil
}

type memMessageRepo struct {
	messages []entity.Message
	audit    *memAuditRepo
	users    *memUserRepo
	seq      int
}

func newMemMessageRepo(audit *memAuditRepo, users *memUserRepo) *memMessageRepo {
	return &memMessageRepo{audit: audit, users: users}
}

func (r *memMessageRepo) Insert(ctx context.Context, m *entity.Message, audit *entity.AuditEntry) (*entity.Message, error) {
	r.seq++
	stored := *m
	stored.ID = "m-" + itoa(r.seq)
	stored.SentAt = time.Unix(int64(1000+r.seq), 0)
	r.messages = append(r.messages, stored)
	r.audit.record(audit)
	out := stored
	return &out, nil
}

func (r *memMessageRepo) ListForUser(ctx context.Context, userID string) ([]entity.Message, error) {
	var out []entity.Message
	for _, m := range r.messages {
		if m.FromUserID != userID && m.ToUserID != userID {
			continue
		}
		cp := m
		cp.FromName = r.name(m.FromUserID)
		cp.ToName = r.name(m.ToUserID)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SentAt.Before(out[j].SentAt) })
	return out, nil
}

func (r *memMessageRepo) name(userID string) string {
	if r.users == nil {
		return ""
	}
	if u, ok := r.users.users[userID]; ok {
		return u.DisplayName()
	}
	return ""
}

func (r *memMessageRepo) MarkRead(ctx context.Context, userID, otherUserID string, audit *entity.AuditEntry) error {
	for i := range r.messages {
		if r.messages[i].ToUserID == userID && r.messages[i].FromUserID == otherUserID {
			r.messages[i].Read = true
		}
	}
	r.audit.record(audit)
	return nil
}

func (r *memMessageRepo) CountUnreadForUser(ctx context.Context, userID string) (int, error) {
	n := 0
	for _, m := range r.messages {
		if m.ToUserID == userID && !m.Read {
			n++
		}
	}
	return n, nil
}

func (r *memMessageRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	n := 0
	for _, m := range r.messages {
		if m.SentAt.After(since) {
			n++
		}
	}
	return n, nil
}

func (r *memMessageRepo) CountUnreadFromSponsors(ctx context.Context) (int, error) {
	n := 0
	for _, m := range r.messages {
		if m.Read {
			continue
		}
		if u, ok := r.users.users[m.FromUserID]; ok && u.IsSponsor() {
			n++
		}
	}
	return n, nil
}

type memAuditRepo struct {
	entries []entity.AuditEntry
	queryE  error
}

func (r *memAuditRepo) record(e *entity.AuditEntry) {
	if e == nil {
		return
	}
	cp := *e
	cp.CreatedAt = time.Unix(int64(2000+len(r.entries)), 0)
	r.entries = append(r.entries, cp)
}

func (r *memAuditRepo) Append(ctx context.Context, e *entity.AuditEntry) error {
	r.record(e)
	return nil
}

func (r *memAuditRepo) QueryByActions(ctx context.Context, actions []string, limit int) ([]entity.AuditEntry, error) {
	if r.queryE != nil {
		return nil, r.queryE
	}
	want := map[string]bool{}
	for _, a := range actions {
		want[a] = true
	}
	var out []entity.AuditEntry
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if want[r.entries[i].Action] {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}

func (r *memAuditRepo) actions() []string {
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// compile-time interface checks
var (
	_ repository.UserRepository       = (*memUserRepo)(nil)
	_ repository.SponsorRepository    = (*memSponsorRepo)(nil)
	_ repository.ConnectionRepository = (*memConnRepo)(nil)
	_ repository.MessageRepository    = (*memMessageRepo)(nil)
	_ repository.AuditRepository      = (*memAuditRepo)(nil)
)
