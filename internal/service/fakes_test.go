package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Nemeth89/ECOMMERCE-Backend/internal/domain"
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/infrastructure/email"
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/notification"
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/repository"
	outboxDomain "github.com/Nemeth89/ECOMMERCE-Backend/pkg/outbox/domain"
	"github.com/jackc/pgx/v5"
)

type fakeTx struct {
	pgx.Tx
	parent    *fakeTransactor
	committed bool
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	t.parent.commits++
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.parent.rollbacks++
	return nil
}

type fakeTransactor struct {
	begun     int
	commits   int
	rollbacks int
}

func (f *fakeTransactor) Begin(context.Context) (pgx.Tx, error) {
	f.begun++
	return &fakeTx{parent: f}, nil
}

// fakeUserRepo applies writes immediately and counts them.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
	writes int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*domain.User)}
}

func (r *fakeUserRepo) clone(u *domain.User) *domain.User {
	c := *u
	return &c
}

func (r *fakeUserRepo) byEmail(email string) *domain.User {
	for _, u := range r.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u := r.byEmail(email)
	if u == nil {
		return nil, repository.ErrUserNotFound
	}
	return r.clone(u), nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return r.clone(u), nil
}

func (r *fakeUserRepo) Create(_ context.Context, _ pgx.Tx, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byEmail(user.Email) != nil {
		return nil, repository.ErrUserAlreadyExists
	}

	r.nextID++
	now := time.Now()
	u := r.clone(user)
	u.ID = r.nextID
	u.CreatedAt, u.UpdatedAt = now, now
	r.users[u.ID] = u
	r.writes++

	return r.clone(u), nil
}

func (r *fakeUserRepo) MarkVerified(_ context.Context, _ pgx.Tx, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return false, repository.ErrUserNotFound
	}
	changed := !u.IsVerified
	u.IsVerified = true
	r.writes++

	return changed, nil
}

func (r *fakeUserRepo) SetResetToken(_ context.Context, _ pgx.Tx, email, hash string, expiry time.Time) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u := r.byEmail(email)
	if u == nil {
		return nil, repository.ErrUserNotFound
	}
	u.ResetToken = &hash
	u.ResetTokenExpiry = &expiry
	r.writes++

	return r.clone(u), nil
}

func (r *fakeUserRepo) ResetPassword(_ context.Context, _ pgx.Tx, hash, newPasswordHash string, now time.Time) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.ResetToken != nil && *u.ResetToken == hash && u.ResetTokenExpiry.After(now) {
			u.PasswordHash = newPasswordHash
			u.ResetToken = nil
			u.ResetTokenExpiry = nil
			r.writes++
			return r.clone(u), nil
		}
	}

	return nil, repository.ErrInvalidToken
}

type fakeOutbox struct {
	events []*outboxDomain.OutboxEvent
	err    error
}

func (o *fakeOutbox) SaveOutboxEvent(_ context.Context, _ pgx.Tx, e *outboxDomain.OutboxEvent) error {
	if o.err != nil {
		return o.err
	}
	o.events = append(o.events, e)
	return nil
}

func (o *fakeOutbox) GetUnpublishedEvents(context.Context, pgx.Tx, int) ([]*outboxDomain.OutboxEvent, error) {
	return nil, errors.New("not used")
}

func (o *fakeOutbox) MarkEventPublished(context.Context, pgx.Tx, int64) error {
	return nil
}

func (o *fakeOutbox) MarkEventFailed(context.Context, pgx.Tx, int64, string) error {
	return nil
}

func (o *fakeOutbox) types() []string {
	var out []string
	for _, e := range o.events {
		out = append(out, e.EventType)
	}
	return out
}

type dispatched struct {
	kind notification.Kind
	msg  email.Message
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []dispatched
	err  error
}

func (n *fakeNotifier) Dispatch(_ context.Context, kind notification.Kind, msg email.Message) *notification.Task {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.sent = append(n.sent, dispatched{kind: kind, msg: msg})
	return notification.Failed(kind, n.err)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func (n *fakeNotifier) last() dispatched {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[len(n.sent)-1]
}
