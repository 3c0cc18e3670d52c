package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/selectexposure/authcore/internal/core/domain"
	"github.com/selectexposure/authcore/internal/infrastructure/security"
)

// memStore is an in-memory credential store and nonce table. One mutex
// guards both so that consume-and-update is atomic, as the SQL transaction is.
type memStore struct {
	mu       sync.Mutex
	seq      int
	byID     map[string]*domain.Identity
	profiles map[string]*domain.ContributorProfile
	nonces   map[string]domain.ResetNonce
}

func newMemStore() *memStore {
	return &memStore{
		byID:     make(map[string]*domain.Identity),
		profiles: make(map[string]*domain.ContributorProfile),
		nonces:   make(map[string]domain.ResetNonce),
	}
}

func cloneIdentity(i *domain.Identity) *domain.Identity {
	c := *i
	c.CredentialHash = append([]byte(nil), i.CredentialHash...)
	return &c
}

func (m *memStore) conflict(identity *domain.Identity) error {
	for _, existing := range m.byID {
		if domain.NormalizeEmail(existing.Email) == domain.NormalizeEmail(identity.Email) {
			return domain.ErrDuplicateEmail
		}
		if existing.DisplayName == identity.DisplayName {
			return domain.ErrDuplicateDisplayName
		}
	}
	return nil
}

func (m *memStore) insert(identity *domain.Identity) *domain.Identity {
	m.seq++
	c := cloneIdentity(identity)
	c.ID = fmt.Sprintf("id-%d", m.seq)
	c.Email = domain.NormalizeEmail(c.Email)
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	m.byID[c.ID] = c
	return cloneIdentity(c)
}

func (m *memStore) Create(_ context.Context, identity *domain.Identity) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.conflict(identity); err != nil {
		return nil, err
	}
	return m.insert(identity), nil
}

func (m *memStore) CreateContributor(_ context.Context, identity *domain.Identity, profile *domain.ContributorProfile) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.conflict(identity); err != nil {
		return nil, err
	}
	for _, p := range m.profiles {
		if p.PhoneNumber == profile.PhoneNumber {
			return nil, domain.ErrDuplicatePhone
		}
	}
	created := m.insert(identity)
	p := *profile
	p.IdentityID = created.ID
	m.profiles[created.ID] = &p
	created.Profile = &p
	return created, nil
}

func (m *memStore) FindByEmail(_ context.Context, email string) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range m.byID {
		if i.Email == domain.NormalizeEmail(email) {
			return cloneIdentity(i), nil
		}
	}
	return nil, domain.ErrIdentityNotFound
}

func (m *memStore) FindByID(_ context.Context, id string) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	return cloneIdentity(i), nil
}

func (m *memStore) SetAdminFlag(_ context.Context, id string, value bool) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	i.IsAdmin = value
	return cloneIdentity(i), nil
}

func (m *memStore) SetCredential(_ context.Context, id string, hash []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.byID[id]
	if !ok {
		return domain.ErrIdentityNotFound
	}
	i.CredentialHash = append([]byte(nil), hash...)
	return nil
}

func (m *memStore) setActive(id string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id].IsActive = active
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func (m *memStore) nonceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.nonces)
}

func (m *memStore) Issue(_ context.Context, nonce *domain.ResetNonce) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, n := range m.nonces {
		if n.IdentityID == nonce.IdentityID {
			delete(m.nonces, k)
		}
	}
	m.nonces[nonce.NonceHash] = *nonce
	return nil
}

func (m *memStore) ConsumeAndSetCredential(_ context.Context, nonceHash, identityID string, hash []byte, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nonces[nonceHash]
	if !ok || n.IdentityID != identityID || n.IsExpired(now) {
		return domain.ErrInvalidToken
	}
	i, ok := m.byID[identityID]
	if !ok {
		return domain.ErrInvalidToken
	}
	delete(m.nonces, nonceHash)
	i.CredentialHash = append([]byte(nil), hash...)
	return nil
}

func (m *memStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, v := range m.nonces {
		if v.IsExpired(now) {
			delete(m.nonces, k)
			n++
		}
	}
	return n, nil
}

// ctxHasher runs the real bcrypt hasher at minimum cost.
type ctxHasher struct {
	h        *security.BcryptHasher
	verifies atomic.Int64
}

func newCtxHasher() *ctxHasher {
	h, err := security.NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return &ctxHasher{h: h}
}

func (c *ctxHasher) Hash(ctx context.Context, plaintext string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.h.Hash(plaintext)
}

func (c *ctxHasher) Verify(ctx context.Context, plaintext string, hash []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.verifies.Add(1)
	return c.h.Verify(plaintext, hash)
}

type sentToken struct {
	identityID string
	token      string
}

type memNotifier struct {
	mu   sync.Mutex
	sent []sentToken
}

func (n *memNotifier) SendResetToken(_ context.Context, identity *domain.Identity, token string, _ time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentToken{identityID: identity.ID, token: token})
	return nil
}

func (n *memNotifier) last() (sentToken, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return sentToken{}, false
	}
	return n.sent[len(n.sent)-1], true
}

func (n *memNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type memThrottle struct {
	mu       sync.Mutex
	failures map[string]int
	err      error
}

func newMemThrottle() *memThrottle {
	return &memThrottle{failures: make(map[string]int)}
}

func (t *memThrottle) Failures(_ context.Context, email string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return 0, t.err
	}
	return t.failures[email], nil
}

func (t *memThrottle) RecordFailure(_ context.Context, email string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return 0, t.err
	}
	t.failures[email]++
	return t.failures[email], nil
}

func (t *memThrottle) Reset(_ context.Context, email string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.failures, email)
	return t.err
}

type memAudit struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func (a *memAudit) Record(_ context.Context, e *domain.AuthEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, *e)
	return nil
}

func (a *memAudit) last() domain.AuthEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.events) == 0 {
		return domain.AuthEvent{}
	}
	return a.events[len(a.events)-1]
}

func (a *memAudit) types() []domain.AuthEventType {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.AuthEventType, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.Type)
	}
	return out
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
