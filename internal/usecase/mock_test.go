//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-club-bot/internal/domain"
	"telegram-club-bot/internal/domain/model"
	"telegram-club-bot/internal/domain/ports/adapter"
	"telegram-club-bot/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// =============================
// Repositories
// =============================

// ---- In-memory UserRepository ----

type memUserRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.User // by domain ID
	saveErr error                  // used by tests to simulate save failures
}

var _ repository.UserRepository = (*memUserRepo)(nil)

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{store: make(map[string]*model.User)}
}

func (m *memUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.store[u.ID] = &cp
	return nil
}

func (m *memUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.store {
		if u.TelegramID == tgID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store), nil
}

func (m *memUserRepo) ListRegisteredBefore(ctx context.Context, tx repository.Tx, cutoff time.Time) ([]*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.User
	for _, u := range m.store {
		if u.RegisteredAt.Before(cutoff) {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- In-memory PaymentRepository ----

type memPaymentRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Payment
	saveErr error

	AddProofFunc func(ctx context.Context, tx repository.Tx, paymentID string, proof model.PaymentProof) error
}

var _ repository.PaymentRepository = (*memPaymentRepo)(nil)

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{store: make(map[string]*model.Payment)}
}

func clonePayment(p *model.Payment) *model.Payment {
	cp := *p
	cp.Proofs = append([]model.PaymentProof(nil), p.Proofs...)
	if p.ConfirmedAt != nil {
		t := *p.ConfirmedAt
		cp.ConfirmedAt = &t
	}
	return &cp
}

func (m *memPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[p.ID] = clonePayment(p)
	return nil
}

func (m *memPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clonePayment(p), nil
}

func (m *memPaymentRepo) AddProof(ctx context.Context, tx repository.Tx, paymentID string, proof model.PaymentProof) error {
	if m.AddProofFunc != nil {
		return m.AddProofFunc(ctx, tx, paymentID, proof)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[paymentID]
	if !ok {
		return domain.ErrNotFound
	}
	p.Proofs = append(p.Proofs, proof)
	return nil
}

func (m *memPaymentRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, confirmedAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = status
	if status == model.PaymentStatusConfirmed && confirmedAt != nil {
		t := *confirmedAt
		p.ConfirmedAt = &t
	}
	return true, nil
}

func (m *memPaymentRepo) CountCreatedBetween(ctx context.Context, tx repository.Tx, from, to time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cnt := 0
	for _, p := range m.store {
		if !p.CreatedAt.Before(from) && p.CreatedAt.Before(to) {
			cnt++
		}
	}
	return cnt, nil
}

// ---- In-memory SubscriptionRepository ----

type memSubRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Subscription // by subscription ID
	saveErr error

	LockCalls []string
}

var _ repository.SubscriptionRepository = (*memSubRepo)(nil)

func newMemSubRepo() *memSubRepo {
	return &memSubRepo{store: make(map[string]*model.Subscription)}
}

func (m *memSubRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *memSubRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSubRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.store {
		if s.UserID == userID && s.Status == model.SubscriptionStatusActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSubRepo) FindDue(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Subscription
	for _, s := range m.store {
		if s.Status == model.SubscriptionStatusActive && !s.EndAt.After(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memSubRepo) FindExpiringBetween(ctx context.Context, tx repository.Tx, from, to time.Time) ([]*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Subscription
	for _, s := range m.store {
		if s.Status == model.SubscriptionStatusActive && !s.EndAt.Before(from) && s.EndAt.Before(to) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memSubRepo) CountActive(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cnt := 0
	for _, s := range m.store {
		if s.Status == model.SubscriptionStatusActive && s.EndAt.After(now) {
			cnt++
		}
	}
	return cnt, nil
}

func (m *memSubRepo) ListActiveUserIDs(ctx context.Context, tx repository.Tx, now time.Time) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, s := range m.store {
		if s.Status == model.SubscriptionStatusActive && s.EndAt.After(now) {
			out = append(out, s.UserID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memSubRepo) LockUser(ctx context.Context, tx repository.Tx, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LockCalls = append(m.LockCalls, userID)
	return nil
}

// ---- In-memory ReferralRepository ----

type memReferralRepo struct {
	mu    sync.RWMutex
	pairs map[string]map[string]bool // referrer -> set of referred
}

var _ repository.ReferralRepository = (*memReferralRepo)(nil)

func newMemReferralRepo() *memReferralRepo {
	return &memReferralRepo{pairs: make(map[string]map[string]bool)}
}

func (m *memReferralRepo) Add(ctx context.Context, tx repository.Tx, referrerID, referredID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pairs[referrerID] == nil {
		m.pairs[referrerID] = make(map[string]bool)
	}
	m.pairs[referrerID][referredID] = true
	return nil
}

func (m *memReferralRepo) CountByReferrer(ctx context.Context, tx repository.Tx, referrerID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pairs[referrerID]), nil
}

func (m *memReferralRepo) CountAll(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, set := range m.pairs {
		total += len(set)
	}
	return total, nil
}

func (m *memReferralRepo) ListReferrersWithAtLeast(ctx context.Context, tx repository.Tx, n int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for id, set := range m.pairs {
		if len(set) >= n {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ---- In-memory StateRepository ----

type memStateRepo struct {
	mu     sync.RWMutex
	states map[string]*repository.ConversationState

	ClearStateFunc func(ctx context.Context, userID string) error
}

var _ repository.StateRepository = (*memStateRepo)(nil)

func newMemStateRepo() *memStateRepo {
	return &memStateRepo{states: make(map[string]*repository.ConversationState)}
}

func (m *memStateRepo) SetState(ctx context.Context, userID string, state *repository.ConversationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *state
	m.states[userID] = &cp
	return nil
}

func (m *memStateRepo) GetState(ctx context.Context, userID string) (*repository.ConversationState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[userID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memStateRepo) ClearState(ctx context.Context, userID string) error {
	if m.ClearStateFunc != nil {
		return m.ClearStateFunc(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, userID)
	return nil
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

// WithTx runs the function immediately without a real transaction. Tests
// asserting transactional behavior assign WithTxFunc.
func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, fn)
	}
	return fn(ctx, repository.NoTX)
}

// =============================
// Adapters
// =============================

type sentMessage struct {
	TgID    int64
	Text    string
	FileID  string
	Invoice *adapter.Invoice
}

// MockNotifier captures outbound messages in order.
type MockNotifier struct {
	mu   sync.Mutex
	Sent []sentMessage

	SendMessageFunc func(ctx context.Context, tgID int64, text string) error
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) record(msg sentMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, msg)
}

func (m *MockNotifier) SendMessage(ctx context.Context, tgID int64, text string) error {
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, tgID, text)
	}
	m.record(sentMessage{TgID: tgID, Text: text})
	return nil
}

func (m *MockNotifier) SendButtons(ctx context.Context, tgID int64, text string, rows [][]adapter.InlineButton) error {
	m.record(sentMessage{TgID: tgID, Text: text})
	return nil
}

func (m *MockNotifier) SendPhoto(ctx context.Context, tgID int64, fileID, caption string) error {
	m.record(sentMessage{TgID: tgID, Text: caption, FileID: fileID})
	return nil
}

func (m *MockNotifier) SendDocument(ctx context.Context, tgID int64, fileID, caption string) error {
	m.record(sentMessage{TgID: tgID, Text: caption, FileID: fileID})
	return nil
}

func (m *MockNotifier) SendInvoice(ctx context.Context, tgID int64, inv adapter.Invoice) error {
	m.record(sentMessage{TgID: tgID, Invoice: &inv})
	return nil
}

// MockGroupGate records roster mutations.
type MockGroupGate struct {
	mu      sync.Mutex
	Removed []int64

	CreateInviteLinkFunc func(ctx context.Context, name string, expireAt time.Time) (string, error)
	RemoveMemberFunc     func(ctx context.Context, tgID int64) (bool, error)
}

var _ adapter.GroupGate = (*MockGroupGate)(nil)

func (m *MockGroupGate) CreateInviteLink(ctx context.Context, name string, expireAt time.Time) (string, error) {
	if m.CreateInviteLinkFunc != nil {
		return m.CreateInviteLinkFunc(ctx, name, expireAt)
	}
	return "https://t.me/+invite", nil
}

func (m *MockGroupGate) RemoveMember(ctx context.Context, tgID int64) (bool, error) {
	if m.RemoveMemberFunc != nil {
		return m.RemoveMemberFunc(ctx, tgID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Removed = append(m.Removed, tgID)
	return true, nil
}

func (m *MockGroupGate) IsMember(ctx context.Context, tgID int64) (bool, error) {
	return true, nil
}

// MockLocker hands out the lock unless Busy is set.
type MockLocker struct {
	mu      sync.Mutex
	Busy    bool
	Locked  []string
	Unlocks []string
}

func (m *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Busy {
		return "", domain.ErrUserBusy
	}
	m.Locked = append(m.Locked, key)
	return "tok", nil
}

func (m *MockLocker) Unlock(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Unlocks = append(m.Unlocks, key)
	return nil
}
