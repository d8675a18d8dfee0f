package services_test

import (
	"context"
	"sync"
	"time"

	"storefront-service/models"
	"storefront-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func testLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

// --- carts ---

type fakeCartRepo struct {
	mu         sync.Mutex
	byToken    map[string]*models.AbandonedCart
	createErrs []error
	creates    int
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{byToken: make(map[string]*models.AbandonedCart)}
}

func (f *fakeCartRepo) Create(_ context.Context, cart *models.AbandonedCart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	if _, exists := f.byToken[cart.SessionToken]; exists {
		return gorm.ErrDuplicatedKey
	}
	cart.ID = uuid.New()
	cart.CreatedAt = time.Now()
	cp := *cart
	f.byToken[cart.SessionToken] = &cp
	return nil
}

func (f *fakeCartRepo) FindByToken(_ context.Context, token string) (*models.AbandonedCart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byToken[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCartRepo) RefreshActive(_ context.Context, cart *models.AbandonedCart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byToken[cart.SessionToken]
	if !ok || c.Status != models.CartStatusActive {
		return gorm.ErrRecordNotFound
	}
	cp := *cart
	f.byToken[cart.SessionToken] = &cp
	return nil
}

func (f *fakeCartRepo) Suppress(_ context.Context, token string, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byToken[token]
	if !ok || c.Status != models.CartStatusActive {
		return 0, nil
	}
	c.Status = models.CartStatusSuppressed
	c.SuppressedAt = &at
	return 1, nil
}

func (f *fakeCartRepo) SuppressActiveByEmail(_ context.Context, email string, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, c := range f.byToken {
		if c.Email == email && c.Status == models.CartStatusActive {
			c.Status = models.CartStatusSuppressed
			c.SuppressedAt = &at
			n++
		}
	}
	return n, nil
}

func (f *fakeCartRepo) MarkPurchased(_ context.Context, token string, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byToken[token]
	if !ok || c.Status == models.CartStatusPurchased {
		return 0, nil
	}
	c.Status = models.CartStatusPurchased
	c.PurchasedAt = &at
	return 1, nil
}

func (f *fakeCartRepo) FindDueReminders(_ context.Context, createdBefore, now time.Time, limit int) ([]models.AbandonedCart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AbandonedCart
	for _, c := range f.byToken {
		if c.Status == models.CartStatusActive && c.ReminderSentAt == nil && !c.CreatedAt.After(createdBefore) && c.ExpiresAt.After(now) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCartRepo) MarkReminderSent(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.byToken {
		if c.ID == id {
			c.ReminderSentAt = &at
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeCartRepo) put(c *models.AbandonedCart) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	f.byToken[c.SessionToken] = c
}

func (f *fakeCartRepo) get(token string) *models.AbandonedCart {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byToken[token]
}

// --- consents ---

type fakeConsentRepo struct {
	mu      sync.Mutex
	records []models.ConsentRecord
	err     error
}

func (f *fakeConsentRepo) Create(_ context.Context, rec *models.ConsentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	rec.ID = uint(len(f.records) + 1)
	rec.CreatedAt = time.Now()
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeConsentRepo) ListCreatedBetween(_ context.Context, from, to time.Time) ([]models.ConsentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ConsentRecord
	for _, r := range f.records {
		if !r.CreatedAt.Before(from) && r.CreatedAt.Before(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

// --- subscribers ---

type fakeSubscriberRepo struct {
	mu        sync.Mutex
	byMail    map[string]*models.Subscriber
	writes    int
	upsertErr error
}

func newFakeSubscriberRepo() *fakeSubscriberRepo {
	return &fakeSubscriberRepo{byMail: make(map[string]*models.Subscriber)}
}

func (f *fakeSubscriberRepo) FindByEmail(_ context.Context, email string) (*models.Subscriber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byMail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSubscriberRepo) UpsertSubscribed(_ context.Context, email, source string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.writes++
	s, ok := f.byMail[email]
	if !ok {
		s = &models.Subscriber{Email: email}
		f.byMail[email] = s
	}
	s.Status = models.SubscriberStatusSubscribed
	s.Source = source
	s.SubscribedAt = &at
	s.UnsubscribedAt = nil
	return nil
}

func (f *fakeSubscriberRepo) UpsertUnsubscribed(_ context.Context, email string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.writes++
	s, ok := f.byMail[email]
	if !ok {
		s = &models.Subscriber{Email: email, Source: models.ConsentTypeWithdrawal}
		f.byMail[email] = s
	}
	s.Status = models.SubscriberStatusUnsubscribed
	s.UnsubscribedAt = &at
	return nil
}

func (f *fakeSubscriberRepo) UnsubscribedAmong(_ context.Context, emails []string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]bool)
	for _, e := range emails {
		if s, ok := f.byMail[e]; ok && s.Status == models.SubscriberStatusUnsubscribed {
			out[e] = true
		}
	}
	return out, nil
}

// --- transactions ---

// fakeTransactor hands out the shared fakes and restores their contents when
// fn fails, like a rollback.
type fakeTransactor struct {
	carts    *fakeCartRepo
	consents *fakeConsentRepo
	subs     *fakeSubscriberRepo
	calls    int
}

func newTestTransactor(consents *fakeConsentRepo, subs *fakeSubscriberRepo) *fakeTransactor {
	return &fakeTransactor{carts: newFakeCartRepo(), consents: consents, subs: subs}
}

func (f *fakeTransactor) WithinTx(_ context.Context, fn func(repository.Stores) error) error {
	f.calls++

	f.carts.mu.Lock()
	carts := make(map[string]*models.AbandonedCart, len(f.carts.byToken))
	for k, c := range f.carts.byToken {
		cp := *c
		carts[k] = &cp
	}
	f.carts.mu.Unlock()

	f.consents.mu.Lock()
	nConsents := len(f.consents.records)
	f.consents.mu.Unlock()

	f.subs.mu.Lock()
	subs := make(map[string]*models.Subscriber, len(f.subs.byMail))
	for k, s := range f.subs.byMail {
		cp := *s
		subs[k] = &cp
	}
	f.subs.mu.Unlock()

	err := fn(repository.Stores{Carts: f.carts, Consents: f.consents, Subscribers: f.subs})
	if err == nil {
		return nil
	}

	f.carts.mu.Lock()
	f.carts.byToken = carts
	f.carts.mu.Unlock()
	f.consents.mu.Lock()
	f.consents.records = f.consents.records[:nConsents]
	f.consents.mu.Unlock()
	f.subs.mu.Lock()
	f.subs.byMail = subs
	f.subs.mu.Unlock()
	return err
}

// --- deals ---

type fakeDealRepo struct {
	deals map[string]*models.WeeklyDeal
	err   error
}

func (f *fakeDealRepo) FindByIDs(_ context.Context, ids []string) (map[string]*models.WeeklyDeal, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]*models.WeeklyDeal)
	for _, id := range ids {
		if d, ok := f.deals[id]; ok {
			out[id] = d
		}
	}
	return out, nil
}

// --- orders ---

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]models.Order
}

func (f *fakeOrderRepo) CreateIfAbsent(_ context.Context, order *models.Order) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.orders == nil {
		f.orders = make(map[string]models.Order)
	}
	if _, ok := f.orders[order.StripeSessionID]; ok {
		return false, nil
	}
	order.ID = uuid.New()
	f.orders[order.StripeSessionID] = *order
	return true, nil
}

// --- restore store ---

type fakeRestoreStore struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newFakeRestoreStore() *fakeRestoreStore {
	return &fakeRestoreStore{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (f *fakeRestoreStore) Put(_ context.Context, nonce string, payload []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[nonce] = payload
	f.ttls[nonce] = ttl
	return nil
}

func (f *fakeRestoreStore) Take(_ context.Context, nonce string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.data[nonce]
	if !ok {
		return nil, repository.ErrRestoreStateGone
	}
	delete(f.data, nonce)
	return b, nil
}

// --- sns ---

type publishedEvent struct {
	topicArn  string
	eventType string
	body      []byte
}

type mockSNSPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (m *mockSNSPublisher) Publish(_ context.Context, topicArn, eventType string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{topicArn: topicArn, eventType: eventType, body: message})
	return nil
}

func (m *mockSNSPublisher) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.events {
		out = append(out, e.eventType)
	}
	return out
}
