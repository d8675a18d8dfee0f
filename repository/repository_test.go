package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"storefront-service/models"
	"storefront-service/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
	return gormDB, mock
}

var cartColumns = []string{
	"id", "email", "session_token", "cart_snapshot", "deal_id", "postal_code",
	"shipping_zone", "cart_total", "status", "created_at", "updated_at", "expires_at",
}

func TestAbandonedCart_Create(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormAbandonedCartRepository(gormDB)

	cart := &models.AbandonedCart{
		Email:        "buyer@example.com",
		SessionToken: "tok",
		CartSnapshot: models.CartItems{{ID: "sku1", Quantity: 2, Price: 500}},
		CartTotal:    1000,
		Status:       models.CartStatusActive,
		ExpiresAt:    time.Now().Add(models.AbandonedCartTTL),
	}
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "abandoned_carts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id.String()))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), cart))
	assert.Equal(t, id, cart.ID)
}

func TestAbandonedCart_FindByToken(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormAbandonedCartRepository(gormDB)

	id := uuid.New()
	now := time.Now()
	rows := sqlmock.NewRows(cartColumns).AddRow(
		id.String(), "buyer@example.com", "tok-1", []byte(`[{"id":"sku1","quantity":2,"price":500,"dealId":"d1"}]`),
		"d1", "M5V 2T6", "ON-GTA", int64(1000), "suppressed", now, now, now.Add(time.Hour),
	)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "abandoned_carts" WHERE session_token = $1`)).
		WillReturnRows(rows)

	cart, err := repo.FindByToken(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, id, cart.ID)
	assert.Equal(t, models.CartStatusSuppressed, cart.Status)
	require.Len(t, cart.CartSnapshot, 1)
	assert.Equal(t, "d1", cart.CartSnapshot[0].DealID)
}

func TestAbandonedCart_FindByToken_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormAbandonedCartRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "abandoned_carts"`)).
		WillReturnRows(sqlmock.NewRows(cartColumns))

	cart, err := repo.FindByToken(context.Background(), "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Nil(t, cart)
}

func TestAbandonedCart_MarkPurchased_ReportsRows(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormAbandonedCartRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "abandoned_carts" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := repo.MarkPurchased(context.Background(), "tok-1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAbandonedCart_Suppress_NoMatchingRow(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormAbandonedCartRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "abandoned_carts" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	n, err := repo.Suppress(context.Background(), "tok-purchased", time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAbandonedCart_RefreshActive_NotActive(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormAbandonedCartRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "abandoned_carts" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.RefreshActive(context.Background(), &models.AbandonedCart{ID: uuid.New(), CartTotal: 10})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAbandonedCart_FindDueReminders(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormAbandonedCartRepository(gormDB)

	now := time.Now()
	rows := sqlmock.NewRows(cartColumns).
		AddRow(uuid.New().String(), "a@example.com", "t1", []byte(`[]`), "", "", "", int64(100), "active", now, now, now.Add(time.Hour)).
		AddRow(uuid.New().String(), "b@example.com", "t2", []byte(`[]`), "", "", "", int64(200), "active", now, now, now.Add(time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "abandoned_carts" WHERE status = $1 AND reminder_sent_at IS NULL`)).
		WillReturnRows(rows)

	carts, err := repo.FindDueReminders(context.Background(), now.Add(-time.Hour), now, 100)
	require.NoError(t, err)
	assert.Len(t, carts, 2)
}

func TestSubscriber_UpsertSubscribed(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormSubscriberRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "subscribers"`) + `.*ON CONFLICT \("email"\) DO UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	require.NoError(t, repo.UpsertSubscribed(context.Background(), "buyer@example.com", "footer", time.Now()))
}

func TestSubscriber_UnsubscribedAmong(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormSubscriberRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "email" FROM "subscribers"`)).
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("b@example.com"))

	got, err := repo.UnsubscribedAmong(context.Background(), []string{"a@example.com", "b@example.com"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"b@example.com": true}, got)
}

func TestSubscriber_FindByEmail(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormSubscriberRepository(gormDB)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "subscribers" WHERE email = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "status", "source", "created_at", "updated_at"}).
			AddRow(1, "buyer@example.com", "unsubscribed", "footer", now, now))

	sub, err := repo.FindByEmail(context.Background(), "buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.SubscriberStatusUnsubscribed, sub.Status)
}

func TestConsent_Create(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormConsentRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "consent_records"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectCommit()

	rec := &models.ConsentRecord{Email: "buyer@example.com", ConsentType: models.ConsentTypeNewsletter}
	require.NoError(t, repo.Create(context.Background(), rec))
	assert.Equal(t, uint(42), rec.ID)
}

func TestConsent_ListCreatedBetween(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormConsentRepository(gormDB)

	from := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "consent_records" WHERE created_at >= $1 AND created_at < $2 ORDER BY id ASC`)).
		WithArgs(from, from.Add(24*time.Hour)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "consent_type", "created_at"}).
			AddRow(1, "a@example.com", "newsletter", from.Add(time.Hour)).
			AddRow(2, "a@example.com", "withdrawal", from.Add(2*time.Hour)))

	recs, err := repo.ListCreatedBetween(context.Background(), from, from.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, models.ConsentTypeWithdrawal, recs[1].ConsentType)
}

func TestDeal_FindByIDs(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormDealRepository(gormDB)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "weekly_deals" WHERE id IN ($1,$2)`)).
		WithArgs("d1", "d2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_active", "starts_at", "ends_at"}).
			AddRow("d1", true, now.Add(-time.Hour), now.Add(time.Hour)))

	deals, err := repo.FindByIDs(context.Background(), []string{"d1", "d2"})
	require.NoError(t, err)
	assert.Contains(t, deals, "d1")
	assert.NotContains(t, deals, "d2")
}

func TestDeal_FindByIDs_EmptySkipsQuery(t *testing.T) {
	gormDB, _ := setupMockDB(t)
	repo := repository.NewGormDealRepository(gormDB)

	deals, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, deals)
}

func TestOrder_CreateIfAbsent(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "orders"`) + `.*ON CONFLICT \("stripe_session_id"\) DO NOTHING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectCommit()

	created, err := repo.CreateIfAbsent(context.Background(), &models.Order{StripeSessionID: "cs_1", Status: models.OrderStatusPaid})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestOrder_CreateIfAbsent_Duplicate(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "orders"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	created, err := repo.CreateIfAbsent(context.Background(), &models.Order{StripeSessionID: "cs_1", Status: models.OrderStatusPaid})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestTransactor_CommitsBothWrites(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	tx := repository.NewGormTransactor(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "consent_records"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "subscribers"`) + `.*ON CONFLICT \("email"\) DO UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectCommit()

	err := tx.WithinTx(context.Background(), func(st repository.Stores) error {
		rec := &models.ConsentRecord{Email: "buyer@example.com", ConsentType: models.ConsentTypeWithdrawal}
		if err := st.Consents.Create(context.Background(), rec); err != nil {
			return err
		}
		return st.Subscribers.UpsertUnsubscribed(context.Background(), "buyer@example.com", time.Now())
	})
	require.NoError(t, err)
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	tx := repository.NewGormTransactor(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "consent_records"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "subscribers"`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := tx.WithinTx(context.Background(), func(st repository.Stores) error {
		rec := &models.ConsentRecord{Email: "buyer@example.com", ConsentType: models.ConsentTypeWithdrawal}
		if err := st.Consents.Create(context.Background(), rec); err != nil {
			return err
		}
		return st.Subscribers.UpsertUnsubscribed(context.Background(), "buyer@example.com", time.Now())
	})
	assert.EqualError(t, err, "connection reset")
}
