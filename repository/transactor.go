package repository

import (
	"context"

	"gorm.io/gorm"
)

// Stores is the set of repositories that must change together.
type Stores struct {
	Carts       AbandonedCartRepository
	Consents    ConsentRepository
	Subscribers SubscriberRepository
}

// Transactor runs fn against Stores bound to one transaction. Any error from
// fn rolls every write back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(Stores) error) error
}

// GormTransactor implements Transactor with gorm transactions.
type GormTransactor struct {
	db *gorm.DB
}

func NewGormTransactor(db *gorm.DB) Transactor {
	return &GormTransactor{db: db}
}

func (t *GormTransactor) WithinTx(ctx context.Context, fn func(Stores) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(Stores{
			Carts:       NewGormAbandonedCartRepository(tx),
			Consents:    NewGormConsentRepository(tx),
			Subscribers: NewGormSubscriberRepository(tx),
		})
	})
}
