package repositories

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the repositories that share one database handle, so a group
// of writes can run in a single transaction.
type Store struct {
	db       *gorm.DB
	Users    UserRepository
	Products ProductRepository
	Carts    CartRepository
	Orders   OrderRepository
	Outbox   OutboxRepository
}

// NewStore builds GORM repositories over db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:       db,
		Users:    NewGORMUserRepository(db),
		Products: NewGORMProductRepository(db),
		Carts:    NewGORMCartRepository(db),
		Orders:   NewGORMOrderRepository(db),
		Outbox:   NewGORMOutboxRepository(db),
	}
}

// Transaction runs fn with a Store bound to a new transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
