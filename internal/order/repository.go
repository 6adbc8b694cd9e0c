package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jcmexdev/pizzeria-storefront/internal/pkg/kvstore"
)

// Key is the storage key of an order snapshot.
func Key(orderID string) string {
	return "order_" + orderID
}

// Repository reads and writes snapshots in a key/value scope.
type Repository struct {
	store     kvstore.Store
	retention time.Duration
}

// NewRepository builds a repository. A zero retention keeps snapshots
// forever; a positive one lets the backend expire them.
func NewRepository(store kvstore.Store, retention time.Duration) *Repository {
	return &Repository{store: store, retention: retention}
}

func (r *Repository) Save(ctx context.Context, s *Snapshot) error {
	if err := kvstore.PutJSON(ctx, r.store, Key(s.OrderID), s, r.retention); err != nil {
		return fmt.Errorf("order: save %s: %w", s.OrderID, err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, orderID string) (*Snapshot, error) {
	if orderID == "" {
		return nil, ErrNotFound
	}

	var s Snapshot
	err := kvstore.GetJSON(ctx, r.store, Key(orderID), &s)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("order: get %s: %w", orderID, err)
	}
	return &s, nil
}
