// Package cart holds the shopping cart ledger: the authoritative list of
// items a customer intends to buy before an order is placed.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/jcmexdev/pizzeria-storefront/internal/pkg/kvstore"
)

var (
	// ErrPersist wraps storage failures. The in-memory ledger already holds
	// the mutation when it is returned.
	ErrPersist = errors.New("cart: persist failed")

	// ErrInvalidItem is returned for items with a negative price or a
	// quantity below one.
	ErrInvalidItem = errors.New("cart: invalid item")
)

// ChangeKind names the mutation that produced a Change.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeMerged   ChangeKind = "merged"
	ChangeQuantity ChangeKind = "quantity"
	ChangeRemoved  ChangeKind = "removed"
	ChangeCleared  ChangeKind = "cleared"
)

// Change is delivered to subscribers after every mutation. Each subscriber
// receives its own copy of Items.
type Change struct {
	Kind   ChangeKind
	LineID string
	Items  []LineItem
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithDeliveryFee overrides DefaultDeliveryFee.
func WithDeliveryFee(fee int64) Option {
	return func(l *Ledger) { l.deliveryFee = fee }
}

// WithIDGenerator replaces the uuid line id generator.
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) { l.newID = gen }
}

// Ledger is safe for concurrent use.
type Ledger struct {
	mu          sync.Mutex
	store       kvstore.Store
	items       []LineItem
	deliveryFee int64
	newID       func() string

	subMu  sync.Mutex
	subs   map[int]func(Change)
	nextID int
}

// Open hydrates a ledger from store. A missing or unreadable cart yields an
// empty ledger; read failures are logged and never block the customer.
func Open(ctx context.Context, store kvstore.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:       store,
		deliveryFee: DefaultDeliveryFee,
		newID:       uuid.NewString,
		subs:        make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(l)
	}

	var saved []LineItem
	err := kvstore.GetJSON(ctx, store, StorageKey, &saved)
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
	case err != nil:
		slog.WarnContext(ctx, "failed to load cart from storage", "error", err)
	default:
		l.items = l.sanitize(saved)
	}

	return l
}

// sanitize drops lines that break the ledger invariants and fills in
// missing or duplicated ids.
func (l *Ledger) sanitize(saved []LineItem) []LineItem {
	seen := make(map[string]bool, len(saved))
	out := make([]LineItem, 0, len(saved))
	for _, it := range saved {
		if it.Quantity < 1 || it.UnitPrice < 0 {
			continue
		}
		if it.ID == "" || seen[it.ID] {
			it.ID = l.newID()
		}
		seen[it.ID] = true
		out = append(out, it)
	}
	return out
}

// AddItem merges item into the line with the same merge key, or appends it
// as a new line with a freshly generated id. The returned line reflects the
// ledger after the addition. A non-nil error wrapping ErrPersist means the
// addition happened but could not be saved.
func (l *Ledger) AddItem(ctx context.Context, item LineItem) (LineItem, error) {
	if item.Quantity < 1 || item.UnitPrice < 0 {
		return LineItem{}, fmt.Errorf("%w: quantity %d, price %d", ErrInvalidItem, item.Quantity, item.UnitPrice)
	}

	l.mu.Lock()
	key := item.MergeKey()
	idx := slices.IndexFunc(l.items, func(it LineItem) bool { return it.MergeKey() == key })

	var (
		line LineItem
		kind ChangeKind
	)
	if idx >= 0 {
		l.items[idx].Quantity += item.Quantity
		line = l.items[idx]
		kind = ChangeMerged
	} else {
		item.ID = l.newID()
		l.items = append(l.items, item)
		line = item
		kind = ChangeAdded
	}
	err := l.persistLocked(ctx)
	snapshot := slices.Clone(l.items)
	l.mu.Unlock()

	l.notify(Change{Kind: kind, LineID: line.ID, Items: snapshot})
	return line, err
}

// UpdateQuantity sets the quantity of line id. Quantities below one are
// ignored: removal only happens through RemoveItem. Unknown ids are a no-op.
func (l *Ledger) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	if quantity < 1 {
		return nil
	}

	l.mu.Lock()
	idx := slices.IndexFunc(l.items, func(it LineItem) bool { return it.ID == id })
	if idx < 0 {
		l.mu.Unlock()
		return nil
	}
	l.items[idx].Quantity = quantity
	err := l.persistLocked(ctx)
	snapshot := slices.Clone(l.items)
	l.mu.Unlock()

	l.notify(Change{Kind: ChangeQuantity, LineID: id, Items: snapshot})
	return err
}

// RemoveItem deletes line id. Removing an absent id is a no-op.
func (l *Ledger) RemoveItem(ctx context.Context, id string) error {
	l.mu.Lock()
	before := len(l.items)
	l.items = slices.DeleteFunc(l.items, func(it LineItem) bool { return it.ID == id })
	if len(l.items) == before {
		l.mu.Unlock()
		return nil
	}
	err := l.persistLocked(ctx)
	snapshot := slices.Clone(l.items)
	l.mu.Unlock()

	l.notify(Change{Kind: ChangeRemoved, LineID: id, Items: snapshot})
	return err
}

// Clear empties the ledger and persists the empty collection.
func (l *Ledger) Clear(ctx context.Context) error {
	l.mu.Lock()
	l.items = nil
	err := l.persistLocked(ctx)
	l.mu.Unlock()

	l.notify(Change{Kind: ChangeCleared, Items: []LineItem{}})
	return err
}

// Checkout hands fn a copy of the lines and the totals computed from that
// same copy, then clears the ledger only if fn succeeds. The ledger lock is
// held throughout, so no mutation can land between the read and the clear;
// fn must not call back into the ledger. An error from fn is returned as is
// and leaves the ledger untouched. A failed clear persist is returned
// wrapping ErrPersist after the in-memory ledger has been emptied.
func (l *Ledger) Checkout(ctx context.Context, fn func(items []LineItem, totals Totals) error) error {
	l.mu.Lock()
	items := slices.Clone(l.items)
	if items == nil {
		items = []LineItem{}
	}
	if err := fn(items, ComputeTotals(items, l.deliveryFee)); err != nil {
		l.mu.Unlock()
		return err
	}
	l.items = nil
	err := l.persistLocked(ctx)
	l.mu.Unlock()

	l.notify(Change{Kind: ChangeCleared})
	return err
}

// Items returns a copy of the current lines.
func (l *Ledger) Items() []LineItem {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]LineItem, len(l.items))
	copy(out, l.items)
	return out
}

// Len reports the number of lines.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Totals computes subtotal, delivery fee and total. It has no side effects.
func (l *Ledger) Totals() Totals {
	l.mu.Lock()
	defer l.mu.Unlock()
	return ComputeTotals(l.items, l.deliveryFee)
}

// Subscribe registers fn for every future mutation and returns a function
// that removes it. fn runs on the mutating goroutine after the ledger lock
// is released.
func (l *Ledger) Subscribe(fn func(Change)) (unsubscribe func()) {
	l.subMu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = fn
	l.subMu.Unlock()

	return func() {
		l.subMu.Lock()
		delete(l.subs, id)
		l.subMu.Unlock()
	}
}

// Close performs the final persist.
func (l *Ledger) Close(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.persistLocked(ctx)
}

func (l *Ledger) notify(c Change) {
	l.subMu.Lock()
	subs := make([]func(Change), 0, len(l.subs))
	for _, fn := range l.subs {
		subs = append(subs, fn)
	}
	l.subMu.Unlock()

	for _, fn := range subs {
		own := c
		own.Items = slices.Clone(c.Items)
		if own.Items == nil {
			own.Items = []LineItem{}
		}
		fn(own)
	}
}

func (l *Ledger) persistLocked(ctx context.Context) error {
	items := l.items
	if items == nil {
		items = []LineItem{}
	}
	if err := kvstore.PutJSON(ctx, l.store, StorageKey, items, 0); err != nil {
		slog.WarnContext(ctx, "failed to persist cart", "lines", len(items), "error", err)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}
