package cart

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/pizzeria-storefront/internal/pkg/kvstore"
)

// flakyStore fails every write while failWrites is set.
type flakyStore struct {
	*kvstore.Memory
	failWrites bool
}

func (f *flakyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if f.failWrites {
		return errors.New("quota exceeded")
	}
	return f.Memory.Set(ctx, key, value, ttl)
}

func sequentialIDs() Option {
	n := 0
	return WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("line-%d", n)
	})
}

func margherita(size string, qty int) LineItem {
	return LineItem{ProductID: "1", Name: "Clásica Margherita", Size: size, UnitPrice: 10000, Quantity: qty, Image: "./marguerita.jpg"}
}

func TestAddItemMergesSameProductAndSize(t *testing.T) {
	ctx := context.Background()
	l := Open(ctx, kvstore.NewMemory(), sequentialIDs())

	for _, q := range []int{1, 2, 4} {
		_, err := l.AddItem(ctx, margherita("medium", q))
		require.NoError(t, err)
	}

	items := l.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 7, items[0].Quantity)
	assert.Equal(t, "line-1", items[0].ID)
}

func TestAddItemDistinctKeysAppend(t *testing.T) {
	ctx := context.Background()
	l := Open(ctx, kvstore.NewMemory(), sequentialIDs())

	adds := []LineItem{
		margherita("small", 1),
		margherita("large", 1),
		{ProductID: "2", Name: "Pepperoni Suprema", Size: "small", UnitPrice: 12000, Quantity: 1},
		{Name: "Custom", Size: "small", UnitPrice: 9000, Quantity: 1},
	}
	for i, it := range adds {
		line, err := l.AddItem(ctx, it)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("line-%d", i+1), line.ID)
		assert.Equal(t, i+1, l.Len())
	}

	// Name stands in for a missing product id.
	_, err := l.AddItem(ctx, LineItem{Name: "Custom", Size: "small", UnitPrice: 9000, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, l.Len())
	assert.Equal(t, 4, l.Items()[3].Quantity)
}

func TestAddItemIgnoresCallerLineID(t *testing.T) {
	ctx := context.Background()
	l := Open(ctx, kvstore.NewMemory(), sequentialIDs())

	it := margherita("medium", 1)
	it.ID = "client-chosen"
	line, err := l.AddItem(ctx, it)
	require.NoError(t, err)
	assert.Equal(t, "line-1", line.ID)
}

func TestAddItemRejectsMalformedInput(t *testing.T) {
	ctx := context.Background()
	l := Open(ctx, kvstore.NewMemory())

	_, err := l.AddItem(ctx, margherita("medium", 0))
	require.ErrorIs(t, err, ErrInvalidItem)

	bad := margherita("medium", 1)
	bad.UnitPrice = -1
	_, err = l.AddItem(ctx, bad)
	require.ErrorIs(t, err, ErrInvalidItem)

	assert.Zero(t, l.Len())
}

func TestUpdateQuantityIgnoresNonPositive(t *testing.T) {
	ctx := context.Background()
	l := Open(ctx, kvstore.NewMemory())
	line, err := l.AddItem(ctx, margherita("medium", 3))
	require.NoError(t, err)

	for _, q := range []int{0, -1} {
		require.NoError(t, l.UpdateQuantity(ctx, line.ID, q))
		assert.Equal(t, 3, l.Items()[0].Quantity)
	}

	require.NoError(t, l.UpdateQuantity(ctx, line.ID, 5))
	assert.Equal(t, 5, l.Items()[0].Quantity)

	require.NoError(t, l.UpdateQuantity(ctx, "nope", 2))
	assert.Equal(t, 5, l.Items()[0].Quantity)
}

func TestRemoveItem(t *testing.T) {
	ctx := context.Background()
	l := Open(ctx, kvstore.NewMemory())
	a, _ := l.AddItem(ctx, margherita("small", 1))
	b, _ := l.AddItem(ctx, margherita("large", 1))

	require.NoError(t, l.RemoveItem(ctx, "does-not-exist"))
	assert.Equal(t, 2, l.Len())

	require.NoError(t, l.RemoveItem(ctx, a.ID))
	items := l.Items()
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ID)

	require.NoError(t, l.RemoveItem(ctx, a.ID))
}

func TestItemsReturnsCopy(t *testing.T) {
	ctx := context.Background()
	l := Open(ctx, kvstore.NewMemory())
	_, _ = l.AddItem(ctx, margherita("medium", 1))

	items := l.Items()
	items[0].Quantity = 99

	assert.Equal(t, 1, l.Items()[0].Quantity)
	assert.Equal(t, 1, l.Len())
}

func TestTotals(t *testing.T) {
	ctx := context.Background()
	l := Open(ctx, kvstore.NewMemory())

	empty := l.Totals()
	assert.Equal(t, Totals{}, empty)

	_, _ = l.AddItem(ctx, LineItem{ProductID: "a", Size: "m", UnitPrice: 10000, Quantity: 2})
	_, _ = l.AddItem(ctx, LineItem{ProductID: "b", Size: "m", UnitPrice: 5000, Quantity: 1})

	first := l.Totals()
	second := l.Totals()
	assert.Equal(t, first, second)
	assert.Equal(t, Totals{Subtotal: 25000, DeliveryFee: 12000, Total: 37000}, first)
}

func TestTotalsFreeItemsHaveNoDeliveryFee(t *testing.T) {
	totals := ComputeTotals([]LineItem{{UnitPrice: 0, Quantity: 3}}, 12000)
	assert.Equal(t, Totals{}, totals)
}

func TestWithDeliveryFee(t *testing.T) {
	ctx := context.Background()
	l := Open(ctx, kvstore.NewMemory(), WithDeliveryFee(5000))
	_, _ = l.AddItem(ctx, margherita("medium", 1))
	assert.Equal(t, int64(15000), l.Totals().Total)
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	l := Open(ctx, store)
	_, _ = l.AddItem(ctx, margherita("small", 2))
	_, _ = l.AddItem(ctx, LineItem{ProductID: "3", Name: "Vegetariana Deluxe", Size: "xl", UnitPrice: 15000, Quantity: 1, Image: "./veg.jpg"})

	reloaded := Open(ctx, store)
	assert.Equal(t, l.Items(), reloaded.Items())
}

func TestClearPersistsEmptyCollection(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	l := Open(ctx, store)
	_, _ = l.AddItem(ctx, margherita("small", 2))

	require.NoError(t, l.Clear(ctx))
	assert.Empty(t, l.Items())

	raw, err := store.Get(ctx, StorageKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestOpenToleratesCorruptStorage(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	require.NoError(t, store.Set(ctx, StorageKey, []byte("{garbage"), 0))

	l := Open(ctx, store)
	assert.Zero(t, l.Len())

	_, err := l.AddItem(ctx, margherita("medium", 1))
	require.NoError(t, err)
}

func TestOpenDropsInvalidAndDuplicateLines(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	saved := `[
		{"id":"a","name":"x","size":"s","price":100,"quantity":1},
		{"id":"a","name":"y","size":"s","price":100,"quantity":2},
		{"id":"b","name":"z","size":"s","price":100,"quantity":0}
	]`
	require.NoError(t, store.Set(ctx, StorageKey, []byte(saved), 0))

	l := Open(ctx, store, sequentialIDs())
	items := l.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "line-1", items[1].ID)
}

func TestPersistFailureKeepsMemoryAuthoritative(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Memory: kvstore.NewMemory()}
	l := Open(ctx, store)

	store.failWrites = true
	line, err := l.AddItem(ctx, margherita("medium", 2))
	require.ErrorIs(t, err, ErrPersist)
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, 1, l.Len())

	err = l.UpdateQuantity(ctx, line.ID, 4)
	require.ErrorIs(t, err, ErrPersist)
	assert.Equal(t, 4, l.Items()[0].Quantity)

	store.failWrites = false
	require.NoError(t, l.Close(ctx))
	assert.Equal(t, l.Items(), Open(ctx, store).Items())
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	l := Open(ctx, kvstore.NewMemory())

	var kinds []ChangeKind
	unsubscribe := l.Subscribe(func(c Change) { kinds = append(kinds, c.Kind) })

	line, _ := l.AddItem(ctx, margherita("medium", 1))
	_, _ = l.AddItem(ctx, margherita("medium", 1))
	_ = l.UpdateQuantity(ctx, line.ID, 3)
	_ = l.UpdateQuantity(ctx, line.ID, 0)
	_ = l.RemoveItem(ctx, line.ID)
	_ = l.RemoveItem(ctx, line.ID)
	_ = l.Clear(ctx)

	assert.Equal(t, []ChangeKind{ChangeAdded, ChangeMerged, ChangeQuantity, ChangeRemoved, ChangeCleared}, kinds)

	unsubscribe()
	_, _ = l.AddItem(ctx, margherita("medium", 1))
	assert.Len(t, kinds, 5)
}

func TestSubscriberSeesSnapshot(t *testing.T) {
	ctx := context.Background()
	l := Open(ctx, kvstore.NewMemory())

	var last Change
	l.Subscribe(func(c Change) {
		last = c
		// Reading the ledger from a subscriber must not deadlock.
		_ = l.Items()
	})

	line, _ := l.AddItem(ctx, margherita("large", 2))
	assert.Equal(t, line.ID, last.LineID)
	require.Len(t, last.Items, 1)
	assert.Equal(t, 2, last.Items[0].Quantity)
}

func TestSubscribersGetPrivateItems(t *testing.T) {
	ctx := context.Background()
	l := Open(ctx, kvstore.NewMemory())

	var seen []int
	for range 2 {
		l.Subscribe(func(c Change) {
			seen = append(seen, c.Items[0].Quantity)
			c.Items[0].Quantity = 99
		})
	}

	_, err := l.AddItem(ctx, margherita("medium", 3))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3}, seen)
	assert.Equal(t, 3, l.Items()[0].Quantity)
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	l := Open(ctx, store, WithDeliveryFee(1000))
	_, err := l.AddItem(ctx, margherita("medium", 2))
	require.NoError(t, err)

	var cleared bool
	l.Subscribe(func(c Change) { cleared = c.Kind == ChangeCleared })

	t.Run("failed callback keeps the cart", func(t *testing.T) {
		errSave := errors.New("save failed")
		err := l.Checkout(ctx, func([]LineItem, Totals) error { return errSave })
		require.ErrorIs(t, err, errSave)
		assert.Equal(t, 1, l.Len())
		assert.False(t, cleared)
	})

	t.Run("success clears after handing over a consistent copy", func(t *testing.T) {
		var (
			got    []LineItem
			totals Totals
		)
		err := l.Checkout(ctx, func(items []LineItem, tt Totals) error {
			got, totals = items, tt
			return nil
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, ComputeTotals(got, 1000), totals)
		assert.Equal(t, int64(21000), totals.Total)
		assert.Zero(t, l.Len())
		assert.True(t, cleared)
		assert.Empty(t, Open(ctx, store).Items())
	})

	t.Run("clear persist failure is reported after the snapshot", func(t *testing.T) {
		flaky := &flakyStore{Memory: kvstore.NewMemory()}
		fl := Open(ctx, flaky)
		_, err := fl.AddItem(ctx, margherita("small", 1))
		require.NoError(t, err)

		flaky.failWrites = true
		called := false
		err = fl.Checkout(ctx, func([]LineItem, Totals) error {
			called = true
			return nil
		})
		require.ErrorIs(t, err, ErrPersist)
		assert.True(t, called)
		assert.Zero(t, fl.Len())
	})
}
