package cart

// StorageKey is where a session's ledger lives in its key/value scope.
const StorageKey = "shoppingCart"

// DefaultDeliveryFee is the flat surcharge, in COP, applied to any non-empty cart.
const DefaultDeliveryFee int64 = 12000

// LineItem is one line of the cart. Prices are integers in the minor
// currency unit (whole COP for this storefront).
type LineItem struct {
	ID        string `json:"id"`
	ProductID string `json:"productId,omitempty"`
	Name      string `json:"name"`
	Size      string `json:"size"`
	UnitPrice int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Image     string `json:"image"`
}

// Subtotal is UnitPrice × Quantity.
func (i LineItem) Subtotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// MergeKey identifies the product/size pair used to merge additions.
// Lines without a ProductID fall back to their display name.
func (i LineItem) MergeKey() MergeKey {
	product := i.ProductID
	if product == "" {
		product = i.Name
	}
	return MergeKey{Product: product, Size: i.Size}
}

// MergeKey is distinct from the line ID: two additions of the same product
// in the same size share a line.
type MergeKey struct {
	Product string
	Size    string
}

// Totals are derived from the ledger contents; they are never stored.
type Totals struct {
	Subtotal    int64 `json:"subtotal"`
	DeliveryFee int64 `json:"deliveryFee"`
	Total       int64 `json:"total"`
}

// ComputeTotals applies the pricing rule to a line sequence.
func ComputeTotals(items []LineItem, deliveryFee int64) Totals {
	var subtotal int64
	for _, it := range items {
		subtotal += it.Subtotal()
	}

	var fee int64
	if subtotal > 0 {
		fee = deliveryFee
	}

	return Totals{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Total:       subtotal + fee,
	}
}
