package cart

import "sync"

// Line is one product entry in a buyer's cart. Identity key is ProductID.
type Line struct {
	ProductID      int64  `json:"product_id"`
	ShopID         int64  `json:"shop_id"`
	ShopName       string `json:"shop_name"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
	ImageRef       string `json:"image_ref,omitempty"`
}

// SubtotalCents is the line subtotal, always recomputed.
func (l Line) SubtotalCents() int64 {
	return l.UnitPriceCents * int64(l.Quantity)
}

// ShopGroup is one shop's slice of the cart with its derived subtotal.
type ShopGroup struct {
	ShopID        int64  `json:"shop_id"`
	ShopName      string `json:"shop_name"`
	Lines         []Line `json:"lines"`
	SubtotalCents int64  `json:"subtotal_cents"`
}

// Snapshot is a read-only, shop-partitioned view of the cart. Groups appear
// in the order their shop first appeared in the cart, and the union of all
// group lines equals the full cart.
type Snapshot struct {
	Groups []ShopGroup `json:"groups"`
}

// Totals are the cart-wide aggregates shown in the cart badge / summary row.
type Totals struct {
	ItemCount       int   `json:"item_count"`
	TotalPriceCents int64 `json:"total_price_cents"`
}

// Cart holds the line items of one buyer session. The session has a single
// logical writer, but HTTP handlers run concurrently, so every operation
// takes the cart's own lock.
type Cart struct {
	mu    sync.Mutex
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

// AddLine inserts a new line with quantity 1, or bumps the quantity by 1
// when the product is already in the cart. Catalog validity (stock, price
// drift) is not checked here.
func (c *Cart) AddLine(productID, shopID int64, shopName, name string, unitPriceCents int64, imageRef string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines[i].Quantity++
			return
		}
	}

	c.lines = append(c.lines, Line{
		ProductID:      productID,
		ShopID:         shopID,
		ShopName:       shopName,
		Name:           name,
		UnitPriceCents: unitPriceCents,
		Quantity:       1,
		ImageRef:       imageRef,
	})
}

// SetQuantity sets a line's quantity. Quantities below 1 are clamped to 1;
// dropping a line is an explicit RemoveLine, never a decrement to zero.
// No-op when the product is not in the cart.
func (c *Cart) SetQuantity(productID int64, quantity int) {
	if quantity < 1 {
		quantity = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines[i].Quantity = quantity
			return
		}
	}
}

// RemoveLine drops the line for productID. No-op if absent.
func (c *Cart) RemoveLine(productID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// Clear empties the cart. Called after a checkout path has succeeded or
// fallen back successfully, never before.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// Len reports the number of distinct lines.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// Snapshot partitions the cart by shop. Lines are copied by value so the
// snapshot cannot be mutated through the live cart or vice versa.
func (c *Cart) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	var snap Snapshot
	index := make(map[int64]int) // shopID -> position in snap.Groups

	for _, l := range c.lines {
		i, ok := index[l.ShopID]
		if !ok {
			i = len(snap.Groups)
			index[l.ShopID] = i
			snap.Groups = append(snap.Groups, ShopGroup{
				ShopID:   l.ShopID,
				ShopName: l.ShopName,
			})
		}
		snap.Groups[i].Lines = append(snap.Groups[i].Lines, l)
		snap.Groups[i].SubtotalCents += l.SubtotalCents()
	}

	return snap
}

// Totals returns the cart-wide item count and price.
func (c *Cart) Totals() Totals {
	c.mu.Lock()
	defer c.mu.Unlock()

	var t Totals
	for _, l := range c.lines {
		t.ItemCount += l.Quantity
		t.TotalPriceCents += l.SubtotalCents()
	}
	return t
}

// Lines returns a copy of the raw lines in insertion order.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}
