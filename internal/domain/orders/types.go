package orders

import (
	"context"
	"fmt"
	"time"
)

// Payment methods recorded on an order. card_pending marks a fallback order
// created while the payment gateway was unreachable; sellers and admins use
// it to recognise orders that need manual payment reconciliation.
const (
	PaymentCash        = "cash"
	PaymentCard        = "card"
	PaymentCardPending = "card_pending"
)

// Fulfillment modes. Pickup orders carry no delivery address.
const (
	FulfillmentDelivery = "delivery"
	FulfillmentPickup   = "pickup"
)

// Line is a value snapshot of a cart line at the moment of checkout. Later
// catalog changes never alter a placed order.
type Line struct {
	ProductID      int64  `json:"product_id"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
	ImageRef       string `json:"image_ref,omitempty"`
}

// Draft is an order built from one shop's portion of a cart, not yet
// persisted. Exactly one shop per draft; an order never spans shops.
type Draft struct {
	ShopID            int64
	ShopName          string
	BuyerID           int64
	Lines             []Line
	TotalCents        int64
	FulfillmentMode   string
	DeliveryAddress   string
	ContactPhone      string
	Notes             string
	FulfillmentWindow string
	PaymentMethod     string
}

// NewDraft assembles a draft and computes its total from its own lines, so
// the total can never disagree with them.
func NewDraft(shopID int64, shopName string, buyerID int64, lines []Line) Draft {
	var total int64
	for _, l := range lines {
		total += l.UnitPriceCents * int64(l.Quantity)
	}
	return Draft{
		ShopID:     shopID,
		ShopName:   shopName,
		BuyerID:    buyerID,
		Lines:      lines,
		TotalCents: total,
	}
}

// Validate checks the internal invariants of a draft before it is handed to
// the repository or the payment gateway.
func (d Draft) Validate() error {
	if len(d.Lines) == 0 {
		return fmt.Errorf("draft for shop %d has no lines", d.ShopID)
	}
	var total int64
	for _, l := range d.Lines {
		if l.Quantity < 1 {
			return fmt.Errorf("draft for shop %d: product %d quantity %d < 1", d.ShopID, l.ProductID, l.Quantity)
		}
		total += l.UnitPriceCents * int64(l.Quantity)
	}
	if total != d.TotalCents {
		return fmt.Errorf("draft for shop %d: total %d != sum of lines %d", d.ShopID, d.TotalCents, total)
	}
	return nil
}

// Order is the persisted form of a draft.
type Order struct {
	ID                int64     `json:"id"`
	OrderNumber       string    `json:"order_number"`
	ShopID            int64     `json:"shop_id"`
	ShopName          string    `json:"shop_name"`
	BuyerID           int64     `json:"buyer_id"`
	Lines             []Line    `json:"lines"`
	TotalCents        int64     `json:"total_cents"`
	FulfillmentMode   string    `json:"fulfillment_mode"`
	DeliveryAddress   string    `json:"delivery_address,omitempty"`
	ContactPhone      string    `json:"contact_phone"`
	Notes             string    `json:"notes,omitempty"`
	FulfillmentWindow string    `json:"fulfillment_window,omitempty"`
	PaymentMethod     string    `json:"payment_method"`
	Status            Status    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Store is the order record store consumed by the orchestrator and the
// transition service. InsertMany persists a whole multi-shop checkout in one
// batch; UpdateStatus is a compare-and-set on exactly one order.
type Store interface {
	InsertMany(ctx context.Context, drafts []Draft) ([]Order, error)
	GetByID(ctx context.Context, id int64) (*Order, error)
	UpdateStatus(ctx context.Context, orderID int64, from, to Status) error
	ListByBuyer(ctx context.Context, buyerID int64, status string, limit, offset int) ([]Order, int, error)
	ListByShop(ctx context.Context, shopID int64, status string, limit, offset int) ([]Order, int, error)
	ListAll(ctx context.Context, status string, limit, offset int) ([]Order, int, error)
}
