package checkout

import (
	"context"
	"fmt"

	"bazaar/internal/domain/addresses"
	"bazaar/internal/domain/cart"
	"bazaar/internal/domain/orders"
	"bazaar/internal/payments"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ValidationError reports a missing checkout precondition. No side effects
// have taken place; the buyer corrects the input and retries.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("checkout validation: missing %s", e.Field)
}

// PersistenceError reports that the order repository rejected the insert.
// The cart is untouched, so retrying the checkout is safe.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("checkout persistence: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// WarningPaymentPending is surfaced on the fallback path: the gateway was
// unavailable, but the orders were captured and tagged for reconciliation.
const WarningPaymentPending = "payment pending — orders created, contact the shop to resolve payment"

// Input is one checkout attempt for the buyer's current cart. Address and
// Phone may be blank, in which case the buyer's saved contact is used.
type Input struct {
	BuyerID           int64
	PaymentMethod     string // cash | card
	FulfillmentMode   string // delivery | pickup
	Address           string
	Phone             string
	Notes             string
	FulfillmentWindow string
}

// Result is either a redirect instruction (card success) or a confirmation
// (cash path / gateway fallback, with Warning set on the latter).
type Result struct {
	RedirectURL string         `json:"redirect_url,omitempty"`
	Confirmed   bool           `json:"confirmed"`
	Warning     string         `json:"warning,omitempty"`
	Orders      []orders.Order `json:"orders,omitempty"`
}

// Orchestrator turns one heterogeneous cart into per-shop orders, choosing
// between direct persistence (cash) and a hosted payment session (card).
type Orchestrator struct {
	carts    *cart.Sessions
	store    orders.Store
	contacts addresses.Store
	gateway  payments.Gateway
	pending  *PendingSessions
	currency string
	logger   *zap.SugaredLogger
}

func NewOrchestrator(
	carts *cart.Sessions,
	store orders.Store,
	contacts addresses.Store,
	gateway payments.Gateway,
	pending *PendingSessions,
	currency string,
	logger *zap.SugaredLogger,
) *Orchestrator {
	return &Orchestrator{
		carts:    carts,
		store:    store,
		contacts: contacts,
		gateway:  gateway,
		pending:  pending,
		currency: currency,
		logger:   logger,
	}
}

// PlaceOrder runs the whole checkout. The cart is cleared only after a path
// has succeeded or fallen back successfully; on ValidationError or
// PersistenceError the cart is exactly as it was.
func (o *Orchestrator) PlaceOrder(ctx context.Context, in Input) (*Result, error) {
	if in.BuyerID <= 0 {
		return nil, &ValidationError{Field: "buyer"}
	}

	c := o.carts.Get(in.BuyerID)
	snap := c.Snapshot()
	if len(snap.Groups) == 0 {
		return nil, &ValidationError{Field: "cart"}
	}

	address, phone, err := o.resolveContact(ctx, in)
	if err != nil {
		return nil, err
	}
	if phone == "" {
		return nil, &ValidationError{Field: "phone"}
	}
	if in.FulfillmentMode != orders.FulfillmentPickup && address == "" {
		return nil, &ValidationError{Field: "address"}
	}

	mode := in.FulfillmentMode
	if mode == "" {
		mode = orders.FulfillmentDelivery
	}
	if mode == orders.FulfillmentPickup {
		address = ""
	}

	drafts := partition(snap, in, mode, address, phone)

	switch in.PaymentMethod {
	case orders.PaymentCard:
		return o.placeCard(ctx, c, drafts)
	case orders.PaymentCash, "":
		return o.placeCash(ctx, c, drafts)
	default:
		return nil, &ValidationError{Field: "payment_method"}
	}
}

// partition copies one cart snapshot into one draft per shop group. Line
// data is copied by value so later catalog or cart changes cannot reach a
// placed order.
func partition(snap cart.Snapshot, in Input, mode, address, phone string) []orders.Draft {
	drafts := make([]orders.Draft, 0, len(snap.Groups))
	for _, g := range snap.Groups {
		lines := make([]orders.Line, 0, len(g.Lines))
		for _, l := range g.Lines {
			lines = append(lines, orders.Line{
				ProductID:      l.ProductID,
				Name:           l.Name,
				UnitPriceCents: l.UnitPriceCents,
				Quantity:       l.Quantity,
				ImageRef:       l.ImageRef,
			})
		}

		d := orders.NewDraft(g.ShopID, g.ShopName, in.BuyerID, lines)
		d.FulfillmentMode = mode
		d.DeliveryAddress = address
		d.ContactPhone = phone
		d.Notes = in.Notes
		d.FulfillmentWindow = in.FulfillmentWindow
		drafts = append(drafts, d)
	}
	return drafts
}

func (o *Orchestrator) placeCash(ctx context.Context, c *cart.Cart, drafts []orders.Draft) (*Result, error) {
	for i := range drafts {
		drafts[i].PaymentMethod = orders.PaymentCash
	}

	inserted, err := o.store.InsertMany(ctx, drafts)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}

	c.Clear()
	return &Result{Confirmed: true, Orders: inserted}, nil
}

func (o *Orchestrator) placeCard(ctx context.Context, c *cart.Cart, drafts []orders.Draft) (*Result, error) {
	var total int64
	summaries := make([]payments.OrderSummary, 0, len(drafts))
	for i := range drafts {
		drafts[i].PaymentMethod = orders.PaymentCard
		total += drafts[i].TotalCents
		summaries = append(summaries, payments.OrderSummary{
			ShopID:     drafts[i].ShopID,
			ShopName:   drafts[i].ShopName,
			TotalCents: drafts[i].TotalCents,
		})
	}

	sessionID := uuid.NewString()
	resp, gerr := o.gateway.CreateSession(ctx, payments.SessionRequest{
		SessionID:   sessionID,
		AmountCents: total,
		Currency:    o.currency,
		Orders:      summaries,
	})
	if gerr == nil {
		// The gateway's webhook materializes the orders once payment
		// completes; the drafts wait in the pending session store until then.
		o.pending.Put(sessionID, drafts)
		c.Clear()
		return &Result{RedirectURL: resp.RedirectURL}, nil
	}

	// Fallback: a payment-provider outage must not block order placement.
	// Capture the orders tagged card_pending so sellers can reconcile by hand.
	o.logger.Warnw("payment session failed, falling back to pending orders",
		"session_id", sessionID, "amount_cents", total, "err", gerr)

	for i := range drafts {
		drafts[i].PaymentMethod = orders.PaymentCardPending
	}

	inserted, err := o.store.InsertMany(ctx, drafts)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}

	c.Clear()
	return &Result{Confirmed: true, Warning: WarningPaymentPending, Orders: inserted}, nil
}

// resolveContact prefers the request's address/phone and falls back to the
// buyer's saved default contact when either is blank.
func (o *Orchestrator) resolveContact(ctx context.Context, in Input) (address, phone string, err error) {
	address, phone = in.Address, in.Phone
	if address != "" && phone != "" {
		return address, phone, nil
	}
	if o.contacts == nil {
		return address, phone, nil
	}

	saved, err := o.contacts.GetDefault(ctx, in.BuyerID)
	if err != nil {
		return "", "", fmt.Errorf("resolve contact: %w", err)
	}
	if saved == nil {
		return address, phone, nil
	}

	if address == "" {
		address = saved.Address
	}
	if phone == "" {
		phone = saved.Phone
	}
	return address, phone, nil
}

// ConfirmSession materializes the orders for a card session the gateway has
// verified as paid. Idempotent: the drafts are removed from the pending
// store before insert, so a duplicated webhook finds nothing to do.
func (o *Orchestrator) ConfirmSession(ctx context.Context, sessionID string) ([]orders.Order, error) {
	drafts, ok := o.pending.Take(sessionID)
	if !ok {
		return nil, nil
	}

	inserted, err := o.store.InsertMany(ctx, drafts)
	if err != nil {
		// Put the drafts back so a webhook retry can complete the insert.
		o.pending.Put(sessionID, drafts)
		return nil, &PersistenceError{Err: err}
	}
	return inserted, nil
}

// AbandonSession drops a pending card session (payment failed or expired).
func (o *Orchestrator) AbandonSession(sessionID string) {
	o.pending.Take(sessionID)
}
