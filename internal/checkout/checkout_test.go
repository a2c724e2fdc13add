package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"bazaar/internal/domain/addresses"
	"bazaar/internal/domain/cart"
	"bazaar/internal/domain/orders"
	"bazaar/internal/payments"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockOrderStore records InsertMany calls and assigns sequential IDs.
type mockOrderStore struct {
	insertErr error
	inserted  [][]orders.Draft
	nextID    int64
}

func (m *mockOrderStore) InsertMany(_ context.Context, drafts []orders.Draft) ([]orders.Order, error) {
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	m.inserted = append(m.inserted, drafts)

	out := make([]orders.Order, 0, len(drafts))
	for _, d := range drafts {
		m.nextID++
		out = append(out, orders.Order{
			ID:              m.nextID,
			ShopID:          d.ShopID,
			ShopName:        d.ShopName,
			BuyerID:         d.BuyerID,
			Lines:           d.Lines,
			TotalCents:      d.TotalCents,
			FulfillmentMode: d.FulfillmentMode,
			DeliveryAddress: d.DeliveryAddress,
			ContactPhone:    d.ContactPhone,
			PaymentMethod:   d.PaymentMethod,
			Status:          orders.StatusPending,
			CreatedAt:       time.Now(),
		})
	}
	return out, nil
}

func (m *mockOrderStore) GetByID(context.Context, int64) (*orders.Order, error) {
	panic("not used")
}

func (m *mockOrderStore) UpdateStatus(context.Context, int64, orders.Status, orders.Status) error {
	panic("not used")
}

func (m *mockOrderStore) ListByBuyer(context.Context, int64, string, int, int) ([]orders.Order, int, error) {
	panic("not used")
}

func (m *mockOrderStore) ListByShop(context.Context, int64, string, int, int) ([]orders.Order, int, error) {
	panic("not used")
}

func (m *mockOrderStore) ListAll(context.Context, string, int, int) ([]orders.Order, int, error) {
	panic("not used")
}

type mockGateway struct {
	createErr   error
	verifyPaid  bool
	verifyErr   error
	lastRequest payments.SessionRequest
	createCalls int
}

func (m *mockGateway) CreateSession(_ context.Context, req payments.SessionRequest) (payments.SessionResponse, error) {
	m.createCalls++
	m.lastRequest = req
	if m.createErr != nil {
		return payments.SessionResponse{}, m.createErr
	}
	return payments.SessionResponse{RedirectURL: "https://pay.example.com/s/" + req.SessionID}, nil
}

func (m *mockGateway) VerifySession(context.Context, string) (bool, error) {
	return m.verifyPaid, m.verifyErr
}

type mockContacts struct {
	contact *addresses.Contact
	err     error
}

func (m *mockContacts) GetDefault(context.Context, int64) (*addresses.Contact, error) {
	return m.contact, m.err
}

func (m *mockContacts) SetDefault(context.Context, int64, addresses.Contact) error {
	return nil
}

type fixture struct {
	carts   *cart.Sessions
	store   *mockOrderStore
	gateway *mockGateway
	pending *PendingSessions
	orch    *Orchestrator
}

func newFixture(contacts addresses.Store) *fixture {
	f := &fixture{
		carts:   cart.NewSessions(),
		store:   &mockOrderStore{},
		gateway: &mockGateway{},
		pending: NewPendingSessions(),
	}
	f.orch = NewOrchestrator(f.carts, f.store, contacts, f.gateway, f.pending, "USD", zap.NewNop().Sugar())
	return f
}

// fillCart seeds a two-shop cart: 2x apples + bread from shop 1, milk from
// shop 2.
func fillCart(f *fixture, buyerID int64) *cart.Cart {
	c := f.carts.Get(buyerID)
	c.AddLine(101, 1, "Green Grocer", "Apples", 300, "")
	c.AddLine(101, 1, "Green Grocer", "Apples", 300, "")
	c.AddLine(102, 1, "Green Grocer", "Bread", 500, "")
	c.AddLine(201, 2, "Dairy Corner", "Milk", 400, "")
	return c
}

func baseInput() Input {
	return Input{
		BuyerID:       7,
		PaymentMethod: orders.PaymentCash,
		Address:       "12 Hill Road",
		Phone:         "555-0101",
	}
}

func TestPlaceOrder_CashCreatesOneOrderPerShop(t *testing.T) {
	f := newFixture(nil)
	c := fillCart(f, 7)

	res, err := f.orch.PlaceOrder(context.Background(), baseInput())
	require.NoError(t, err)

	assert.True(t, res.Confirmed)
	assert.Empty(t, res.RedirectURL)
	assert.Empty(t, res.Warning)
	require.Len(t, res.Orders, 2)

	byShop := map[int64]orders.Order{}
	for _, o := range res.Orders {
		byShop[o.ShopID] = o
		assert.Equal(t, orders.PaymentCash, o.PaymentMethod)
		assert.Equal(t, orders.StatusPending, o.Status)
		assert.Equal(t, int64(7), o.BuyerID)
	}
	assert.Equal(t, int64(1100), byShop[1].TotalCents)
	assert.Equal(t, int64(400), byShop[2].TotalCents)

	assert.Zero(t, c.Len(), "cart must be cleared after a confirmed checkout")
	assert.Zero(t, f.gateway.createCalls, "cash path never touches the gateway")
}

func TestPlaceOrder_CardRedirectsAndDefersOrders(t *testing.T) {
	f := newFixture(nil)
	c := fillCart(f, 7)

	in := baseInput()
	in.PaymentMethod = orders.PaymentCard

	res, err := f.orch.PlaceOrder(context.Background(), in)
	require.NoError(t, err)

	assert.False(t, res.Confirmed)
	assert.Contains(t, res.RedirectURL, "https://pay.example.com/s/")
	assert.Empty(t, res.Orders, "orders are not persisted until the webhook confirms")
	assert.Empty(t, f.store.inserted)

	assert.Equal(t, int64(1500), f.gateway.lastRequest.AmountCents, "session covers the combined multi-shop total")
	assert.Len(t, f.gateway.lastRequest.Orders, 2)

	assert.Equal(t, 1, f.pending.Len())
	assert.Zero(t, c.Len())
}

func TestPlaceOrder_CardGatewayFailureFallsBackToPendingOrders(t *testing.T) {
	f := newFixture(nil)
	c := fillCart(f, 7)
	f.gateway.createErr = errors.New("connection refused")

	in := baseInput()
	in.PaymentMethod = orders.PaymentCard

	res, err := f.orch.PlaceOrder(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, res.Confirmed)
	assert.Equal(t, WarningPaymentPending, res.Warning)
	require.Len(t, res.Orders, 2)
	for _, o := range res.Orders {
		assert.Equal(t, orders.PaymentCardPending, o.PaymentMethod)
	}

	assert.Zero(t, c.Len())
	assert.Zero(t, f.pending.Len(), "a failed session is never parked for the webhook")
}

func TestPlaceOrder_EmptyCartRejected(t *testing.T) {
	f := newFixture(nil)

	_, err := f.orch.PlaceOrder(context.Background(), baseInput())

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "cart", verr.Field)
	assert.Empty(t, f.store.inserted)
}

func TestPlaceOrder_MissingContactRejectedCartIntact(t *testing.T) {
	f := newFixture(nil)
	c := fillCart(f, 7)
	before := c.Totals()

	in := baseInput()
	in.Phone = ""
	_, err := f.orch.PlaceOrder(context.Background(), in)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "phone", verr.Field)

	in = baseInput()
	in.Address = ""
	_, err = f.orch.PlaceOrder(context.Background(), in)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "address", verr.Field)

	assert.Equal(t, before, c.Totals(), "validation failures must not touch the cart")
}

func TestPlaceOrder_PickupNeedsNoAddress(t *testing.T) {
	f := newFixture(nil)
	fillCart(f, 7)

	in := baseInput()
	in.Address = ""
	in.FulfillmentMode = orders.FulfillmentPickup

	res, err := f.orch.PlaceOrder(context.Background(), in)
	require.NoError(t, err)
	for _, o := range res.Orders {
		assert.Equal(t, orders.FulfillmentPickup, o.FulfillmentMode)
		assert.Empty(t, o.DeliveryAddress)
	}
}

func TestPlaceOrder_FallsBackToSavedContact(t *testing.T) {
	f := newFixture(&mockContacts{contact: &addresses.Contact{Address: "4 Saved Lane", Phone: "555-0199"}})
	fillCart(f, 7)

	in := baseInput()
	in.Address = ""
	in.Phone = ""

	res, err := f.orch.PlaceOrder(context.Background(), in)
	require.NoError(t, err)
	require.NotEmpty(t, res.Orders)
	assert.Equal(t, "4 Saved Lane", res.Orders[0].DeliveryAddress)
	assert.Equal(t, "555-0199", res.Orders[0].ContactPhone)
}

func TestPlaceOrder_PersistenceFailureLeavesCartIntact(t *testing.T) {
	f := newFixture(nil)
	c := fillCart(f, 7)
	before := c.Totals()
	f.store.insertErr = errors.New("deadlock detected")

	_, err := f.orch.PlaceOrder(context.Background(), baseInput())

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, before, c.Totals(), "the cart survives a failed insert for retry")
}

func TestPlaceOrder_UnknownPaymentMethod(t *testing.T) {
	f := newFixture(nil)
	fillCart(f, 7)

	in := baseInput()
	in.PaymentMethod = "cheque"

	_, err := f.orch.PlaceOrder(context.Background(), in)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "payment_method", verr.Field)
}

func TestConfirmSession_InsertsOnceThenNoOps(t *testing.T) {
	f := newFixture(nil)
	fillCart(f, 7)

	in := baseInput()
	in.PaymentMethod = orders.PaymentCard
	_, err := f.orch.PlaceOrder(context.Background(), in)
	require.NoError(t, err)
	sessionID := f.gateway.lastRequest.SessionID

	inserted, err := f.orch.ConfirmSession(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, inserted, 2)
	for _, o := range inserted {
		assert.Equal(t, orders.PaymentCard, o.PaymentMethod)
	}

	// duplicated webhook delivery
	again, err := f.orch.ConfirmSession(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Nil(t, again)
	assert.Len(t, f.store.inserted, 1)
}

func TestConfirmSession_InsertFailureKeepsSessionForRetry(t *testing.T) {
	f := newFixture(nil)
	fillCart(f, 7)

	in := baseInput()
	in.PaymentMethod = orders.PaymentCard
	_, err := f.orch.PlaceOrder(context.Background(), in)
	require.NoError(t, err)
	sessionID := f.gateway.lastRequest.SessionID

	f.store.insertErr = errors.New("connection reset")
	_, err = f.orch.ConfirmSession(context.Background(), sessionID)
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, f.pending.Len(), "drafts go back so the webhook retry can finish")

	f.store.insertErr = nil
	inserted, err := f.orch.ConfirmSession(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Len(t, inserted, 2)
}

func TestAbandonSession_DropsPendingDrafts(t *testing.T) {
	f := newFixture(nil)
	fillCart(f, 7)

	in := baseInput()
	in.PaymentMethod = orders.PaymentCard
	_, err := f.orch.PlaceOrder(context.Background(), in)
	require.NoError(t, err)

	f.orch.AbandonSession(f.gateway.lastRequest.SessionID)
	assert.Zero(t, f.pending.Len())

	inserted, err := f.orch.ConfirmSession(context.Background(), f.gateway.lastRequest.SessionID)
	require.NoError(t, err)
	assert.Nil(t, inserted)
}

func TestPendingSessions_PruneOlderThan(t *testing.T) {
	p := NewPendingSessions()
	p.Put("a", []orders.Draft{{ShopID: 1}})
	p.Put("b", []orders.Draft{{ShopID: 2}})

	assert.Zero(t, p.PruneOlderThan(time.Hour))
	assert.Equal(t, 2, p.PruneOlderThan(-time.Second))
	assert.Zero(t, p.Len())
}
