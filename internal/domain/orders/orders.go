package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bazaar/internal/dbx"

	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound = errors.New("order not found")

	// ErrStaleStatus means the compare-and-set lost: the order exists but its
	// status is no longer the one the caller read. The order is untouched.
	ErrStaleStatus = errors.New("order status changed concurrently")
)

// Repository is the pgx-backed order record store.
type Repository struct {
	db  dbx.Querier
	gen *OrderNumberGenerator
}

func NewRepository(q dbx.Querier, gen *OrderNumberGenerator) *Repository {
	if gen == nil {
		panic("orders: OrderNumberGenerator is nil")
	}
	return &Repository{db: q, gen: gen}
}

const orderColumns = `
id, order_number, shop_id, shop_name, buyer_id, lines,
total_cents, fulfillment_mode, delivery_address, contact_phone, notes,
fulfillment_window, payment_method, status, created_at, updated_at`

// InsertMany persists one checkout's drafts as a single pgx batch. The batch
// rides one connection with a single sync point, so a failed insert aborts
// the statements queued behind it and nothing is half-applied.
func (r *Repository) InsertMany(ctx context.Context, drafts []Draft) ([]Order, error) {
	if len(drafts) == 0 {
		return nil, fmt.Errorf("insert orders: no drafts")
	}

	numbers := make([]string, len(drafts))
	lineBlobs := make([][]byte, len(drafts))

	batch := &pgx.Batch{}
	for i, d := range drafts {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("insert orders: %w", err)
		}

		blob, err := json.Marshal(d.Lines)
		if err != nil {
			return nil, fmt.Errorf("marshal order lines: %w", err)
		}
		lineBlobs[i] = blob
		numbers[i] = r.gen.Generate(d.BuyerID)

		batch.Queue(`
INSERT INTO orders (
  order_number, shop_id, shop_name, buyer_id, lines,
  total_cents, fulfillment_mode, delivery_address, contact_phone, notes,
  fulfillment_window, payment_method, status
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
RETURNING id, created_at, updated_at
`,
			numbers[i], d.ShopID, d.ShopName, d.BuyerID, blob,
			d.TotalCents, d.FulfillmentMode, d.DeliveryAddress, d.ContactPhone, d.Notes,
			d.FulfillmentWindow, d.PaymentMethod, string(StatusPending),
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	out := make([]Order, 0, len(drafts))
	for i, d := range drafts {
		o := Order{
			OrderNumber:       numbers[i],
			ShopID:            d.ShopID,
			ShopName:          d.ShopName,
			BuyerID:           d.BuyerID,
			Lines:             d.Lines,
			TotalCents:        d.TotalCents,
			FulfillmentMode:   d.FulfillmentMode,
			DeliveryAddress:   d.DeliveryAddress,
			ContactPhone:      d.ContactPhone,
			Notes:             d.Notes,
			FulfillmentWindow: d.FulfillmentWindow,
			PaymentMethod:     d.PaymentMethod,
			Status:            StatusPending,
		}
		if err := results.QueryRow().Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("insert order for shop %d: %w", d.ShopID, err)
		}
		out = append(out, o)
	}

	if err := results.Close(); err != nil {
		return nil, fmt.Errorf("insert orders: %w", err)
	}
	return out, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Order, error) {
	row := r.db.QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE id=$1`, id)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// UpdateStatus moves exactly one order from one status to another. The WHERE
// clause carries the expected current status so a concurrent transition by a
// different actor cannot be clobbered silently.
func (r *Repository) UpdateStatus(ctx context.Context, orderID int64, from, to Status) error {
	tag, err := r.db.Exec(ctx, `
UPDATE orders
SET status = $3,
    updated_at = now()
WHERE id = $1
  AND status = $2
`, orderID, string(from), string(to))
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id=$1)`, orderID).Scan(&exists); err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStaleStatus
}

func (r *Repository) ListByBuyer(ctx context.Context, buyerID int64, status string, limit, offset int) ([]Order, int, error) {
	return r.list(ctx, `buyer_id = $1`, buyerID, status, limit, offset)
}

func (r *Repository) ListByShop(ctx context.Context, shopID int64, status string, limit, offset int) ([]Order, int, error) {
	return r.list(ctx, `shop_id = $1`, shopID, status, limit, offset)
}

func (r *Repository) ListAll(ctx context.Context, status string, limit, offset int) ([]Order, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(ctx, `
SELECT`+orderColumns+`, COUNT(*) OVER() AS total
FROM orders
WHERE ($1 = '' OR status = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`, status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

func (r *Repository) list(ctx context.Context, ownerClause string, ownerID int64, status string, limit, offset int) ([]Order, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(ctx, `
SELECT`+orderColumns+`, COUNT(*) OVER() AS total
FROM orders
WHERE `+ownerClause+`
  AND ($2 = '' OR status = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4
`, ownerID, status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

func collectOrders(rows pgx.Rows) ([]Order, int, error) {
	var (
		out   []Order
		total int
	)
	for rows.Next() {
		var (
			o    Order
			blob []byte
			t    int
		)
		if err := rows.Scan(
			&o.ID, &o.OrderNumber, &o.ShopID, &o.ShopName, &o.BuyerID, &blob,
			&o.TotalCents, &o.FulfillmentMode, &o.DeliveryAddress, &o.ContactPhone, &o.Notes,
			&o.FulfillmentWindow, &o.PaymentMethod, &o.Status, &o.CreatedAt, &o.UpdatedAt,
			&t,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		if err := json.Unmarshal(blob, &o.Lines); err != nil {
			return nil, 0, fmt.Errorf("unmarshal order lines: %w", err)
		}
		if total == 0 {
			total = t
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o    Order
		blob []byte
	)
	if err := row.Scan(
		&o.ID, &o.OrderNumber, &o.ShopID, &o.ShopName, &o.BuyerID, &blob,
		&o.TotalCents, &o.FulfillmentMode, &o.DeliveryAddress, &o.ContactPhone, &o.Notes,
		&o.FulfillmentWindow, &o.PaymentMethod, &o.Status, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(blob, &o.Lines); err != nil {
		return nil, fmt.Errorf("unmarshal order lines: %w", err)
	}
	return &o, nil
}
