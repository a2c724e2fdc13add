package addresses

import (
	"context"
	"errors"
	"fmt"

	"bazaar/internal/dbx"

	"github.com/jackc/pgx/v5"
)

// Contact is what checkout needs from the address book: a delivery address
// and a phone number for the active buyer. Read-only from checkout's side.
type Contact struct {
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// Store supplies the buyer's saved contact details. A nil Contact with nil
// error means the buyer has no saved entry; checkout then requires the
// request payload to carry the fields itself.
type Store interface {
	GetDefault(ctx context.Context, buyerID int64) (*Contact, error)
	SetDefault(ctx context.Context, buyerID int64, c Contact) error
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(q dbx.Querier) *Repository {
	return &Repository{db: q}
}

func (r *Repository) GetDefault(ctx context.Context, buyerID int64) (*Contact, error) {
	var c Contact
	err := r.db.QueryRow(ctx, `
SELECT address, phone
FROM address_book
WHERE buyer_id = $1 AND is_default = true
LIMIT 1
`, buyerID).Scan(&c.Address, &c.Phone)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get default contact: %w", err)
	}
	return &c, nil
}

func (r *Repository) SetDefault(ctx context.Context, buyerID int64, c Contact) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO address_book (buyer_id, address, phone, is_default)
VALUES ($1, $2, $3, true)
ON CONFLICT (buyer_id) WHERE is_default
DO UPDATE SET address = EXCLUDED.address,
              phone   = EXCLUDED.phone,
              updated_at = now()
`, buyerID, c.Address, c.Phone)
	if err != nil {
		return fmt.Errorf("set default contact: %w", err)
	}
	return nil
}
