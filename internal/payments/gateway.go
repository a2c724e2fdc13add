package payments

import "context"

// OrderSummary is the per-shop slice of a checkout handed to the provider so
// its webhook flow can reconcile the eventual orders.
type OrderSummary struct {
	ShopID     int64  `json:"shop_id"`
	ShopName   string `json:"shop_name"`
	TotalCents int64  `json:"total_cents"`
}

// SessionRequest asks the provider for a hosted card payment session covering
// the combined amount of a whole (possibly multi-shop) checkout.
type SessionRequest struct {
	SessionID   string         `json:"session_id"`
	AmountCents int64          `json:"amount_cents"`
	Currency    string         `json:"currency"`
	Orders      []OrderSummary `json:"orders"`
}

// SessionResponse carries the redirect URL the buyer is sent to. Consumed
// once by the orchestrator; never persisted.
type SessionResponse struct {
	RedirectURL string `json:"redirect_url"`
}

// Gateway is the single external payment-session provider. VerifySession is
// the webhook-side re-check: webhook payloads are never trusted directly.
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (SessionResponse, error)
	VerifySession(ctx context.Context, sessionID string) (bool, error)
}
