package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bazaar/internal/checkout"
)

// POST /v1/checkout
func (app *application) checkoutHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	s := getSessionFromContext(r)

	var in struct {
		PaymentMethod     string `json:"payment_method" validate:"omitempty,oneof=cash card"`
		FulfillmentMode   string `json:"fulfillment_mode" validate:"omitempty,oneof=delivery pickup"`
		Address           string `json:"address"`
		Phone             string `json:"phone"`
		Notes             string `json:"notes"`
		FulfillmentWindow string `json:"fulfillment_window"`
	}
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	result, err := app.checkout.PlaceOrder(ctx, checkout.Input{
		BuyerID:           s.UserID,
		PaymentMethod:     strings.TrimSpace(in.PaymentMethod),
		FulfillmentMode:   strings.TrimSpace(in.FulfillmentMode),
		Address:           strings.TrimSpace(in.Address),
		Phone:             strings.TrimSpace(in.Phone),
		Notes:             in.Notes,
		FulfillmentWindow: in.FulfillmentWindow,
	})
	if err != nil {
		var vErr *checkout.ValidationError
		var pErr *checkout.PersistenceError
		switch {
		case errors.As(err, &vErr):
			app.badRequestResponse(w, r, vErr)
		case errors.As(err, &pErr):
			app.retryableErrorResponse(w, r, pErr)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	app.jsonResponse(w, http.StatusCreated, result)
}

// POST /v1/payments/webhook?session_id=…
//
// Webhook responsibilities:
//   - Extract the session id (query param or payload)
//   - Re-verify with the gateway — never trust the webhook payload directly
//   - Paid: materialize the session's pending orders (idempotent)
//   - Not paid: drop the pending session
//   - ACK 200 for unknown session ids to avoid provider retry spam
func (app *application) paymentWebhookHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		var payload struct {
			SessionID string `json:"session_id"`
		}
		if err := readJSON(w, r, &payload); err == nil {
			sessionID = strings.TrimSpace(payload.SessionID)
		}
	}
	if sessionID == "" {
		app.badRequestResponse(w, r, fmt.Errorf("missing session_id"))
		return
	}

	paid, err := app.gateway.VerifySession(ctx, sessionID)
	if err != nil {
		app.logger.Errorw("verify payment session failed", "session_id", sessionID, "err", err)
		// 5xx so the provider retries (typical webhook behavior).
		http.Error(w, "verification error", http.StatusInternalServerError)
		return
	}

	if !paid {
		app.checkout.AbandonSession(sessionID)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
		return
	}

	inserted, err := app.checkout.ConfirmSession(ctx, sessionID)
	if err != nil {
		app.logger.Errorw("materialize paid session failed", "session_id", sessionID, "err", err)
		http.Error(w, "failed to create orders", http.StatusInternalServerError)
		return
	}
	if inserted == nil {
		app.logger.Warnw("webhook for unknown or already-processed session", "session_id", sessionID)
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
