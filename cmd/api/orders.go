package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bazaar/internal/domain/orders"
	"bazaar/internal/params"

	"github.com/go-chi/chi/v5"
)

func normalizeStatusFilter(raw string) (string, error) {
	s := strings.TrimSpace(strings.ToLower(raw))
	if s == "" || s == "all" {
		return "", nil
	}
	if _, err := orders.ParseStatus(s); err != nil {
		return "", err
	}
	return s, nil
}

// GET /v1/orders — the buyer's own orders.
func (app *application) listMyOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	s := getSessionFromContext(r)
	p := params.ParsePagination(r.URL.Query())

	status, err := normalizeStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	list, total, err := app.orders.ListByBuyer(ctx, s.UserID, status, p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	p.ComputeMeta(total)

	app.jsonResponse(w, http.StatusOK, map[string]any{
		"orders":     list,
		"pagination": p,
		"status":     status,
	})
}

// GET /v1/orders/{orderID}
func (app *application) getMyOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	s := getSessionFromContext(r)

	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || orderID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid orderID"))
		return
	}

	o, err := app.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	// Buyers see only their own orders; sellers their shop's; admins all.
	switch s.Role {
	case orders.RoleBuyer:
		if o.BuyerID != s.UserID {
			app.notFoundResponse(w, r, orders.ErrNotFound)
			return
		}
	case orders.RoleSeller:
		if o.ShopID != s.ShopID {
			app.notFoundResponse(w, r, orders.ErrNotFound)
			return
		}
	}

	app.jsonResponse(w, http.StatusOK, o)
}

// GET /v1/shop/orders — seller order management.
func (app *application) listShopOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	s := getSessionFromContext(r)
	p := params.ParsePagination(r.URL.Query())

	status, err := normalizeStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	list, total, err := app.orders.ListByShop(ctx, s.ShopID, status, p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	p.ComputeMeta(total)

	app.jsonResponse(w, http.StatusOK, map[string]any{
		"orders":     list,
		"pagination": p,
		"status":     status,
	})
}

// GET /v1/admin/orders — platform-wide order monitoring.
func (app *application) adminListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	p := params.ParsePagination(r.URL.Query())

	status, err := normalizeStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	list, total, err := app.orders.ListAll(ctx, status, p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	p.ComputeMeta(total)

	app.jsonResponse(w, http.StatusOK, map[string]any{
		"orders":     list,
		"pagination": p,
		"status":     status,
	})
}

// PATCH /v1/orders/{orderID}/status — the only way a status ever changes.
// The orders service enforces the edge set and the role annotations; this
// handler only parses and maps errors.
func (app *application) transitionOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	s := getSessionFromContext(r)

	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || orderID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid orderID"))
		return
	}

	var in struct {
		Status string `json:"status"`
	}
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	target, err := orders.ParseStatus(strings.TrimSpace(in.Status))
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	o, err := app.orderSvc.Transition(ctx, orderID, target, s.actor())
	if err != nil {
		var illegal *orders.IllegalTransitionError
		switch {
		case errors.As(err, &illegal):
			app.conflictResponse(w, r, illegal)
		case errors.Is(err, orders.ErrNotFound):
			app.notFoundResponse(w, r, err)
		case errors.Is(err, orders.ErrStaleStatus):
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	app.jsonResponse(w, http.StatusOK, map[string]any{
		"message": "status updated",
		"order":   o,
	})
}
