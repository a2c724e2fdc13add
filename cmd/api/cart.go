package main

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// GET /v1/cart — shop-partitioned snapshot plus aggregate totals.
func (app *application) getCartHandler(w http.ResponseWriter, r *http.Request) {
	s := getSessionFromContext(r)
	c := app.carts.Get(s.UserID)

	app.jsonResponse(w, http.StatusOK, map[string]any{
		"snapshot": c.Snapshot(),
		"totals":   c.Totals(),
	})
}

// POST /v1/cart/items
func (app *application) addCartLineHandler(w http.ResponseWriter, r *http.Request) {
	s := getSessionFromContext(r)

	var in struct {
		ProductID      int64  `json:"product_id" validate:"required,gt=0"`
		ShopID         int64  `json:"shop_id" validate:"required,gt=0"`
		ShopName       string `json:"shop_name" validate:"required"`
		Name           string `json:"name" validate:"required"`
		UnitPriceCents int64  `json:"unit_price_cents" validate:"gte=0"`
		ImageRef       string `json:"image_ref"`
	}
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	app.carts.Get(s.UserID).AddLine(in.ProductID, in.ShopID, in.ShopName, in.Name, in.UnitPriceCents, in.ImageRef)
	app.jsonResponse(w, http.StatusCreated, map[string]string{"message": "item added"})
}

// PATCH /v1/cart/items/{productID} — quantities below 1 clamp to 1; removal
// is the explicit DELETE, never a decrement past the floor.
func (app *application) setCartQuantityHandler(w http.ResponseWriter, r *http.Request) {
	s := getSessionFromContext(r)

	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid productID"))
		return
	}

	var in struct {
		Quantity int `json:"quantity"`
	}
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	app.carts.Get(s.UserID).SetQuantity(productID, in.Quantity)
	app.jsonResponse(w, http.StatusOK, map[string]string{"message": "updated"})
}

// DELETE /v1/cart/items/{productID}
func (app *application) removeCartLineHandler(w http.ResponseWriter, r *http.Request) {
	s := getSessionFromContext(r)

	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid productID"))
		return
	}

	app.carts.Get(s.UserID).RemoveLine(productID)
	app.jsonResponse(w, http.StatusOK, map[string]string{"message": "removed"})
}

// DELETE /v1/cart
func (app *application) clearCartHandler(w http.ResponseWriter, r *http.Request) {
	s := getSessionFromContext(r)

	app.carts.Get(s.UserID).Clear()
	app.jsonResponse(w, http.StatusOK, map[string]string{"message": "cart cleared"})
}
