package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bazaar/internal/auth"
	"bazaar/internal/checkout"
	"bazaar/internal/domain/addresses"
	"bazaar/internal/domain/cart"
	"bazaar/internal/domain/orders"
	"bazaar/internal/payments"
	"bazaar/internal/ratelimiter"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type application struct {
	config        config
	logger        *zap.SugaredLogger
	carts         *cart.Sessions
	orders        orders.Store
	orderSvc      *orders.Service
	contacts      addresses.Store
	gateway       payments.Gateway
	checkout      *checkout.Orchestrator
	authenticator auth.Authenticator
	rateLimiter   *ratelimiter.FixedWindowLimiter
}

type config struct {
	addr        string
	env         string
	currency    string
	db          dbConfig
	auth        authConfig
	paygate     paygateConfig
	rateLimiter ratelimiter.Config
}

type dbConfig struct {
	addr        string
	maxConns    int32
	maxIdleTime string
}

type authConfig struct {
	secret string
	iss    string
	exp    time.Duration
}

type paygateConfig struct {
	baseURL   string
	secretKey string
	returnURL string
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(app.RateLimiterMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", app.healthCheckHandler)

		// Gateway webhook: authenticated by session verification against the
		// provider, not by a user token.
		r.Post("/payments/webhook", app.paymentWebhookHandler)

		r.Group(func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", app.getCartHandler)
				r.Post("/items", app.addCartLineHandler)
				r.Patch("/items/{productID}", app.setCartQuantityHandler)
				r.Delete("/items/{productID}", app.removeCartLineHandler)
				r.Delete("/", app.clearCartHandler)
			})

			r.Post("/checkout", app.checkoutHandler)

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", app.listMyOrdersHandler)
				r.Get("/{orderID}", app.getMyOrderHandler)
				r.Patch("/{orderID}/status", app.transitionOrderHandler)
			})

			r.With(app.RequireRole(orders.RoleSeller)).
				Get("/shop/orders", app.listShopOrdersHandler)

			r.With(app.RequireRole(orders.RoleAdmin)).
				Get("/admin/orders", app.adminListOrdersHandler)
		})
	})

	return r
}

func (app *application) run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr)
	return nil
}
