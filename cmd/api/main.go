package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"bazaar/internal/auth"
	"bazaar/internal/checkout"
	"bazaar/internal/db"
	"bazaar/internal/domain/addresses"
	"bazaar/internal/domain/cart"
	"bazaar/internal/domain/orders"
	"bazaar/internal/payments"
	"bazaar/internal/ratelimiter"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoadRateLimiterConfig retrieves rate limiter settings from environment variables
func LoadRateLimiterConfig() ratelimiter.Config {
	defaultRequests := 200
	defaultEnabled := false

	requestsPerTimeFrame := defaultRequests
	if val, exists := os.LookupEnv("RATELIMITER_REQUESTS_COUNT"); exists {
		if parsedVal, err := strconv.Atoi(val); err == nil {
			requestsPerTimeFrame = parsedVal
		} else {
			fmt.Println("Invalid RATELIMITER_REQUESTS_COUNT, defaulting to", defaultRequests)
		}
	}

	enabled := defaultEnabled
	if val, exists := os.LookupEnv("RATE_LIMITER_ENABLED"); exists {
		if parsedVal, err := strconv.ParseBool(val); err == nil {
			enabled = parsedVal
		} else {
			fmt.Println("Invalid RATE_LIMITER_ENABLED, defaulting to", defaultEnabled)
		}
	}

	return ratelimiter.Config{
		RequestsPerTimeFrame: requestsPerTimeFrame,
		TimeFrame:            5 * time.Second,
		Enabled:              enabled,
	}
}

// NewLogger creates a new zap logger with color.
func NewLogger() (*zap.SugaredLogger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)
	level := zapcore.InfoLevel

	core := zapcore.NewCore(consoleEncoder, zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout)), level)

	logger := zap.New(core)
	return logger.Sugar(), nil
}

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Fatalf("Error loading .env file: %v", err)
	}

	maxConnsStr := os.Getenv("DB_MAX_CONNS")
	maxConns, err := strconv.Atoi(maxConnsStr)
	if err != nil {
		log.Fatalf("Invalid value for DB_MAX_CONNS: %v", err)
	}

	cfg := config{
		addr:     os.Getenv("ADDR"),
		env:      os.Getenv("ENV"),
		currency: os.Getenv("CURRENCY"),
		db: dbConfig{
			addr:        os.Getenv("DB_ADDR"),
			maxConns:    int32(maxConns),
			maxIdleTime: os.Getenv("DB_MAX_IDLE_TIME"),
		},
		auth: authConfig{
			secret: os.Getenv("AUTH_TOKEN_SECRET"),
			iss:    "Bazaar",
			exp:    time.Hour * 24 * 3, // 3 days
		},
		paygate: paygateConfig{
			baseURL:   os.Getenv("PAYGATE_BASE_URL"),
			secretKey: os.Getenv("PAYGATE_SECRET_KEY"),
			returnURL: os.Getenv("PAYGATE_RETURN_URL"),
		},
		rateLimiter: LoadRateLimiterConfig(),
	}
	if cfg.currency == "" {
		cfg.currency = "USD"
	}

	logger, err := NewLogger()
	if err != nil {
		fmt.Println("Error creating logger:", err)
		return
	}
	defer logger.Sync()

	// Database
	pool, err := db.New(
		cfg.db.addr,
		cfg.db.maxConns,
		cfg.db.maxIdleTime,
	)
	if err != nil {
		logger.Fatal(err)
	}
	defer pool.Close()
	logger.Info("database connection pool established")

	// Domain wiring
	numberGen := orders.NewOrderNumberGenerator(os.Getenv("ORDER_NUMBER_SECRET"))
	orderStore := orders.NewRepository(pool, numberGen)
	orderSvc := orders.NewService(orderStore)
	contactStore := addresses.NewRepository(pool)
	carts := cart.NewSessions()

	gateway := payments.NewPaygateAdapter(
		cfg.paygate.baseURL,
		cfg.paygate.secretKey,
		cfg.paygate.returnURL,
	)

	pending := checkout.NewPendingSessions()
	orchestrator := checkout.NewOrchestrator(
		carts,
		orderStore,
		contactStore,
		gateway,
		pending,
		cfg.currency,
		logger,
	)

	// Card sessions that never complete are pruned so the pending store
	// cannot grow without bound.
	go func() {
		ticker := time.NewTicker(time.Hour)
		for range ticker.C {
			if n := pending.PruneOlderThan(24 * time.Hour); n > 0 {
				logger.Infow("pruned stale payment sessions", "count", n)
			}
		}
	}()

	rateLimiter := ratelimiter.NewFixedWindowLimiter(
		cfg.rateLimiter.RequestsPerTimeFrame,
		cfg.rateLimiter.TimeFrame,
	)

	jwtAuthenticator := auth.NewJWTAuthenticator(
		cfg.auth.secret,
		cfg.auth.iss,
		cfg.auth.iss,
		cfg.auth.exp,
	)

	app := &application{
		config:        cfg,
		logger:        logger,
		carts:         carts,
		orders:        orderStore,
		orderSvc:      orderSvc,
		contacts:      contactStore,
		gateway:       gateway,
		checkout:      orchestrator,
		authenticator: jwtAuthenticator,
		rateLimiter:   rateLimiter,
	}

	mux := app.mount()

	logger.Fatal(app.run(mux))
}
