package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-recurring-orders/internal/accounts"
	"github.com/ariefcatur/go-recurring-orders/internal/authz"
	"github.com/ariefcatur/go-recurring-orders/internal/config"
	"github.com/ariefcatur/go-recurring-orders/internal/httpx"
	"github.com/ariefcatur/go-recurring-orders/internal/identifiers"
	"github.com/ariefcatur/go-recurring-orders/internal/logx"
	"github.com/ariefcatur/go-recurring-orders/internal/orders"
	"github.com/ariefcatur/go-recurring-orders/internal/paymentmethods"
	"github.com/ariefcatur/go-recurring-orders/internal/postgres"
	"github.com/ariefcatur/go-recurring-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := logx.New(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Repos & services
	users := &authz.Repo{DB: db}
	guard := &authz.Guard{Admins: users, Log: logger.Named("authz")}
	pmRepo := &paymentmethods.Repo{DB: db}
	ids := identifiers.NewCodec(cfg.HashidSalt)

	orderSvc := &orders.Service{
		Store:          &orders.Repo{DB: db},
		PaymentMethods: pmRepo,
		Guard:          guard,
		IDs:            ids,
		Cache:          &redisx.StatusCache{RDB: rdb},
		Log:            logger.Named("orders"),
	}

	gateways := map[string]paymentmethods.Gateway{}
	if cfg.StripeSecretKey != "" {
		gateways[paymentmethods.ServiceStripe] = paymentmethods.NewStripeGateway(cfg.StripeSecretKey, nil)
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, stripe payment methods disabled")
	}
	provisioner := paymentmethods.NewProvisioner(pmRepo, &accounts.Repo{DB: db}, guard, gateways, logger.Named("payment_methods"))

	router := httpx.NewRouter(
		&authz.TokenResolver{Secret: []byte(cfg.JWTSecret), Users: users},
		logger.Named("http"),
		&httpx.OrdersHandler{Orders: orderSvc, IDs: ids, Log: logger.Named("http")},
		&httpx.PaymentMethodsHandler{PaymentMethods: provisioner, Log: logger.Named("http")},
	)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	// graceful shutdown
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
}
