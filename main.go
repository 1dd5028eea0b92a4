package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	appinventory "github.com/tiendalino/commerce-core/internal/application/inventory"
	apporder "github.com/tiendalino/commerce-core/internal/application/order"
	apppayment "github.com/tiendalino/commerce-core/internal/application/payment"
	appreturns "github.com/tiendalino/commerce-core/internal/application/returns"
	domaccount "github.com/tiendalino/commerce-core/internal/domain/account"
	domcatalog "github.com/tiendalino/commerce-core/internal/domain/catalog"
	domred "github.com/tiendalino/commerce-core/internal/domain/redemption"
	domwarehouse "github.com/tiendalino/commerce-core/internal/domain/warehouse"
	"github.com/tiendalino/commerce-core/internal/infrastructure/boltstore"
	"github.com/tiendalino/commerce-core/internal/infrastructure/gateway"
	httpapi "github.com/tiendalino/commerce-core/internal/infrastructure/http"
	"github.com/tiendalino/commerce-core/internal/infrastructure/id"
	"github.com/tiendalino/commerce-core/internal/infrastructure/memory"
	"github.com/tiendalino/commerce-core/internal/infrastructure/notify"
	"github.com/tiendalino/commerce-core/internal/infrastructure/outbox"
	"github.com/tiendalino/commerce-core/internal/infrastructure/shipping"
	"github.com/tiendalino/commerce-core/internal/pkg/logging"
	"go.uber.org/zap"
)

func main() {
	serviceName := getenvDefault("SERVICE_NAME", "commerce-core")
	env := getenvDefault("ENV", "dev")
	baseLogger := logging.MustNewLogger(serviceName, env)
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpDurations := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	settlementEvents := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_events_total",
			Help: "Settlement outcomes by trigger path.",
		},
		[]string{"path", "outcome"},
	)
	notificationFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Count of notification deliveries that failed.",
		},
	)
	prometheus.MustRegister(httpRequests, httpDurations, settlementEvents, notificationFailures)

	journal, err := boltstore.Open(getenvDefault("DB_PATH", "data/movements.db"))
	if err != nil {
		systemLogger.Fatal("journal_open_failed", zap.Error(err))
	}
	defer func() { _ = journal.Close() }()

	catalogRepo := memory.NewCatalogRepository()
	orderRepo := memory.NewOrderRepository()
	promotionRepo := memory.NewPromotionRepository()
	giftCardRepo := memory.NewGiftCardRepository()
	couponRepo := memory.NewCouponRepository()
	returnRepo := memory.NewReturnRepository()
	warehouseRepo := memory.NewWarehouseRepository()
	accounts := memory.NewAccountDirectory()
	idGenerator := id.NewUUIDGenerator()
	tariffs := shipping.NewTariffTable()

	paymentGateway := gateway.NewClient(gateway.Config{
		BaseURL:     getenvDefault("GATEWAY_BASE_URL", "https://api.mercadopago.com"),
		AccessToken: os.Getenv("GATEWAY_ACCESS_TOKEN"),
		Sandbox:     getenvDefault("GATEWAY_SANDBOX", "true") == "true",
	})

	bus := outbox.NewBus(baseLogger)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	ledgerService := appinventory.NewService(catalogRepo, journal, idGenerator)
	checkoutService := apporder.NewService(
		orderRepo, catalogRepo, accounts,
		promotionRepo, giftCardRepo, couponRepo,
		ledgerService, tariffs, idGenerator, bus,
	)
	paymentService := apppayment.NewService(orderRepo, checkoutService, ledgerService, paymentGateway, settlementEvents)
	returnsService := appreturns.NewService(
		returnRepo, orderRepo, couponRepo, warehouseRepo,
		ledgerService, idGenerator, bus,
	)

	notifyWorker := notify.New(bus, notify.LogSender{}, notificationFailures)
	notifyWorker.Start()

	if env == "dev" {
		seed(catalogRepo, accounts, promotionRepo, giftCardRepo, warehouseRepo)
		systemLogger.Info("demo_data_seeded")
	}

	handler := httpapi.NewHandler(checkoutService, paymentService, ledgerService, returnsService, tariffs)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router(baseLogger, httpRequests, httpDurations))

	server := &http.Server{
		Addr:    getenvDefault("HTTP_ADDR", ":8080"),
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		systemLogger.Info("http_server_start",
			zap.String("addr", server.Addr),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error",
				zap.Error(err),
			)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error",
			zap.Error(err),
		)
	} else {
		systemLogger.Info("http_server_stopped")
	}
}

// seed loads a minimal dataset so the API is exercisable out of the box.
func seed(
	catalogRepo *memory.CatalogRepository,
	accounts *memory.AccountDirectory,
	promotions *memory.PromotionRepository,
	giftCards *memory.GiftCardRepository,
	warehouses *memory.WarehouseRepository,
) {
	ctx := context.Background()

	_ = catalogRepo.Save(ctx, &domcatalog.Product{
		ID:       "prod-001",
		Name:     "Camiseta básica",
		Price:    45000,
		Category: "ropa",
		Variants: []domcatalog.Variant{
			{ID: "var-001", Size: "M", Color: "negro", SKU: "CB-M-N", Stock: 20},
			{ID: "var-002", Size: "L", Color: "blanco", SKU: "CB-L-B", Stock: 12},
		},
	})
	_ = catalogRepo.Save(ctx, &domcatalog.Product{
		ID:       "prod-002",
		Name:     "Gorra clásica",
		Price:    30000,
		Category: "accesorios",
		Stock:    50,
	})

	accounts.Put(&domaccount.Account{
		ID:       "cust-001",
		Name:     "Laura Gómez",
		Email:    "laura@example.com",
		Verified: true,
	})

	_ = promotions.Save(ctx, &domred.Promotion{
		ID:          "promo-001",
		Code:        "BIENVENIDO10",
		DiscountPct: 10,
		Active:      true,
	})
	_ = giftCards.Save(ctx, &domred.GiftCard{
		Code:    "GIFT-2026-0001",
		Balance: 60000,
		Active:  true,
	})
	_ = warehouses.Save(ctx, &domwarehouse.Warehouse{
		ID:       "wh-001",
		Name:     "Bodega principal",
		Location: "Calle 13 #45-20, Bogotá",
		Active:   true,
	})
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
