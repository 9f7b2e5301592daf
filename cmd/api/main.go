package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/comercio-api/internal/application/catalog"
	"github.com/jhoicas/comercio-api/internal/application/inventory"
	"github.com/jhoicas/comercio-api/internal/application/notification"
	"github.com/jhoicas/comercio-api/internal/application/sales"
	"github.com/jhoicas/comercio-api/internal/application/tenant"
	"github.com/jhoicas/comercio-api/internal/infrastructure/memory"
	"github.com/jhoicas/comercio-api/internal/infrastructure/metrics"
	"github.com/jhoicas/comercio-api/internal/infrastructure/mongo"
	"github.com/jhoicas/comercio-api/internal/infrastructure/postgres"
	"github.com/jhoicas/comercio-api/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/comercio-api/internal/interfaces/http"
	"github.com/jhoicas/comercio-api/pkg/config"
	"github.com/jhoicas/comercio-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("configuración inválida")
	}
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	primary, err := mongo.Connect(ctx, cfg.Mongo)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a MongoDB")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = primary.Close(closeCtx)
	}()

	// Sin Redis el candado y el limitador viven en el proceso: válido sólo con una réplica.
	var (
		locker  tenant.Locker      = memory.NewLocker()
		limiter tenant.RateLimiter = memory.NewLimiter(cfg.Tenant.JoinAttempts, cfg.Tenant.JoinWindow)
		rdb     *redis.Client
	)
	if cfg.Redis.Addr != "" {
		rdb, err = redis.New(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		locker = redis.NewLocker(rdb, 0)
		limiter = redis.NewFixedWindowLimiter(rdb, cfg.Tenant.JoinAttempts, cfg.Tenant.JoinWindow)
	} else {
		log.Warn().Msg("REDIS_ADDR vacío: candado y limitador locales")
	}
	if cfg.Tenant.JoinAttempts <= 0 {
		limiter = nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(reg)

	tenantRepo := postgres.NewTenantRepository(pool)
	storeRepo := postgres.NewStoreRepository(pool)
	subscriptionRepo := postgres.NewSubscriptionRepository(pool)
	membershipRepo := postgres.NewMembershipRepository(pool)
	profileRepo := postgres.NewProfileRepository(pool)
	joinRepo := postgres.NewJoinRequestRepository(pool)
	notificationRepo := postgres.NewNotificationRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	stockRepo := postgres.NewStockRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	dispatcher := notification.NewDispatcher(membershipRepo, notificationRepo, log.Component("notification"), notification.Options{
		Workers:   cfg.Notify.Workers,
		QueueSize: cfg.Notify.QueueSize,
		Timeout:   cfg.Notify.Timeout,
	})

	tenantCfg := tenant.Config{
		DefaultStoreName:   cfg.Tenant.DefaultStoreName,
		Plan:               cfg.Tenant.DefaultPlan,
		StoreLimit:         cfg.Tenant.StoreLimit,
		UserLimit:          cfg.Tenant.UserLimit,
		InvoiceLimit:       cfg.Tenant.InvoiceLimit,
		SecurityCodeLength: cfg.Tenant.SecurityCodeLength,
		PhoneRegion:        cfg.Tenant.PhoneRegion,
		VerifyTaxIDDigit:   cfg.Tenant.VerifyTaxIDDigit,
		JoinCooldown:       cfg.Tenant.JoinCooldown,
		LockTTL:            cfg.Tenant.LockTTL,
		StepTimeout:        cfg.Tenant.StepTimeout,
	}
	provisionUC := tenant.NewProvisionUseCase(tenant.ProvisionDeps{
		Primary:       primary,
		Tenants:       tenantRepo,
		Stores:        storeRepo,
		Subscriptions: subscriptionRepo,
		Memberships:   membershipRepo,
		Profiles:      profileRepo,
		Locker:        locker,
		Notifier:      dispatcher,
		Metrics:       appMetrics,
		Log:           log.Component("provision"),
	}, tenantCfg)
	storeUC := tenant.NewStoreUseCase(tenant.StoreDeps{
		Primary:       primary,
		Tenants:       tenantRepo,
		Stores:        storeRepo,
		Subscriptions: subscriptionRepo,
		Memberships:   membershipRepo,
		Metrics:       appMetrics,
		Log:           log.Component("stores"),
	}, tenantCfg)
	joinUC := tenant.NewJoinUseCase(tenant.JoinDeps{
		Primary:     primary,
		Tenants:     tenantRepo,
		Memberships: membershipRepo,
		Joins:       joinRepo,
		Limiter:     limiter,
		Notifier:    dispatcher,
		Metrics:     appMetrics,
		Log:         log.Component("join"),
	}, tenantCfg)
	membershipUC := tenant.NewMembershipUseCase(membershipRepo, subscriptionRepo)

	registerMovementUC := inventory.NewRegisterMovementUseCase(txRunner, productRepo, storeRepo, dispatcher, appMetrics, log.Component("inventory"))
	lowStockUC := inventory.NewLowStockUseCase(stockRepo)

	loc, err := time.LoadLocation(cfg.Sales.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Sales.Timezone).Msg("zona horaria de caja")
	}
	processSaleUC := sales.NewProcessSaleUseCase(
		txRunner, registerMovementUC, productRepo, customerRepo, storeRepo,
		appMetrics, log.Component("sales"),
		sales.Config{
			TaxRate:       cfg.Sales.TaxRate,
			SalePrefix:    cfg.Sales.SalePrefix,
			InvoicePrefix: cfg.Sales.InvoicePrefix,
			Location:      loc,
			NumberRetries: cfg.Sales.NumberRetries,
		},
	)
	productUC := catalog.NewProductUseCase(productRepo)
	customerUC := catalog.NewCustomerUseCase(customerRepo, cfg.Tenant.PhoneRegion)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: httpRouter.ErrorHandler(log.Component("http")),
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestID())
	app.Use(httpRouter.RequestLogger(log.Component("http")))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Comercio API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		hctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		checks := fiber.Map{"postgres": "ok", "mongo": "ok"}
		status := fiber.StatusOK
		if err := pool.Ping(hctx); err != nil {
			checks["postgres"], status = err.Error(), fiber.StatusServiceUnavailable
		}
		if err := primary.Ping(hctx); err != nil {
			checks["mongo"], status = err.Error(), fiber.StatusServiceUnavailable
		}
		if rdb != nil {
			checks["redis"] = "ok"
			if err := rdb.Ping(hctx); err != nil {
				checks["redis"], status = err.Error(), fiber.StatusServiceUnavailable
			}
		}
		return c.Status(status).JSON(fiber.Map{"status": checks, "service": cfg.App.Name})
	})
	if cfg.Metrics.Enabled {
		app.Get(cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		Provision:        provisionUC,
		Stores:           storeUC,
		Joins:            joinUC,
		Membership:       membershipUC,
		RegisterMovement: registerMovementUC,
		LowStock:         lowStockUC,
		ProcessSale:      processSaleUC,
		ProductUC:        productUC,
		CustomerUC:       customerUC,
		JWTSecret:        cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	// las notificaciones encoladas se entregan antes de cerrar las conexiones
	dispatcher.Close()

	log.Info().Msg("aplicación detenida")
}
