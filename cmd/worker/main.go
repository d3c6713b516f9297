package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	chanapp "github.com/retail/backend/internal/application/channel"
	crmapp "github.com/retail/backend/internal/application/crm"
	invapp "github.com/retail/backend/internal/application/inventory"
	invoiceapp "github.com/retail/backend/internal/application/invoicing"
	posapp "github.com/retail/backend/internal/application/pos"
	workforceapp "github.com/retail/backend/internal/application/workforce"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/tenancy"
	"github.com/retail/backend/internal/infrastructure/cache"
	chaninfra "github.com/retail/backend/internal/infrastructure/channel"
	"github.com/retail/backend/internal/infrastructure/config"
	"github.com/retail/backend/internal/infrastructure/event"
	"github.com/retail/backend/internal/infrastructure/logger"
	"github.com/retail/backend/internal/infrastructure/persistence"
	"github.com/retail/backend/internal/infrastructure/telemetry"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
)

const (
	// Page size used when walking the tenant directory for per-tenant jobs.
	tenantPageSize = 200

	// Open sales older than this are voided by the abandoned-sale sweep.
	abandonedSaleAfter = 24 * time.Hour

	// Sent and dead messages older than this are pruned from the queue.
	sentMessageRetention = 30 * 24 * time.Hour
)

// The worker runs everything that happens off the request path: outbox
// draining across all tenant databases, outbound message dispatch, the
// overdue-invoice and attendance sweeps, and the janitor that removes
// shared-pool rows left behind by placement moves.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Worker starting",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	var tenantMetrics *tenantdb.Metrics
	if cfg.Telemetry.Enabled {
		tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
			Enabled:           cfg.Telemetry.Enabled,
			CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
			SamplingRatio:     cfg.Telemetry.SamplingRatio,
			ServiceName:       cfg.Telemetry.ServiceName + "-worker",
			Insecure:          cfg.Telemetry.Insecure,
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize tracer provider", zap.Error(err))
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = tracerProvider.Shutdown(shutdownCtx)
		}()

		meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
			Enabled:           cfg.Telemetry.Enabled,
			CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
			ServiceName:       cfg.Telemetry.ServiceName + "-worker",
			Insecure:          cfg.Telemetry.Insecure,
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize meter provider", zap.Error(err))
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = meterProvider.Shutdown(shutdownCtx)
		}()

		tenantMetrics, err = tenantdb.NewMetrics(meterProvider.Meter("tenantdb"))
		if err != nil {
			log.Fatal("Failed to initialize tenantdb metrics", zap.Error(err))
		}
	}

	// Control-plane database (also the shared pool)
	database, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		tracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err := tracing.RegisterOtelGorm(database.DB, cfg.Database.DBName); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	// Redis backs the directory cache and the dispatch rate limiter. Without
	// it the worker degrades to in-process equivalents.
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		err := client.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			log.Warn("Redis unavailable, using in-memory fallbacks", zap.Error(err))
			_ = client.Close()
		} else {
			redisClient = client
			defer redisClient.Close()
		}
	}

	// Tenant routing: directory + shared pool + dedicated connection cache
	tenantRepo := persistence.NewGormTenantRepository(database.DB)

	connCache := tenantdb.NewConnCache(
		persistence.NewTenantDialFunc(cfg),
		tenantdb.WithConnCacheLogger(log),
	)
	defer func() {
		_ = connCache.CloseAll()
	}()

	var recordCache tenantdb.RecordCache
	if redisClient != nil {
		recordCache = tenantdb.NewRedisRecordCache(redisClient, "")
	} else {
		recordCache = tenantdb.NewMemoryRecordCache()
	}

	dirOpts := []tenantdb.DirectoryOption{tenantdb.WithDirectoryLogger(log)}
	routerOpts := []tenantdb.RouterOption{tenantdb.WithRouterLogger(log)}
	if tenantMetrics != nil {
		dirOpts = append(dirOpts, tenantdb.WithDirectoryMetrics(tenantMetrics))
		routerOpts = append(routerOpts, tenantdb.WithRouterMetrics(tenantMetrics))
	}
	directory := tenantdb.NewDirectory(tenantRepo, recordCache, cfg.TenantDB.DirectoryTTL, dirOpts...)

	// The shared pool routes through its own handle with the tenant filter
	// callbacks registered; the control-plane handle stays unfiltered.
	sharedHandle, err := database.SharedPoolHandle()
	if err != nil {
		log.Fatal("Failed to open shared pool handle", zap.Error(err))
	}
	sharedDB := tenantdb.NewSharedDB(sharedHandle)
	router := tenantdb.NewRouter(directory, sharedDB, connCache, routerOpts...)

	// Repositories
	productRepo := persistence.NewGormProductRepository(router)
	customerRepo := persistence.NewGormCustomerRepository(router)
	locationRepo := persistence.NewGormLocationRepository(router)
	stockLevelRepo := persistence.NewGormStockLevelRepository(router)
	stockMovementRepo := persistence.NewGormStockMovementRepository(router)
	saleRepo := persistence.NewGormSaleRepository(router)
	invoiceRepo := persistence.NewGormInvoiceRepository(router)
	shiftRepo := persistence.NewGormShiftRepository(router)
	attendanceRepo := persistence.NewGormAttendanceRepository(router)
	connectionRepo := persistence.NewGormConnectionRepository(router)
	templateRepo := persistence.NewGormTemplateRepository(router)
	messageRepo := persistence.NewGormOutboundMessageRepository(router)
	numbers := persistence.NewGormNumberGenerator(router)

	// Application services behind the event handlers and sweeps
	stockService := invapp.NewStockService(stockLevelRepo, stockMovementRepo, locationRepo)
	customerService := crmapp.NewCustomerService(customerRepo, saleRepo)
	saleService := posapp.NewSaleService(saleRepo, productRepo, locationRepo, numbers)
	invoiceService := invoiceapp.NewInvoiceService(invoiceRepo, customerRepo, productRepo, numbers)
	attendanceService := workforceapp.NewAttendanceService(shiftRepo, attendanceRepo)
	messageService := chanapp.NewMessageService(connectionRepo, templateRepo, messageRepo)

	// Event bus with the cross-context subscriptions
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)

	eventBus := event.NewInMemoryEventBus(log)

	// Outbox retries redeliver events, so every subscription goes through
	// the idempotency wrapper.
	idemStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(true),
	).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	subscribe := func(h shared.EventHandler) {
		wrapped := event.NewIdempotentHandler(h, idemStore, log)
		eventBus.Subscribe(wrapped, wrapped.EventTypes()...)
	}
	subscribe(invapp.NewSaleCompletedHandler(stockService, log))
	subscribe(invapp.NewSaleVoidedHandler(stockService, log))
	subscribe(invapp.NewStorefrontOrderConfirmedHandler(stockService, log))
	subscribe(invapp.NewStorefrontOrderFulfilledHandler(stockService, log))
	subscribe(invapp.NewStorefrontOrderCancelledHandler(stockService, log))
	subscribe(crmapp.NewSaleCompletedHandler(customerService, log))
	subscribe(chanapp.NewSaleReceiptHandler(customerRepo, connectionRepo, templateRepo, messageRepo, log))
	subscribe(chanapp.NewInvoiceNoticeHandler(customerRepo, connectionRepo, templateRepo, messageRepo, log))
	subscribe(chanapp.NewOrderUpdateHandler(customerRepo, connectionRepo, templateRepo, messageRepo, log))

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Handlers that mutate aggregates publish their follow-up events back
	// through the bus.
	stockService.SetEventPublisher(eventBus)
	customerService.SetEventPublisher(eventBus)
	saleService.SetEventPublisher(eventBus)
	invoiceService.SetEventPublisher(eventBus)
	attendanceService.SetEventPublisher(eventBus)

	// Outbox processor drains the shared pool plus every dedicated database.
	// The lister re-reads the directory each tick, so tenants that finish a
	// placement move are picked up without a restart.
	var outboxProcessor *event.OutboxProcessor
	if cfg.Event.ProcessorEnabled {
		pools := dedicatedPoolLister(database, tenantRepo, connCache, log)
		outboxProcessor = event.NewOutboxProcessor(pools, eventBus, serializer, event.OutboxProcessorConfig{
			BatchSize:        cfg.Event.BatchSize,
			PollInterval:     cfg.Event.PollInterval,
			CleanupEnabled:   cfg.Event.CleanupEnabled,
			CleanupRetention: cfg.Event.CleanupRetention,
			CleanupInterval:  time.Hour,
		}, log)
		if err := outboxProcessor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
	}

	var wg sync.WaitGroup

	// Outbound message dispatcher
	if cfg.Worker.DispatcherEnabled {
		var limiter chanapp.RateLimiter
		if redisClient != nil {
			limiter = chaninfra.NewRedisRateLimiter(redisClient)
		} else {
			limiter = chaninfra.NewInMemoryRateLimiter()
		}
		gateways := chaninfra.NewGatewayRegistry(
			chaninfra.NewWhatsAppGateway(cfg.Channel),
			chaninfra.NewInstagramGateway(cfg.Channel),
		)
		dispatcher := chanapp.NewDispatcher(messageRepo, connectionRepo, gateways, limiter, log)

		wg.Add(1)
		go func() {
			defer wg.Done()
			runEvery(ctx, cfg.Worker.DispatcherInterval, func(now time.Time) {
				forEachActiveTenant(ctx, tenantRepo, log, func(tctx context.Context, t *tenancy.Tenant) {
					sent, err := dispatcher.DispatchDue(tctx, now, cfg.Worker.DispatcherBatchSize)
					if err != nil && !errors.Is(err, tenantdb.ErrTenantMigrating) {
						log.Error("message dispatch failed",
							zap.String("tenant_id", t.ID.String()),
							zap.Error(err))
						return
					}
					if sent > 0 {
						log.Info("messages dispatched",
							zap.String("tenant_id", t.ID.String()),
							zap.Int("count", sent))
					}
				})
			})
		}()
	}

	// Per-tenant maintenance sweeps
	if cfg.Worker.OverdueSweepEnabled || cfg.Worker.AttendanceAutoCloseEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runEvery(ctx, cfg.Worker.OverdueSweepInterval, func(now time.Time) {
				forEachActiveTenant(ctx, tenantRepo, log, func(tctx context.Context, t *tenancy.Tenant) {
					runTenantSweeps(tctx, cfg, now, t,
						invoiceService, saleService, attendanceService, messageService, log)
				})
			})
		}()
	}

	// Janitor removes shared-pool rows orphaned by placement moves
	if cfg.Worker.JanitorEnabled {
		janitorOpts := []tenantdb.JanitorOption{
			tenantdb.WithJanitorLogger(log),
			tenantdb.WithJanitorBatchSize(cfg.TenantDB.MoveBatchSize),
		}
		if tenantMetrics != nil {
			janitorOpts = append(janitorOpts, tenantdb.WithJanitorMetrics(tenantMetrics))
		}
		janitor := tenantdb.NewJanitor(tenantRepo, database.DB, persistence.MovePlan(), janitorOpts...)

		wg.Add(1)
		go func() {
			defer wg.Done()
			runEvery(ctx, cfg.Worker.JanitorInterval, func(time.Time) {
				swept, err := janitor.Sweep(ctx)
				if err != nil {
					log.Error("janitor sweep failed", zap.Error(err))
					return
				}
				if swept > 0 {
					log.Info("janitor swept orphaned rows", zap.Int64("rows", swept))
				}
			})
		}()
	}

	log.Info("Worker started",
		zap.Bool("outbox_processor", cfg.Event.ProcessorEnabled),
		zap.Bool("dispatcher", cfg.Worker.DispatcherEnabled),
		zap.Bool("sweeps", cfg.Worker.OverdueSweepEnabled || cfg.Worker.AttendanceAutoCloseEnabled),
		zap.Bool("janitor", cfg.Worker.JanitorEnabled),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Worker shutting down...")
	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if outboxProcessor != nil {
		if err := outboxProcessor.Stop(shutdownCtx); err != nil {
			log.Error("Failed to stop outbox processor", zap.Error(err))
		}
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop event bus", zap.Error(err))
	}

	log.Info("Worker stopped")
}

// dedicatedPoolLister reports the shared pool plus one pool per dedicated
// tenant database. Tenants whose move has not finished have no database name
// yet and are skipped; their rows still drain through the shared pool.
func dedicatedPoolLister(
	database *persistence.Database,
	tenantRepo tenancy.TenantRepository,
	connCache *tenantdb.ConnCache,
	log *zap.Logger,
) event.PoolLister {
	return func(ctx context.Context) ([]event.OutboxPool, error) {
		pools := []event.OutboxPool{{Name: "shared", DB: database.DB}}

		dedicated, err := tenantRepo.FindByPlacement(ctx, tenancy.PlacementDedicated)
		if err != nil {
			return nil, err
		}
		for i := range dedicated {
			t := &dedicated[i]
			if t.DatabaseName == "" {
				continue
			}
			db, err := connCache.Get(ctx, t.ID, t.DatabaseName)
			if err != nil {
				log.Warn("skipping unreachable dedicated database",
					zap.String("tenant_id", t.ID.String()),
					zap.String("database", t.DatabaseName),
					zap.Error(err))
				continue
			}
			pools = append(pools, event.OutboxPool{Name: t.DatabaseName, DB: db})
		}
		return pools, nil
	}
}

// runTenantSweeps runs the periodic maintenance jobs for one tenant.
// Failures are logged and do not stop the other tenants' sweeps.
func runTenantSweeps(
	ctx context.Context,
	cfg *config.Config,
	now time.Time,
	t *tenancy.Tenant,
	invoices *invoiceapp.InvoiceService,
	sales *posapp.SaleService,
	attendance *workforceapp.AttendanceService,
	messages *chanapp.MessageService,
	log *zap.Logger,
) {
	tenantField := zap.String("tenant_id", t.ID.String())

	if cfg.Worker.OverdueSweepEnabled {
		if n, err := invoices.SweepOverdue(ctx, now); err != nil {
			logSweepError(log, "overdue invoice sweep failed", tenantField, err)
		} else if n > 0 {
			log.Info("invoices marked overdue", tenantField, zap.Int("count", n))
		}

		if n, err := sales.SweepAbandoned(ctx, now.Add(-abandonedSaleAfter)); err != nil {
			logSweepError(log, "abandoned sale sweep failed", tenantField, err)
		} else if n > 0 {
			log.Info("abandoned sales voided", tenantField, zap.Int("count", n))
		}

		if n, err := messages.PruneSent(ctx, now.Add(-sentMessageRetention)); err != nil {
			logSweepError(log, "sent message prune failed", tenantField, err)
		} else if n > 0 {
			log.Info("sent messages pruned", tenantField, zap.Int64("count", n))
		}
	}

	if cfg.Worker.AttendanceAutoCloseEnabled {
		cutoff := now.Add(-cfg.Worker.AttendanceAutoCloseAfter)
		if n, err := attendance.AutoCloseOpen(ctx, cutoff); err != nil {
			logSweepError(log, "attendance auto-close failed", tenantField, err)
		} else if n > 0 {
			log.Info("open attendance records closed", tenantField, zap.Int("count", n))
		}
	}
}

func logSweepError(log *zap.Logger, msg string, tenantField zap.Field, err error) {
	if errors.Is(err, tenantdb.ErrTenantMigrating) {
		return
	}
	log.Error(msg, tenantField, zap.Error(err))
}

// forEachActiveTenant walks every active tenant and invokes fn with a
// context carrying that tenant's ID. Tenants mid-move are skipped; the
// router would refuse them anyway.
func forEachActiveTenant(
	ctx context.Context,
	tenantRepo tenancy.TenantRepository,
	log *zap.Logger,
	fn func(ctx context.Context, t *tenancy.Tenant),
) {
	for page := 1; ; page++ {
		tenants, err := tenantRepo.FindByStatus(ctx, tenancy.TenantStatusActive, shared.Filter{
			Page:     page,
			PageSize: tenantPageSize,
			OrderBy:  "created_at",
			OrderDir: "asc",
		})
		if err != nil {
			log.Error("failed to list active tenants", zap.Error(err))
			return
		}
		for i := range tenants {
			t := &tenants[i]
			if t.Placement == tenancy.PlacementMigrating {
				continue
			}
			tctx, _ := logger.WithTenantID(ctx, log, t.ID.String())
			fn(tctx, t)
		}
		if len(tenants) < tenantPageSize {
			return
		}
	}
}

// runEvery invokes fn immediately and then on every tick until the context
// is cancelled.
func runEvery(ctx context.Context, interval time.Duration, fn func(now time.Time)) {
	fn(time.Now())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			fn(now)
		}
	}
}
