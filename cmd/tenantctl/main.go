package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	tenancyapp "github.com/retail/backend/internal/application/tenancy"
	"github.com/retail/backend/internal/infrastructure/config"
	"github.com/retail/backend/internal/infrastructure/logger"
	"github.com/retail/backend/internal/infrastructure/persistence"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
	"github.com/retail/backend/migrations"
)

// tenantctl is the operator's tool for the tenant directory: onboarding,
// lifecycle changes, licensing, and the plan upgrade that moves a tenant
// into a dedicated database.
func main() {
	var logLevel string
	flag.StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	database, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	// CREATE DATABASE runs outside gorm, on a plain connection with
	// CREATEDB rights.
	admin, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open admin connection", zap.Error(err))
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	tenantRepo := persistence.NewGormTenantRepository(database.DB)

	// The directory cache must be the one the running servers read, so a
	// move invalidates their view too. Without Redis the invalidation only
	// reaches this process, which is fine for single-node setups.
	var recordCache tenantdb.RecordCache
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
			log.Warn("Redis unavailable, directory invalidation stays local", zap.Error(err))
			_ = client.Close()
			recordCache = tenantdb.NewMemoryRecordCache()
		} else {
			defer client.Close()
			recordCache = tenantdb.NewRedisRecordCache(client, "")
		}
	} else {
		recordCache = tenantdb.NewMemoryRecordCache()
	}
	directory := tenantdb.NewDirectory(tenantRepo, recordCache, cfg.TenantDB.DirectoryTTL,
		tenantdb.WithDirectoryLogger(log))

	provisioner := tenantdb.NewProvisioner(
		admin,
		cfg.Database.DSNForDatabase,
		migrations.FS,
		migrations.TenantDir,
		tenantdb.WithDatabasePrefix(cfg.TenantDB.DatabasePrefix),
		tenantdb.WithProvisionerLogger(log),
	)

	mover := tenantdb.NewMover(
		tenantRepo,
		database.DB,
		provisioner,
		persistence.NewTenantDialFunc(cfg),
		directory,
		persistence.MovePlan(),
		tenantdb.WithMoveBatchSize(cfg.TenantDB.MoveBatchSize),
		tenantdb.WithSettleDelay(cfg.TenantDB.MoveSettleDelay),
		tenantdb.WithMoverLogger(log),
	)

	service := tenancyapp.NewTenantService(tenantRepo, mover, log)

	if err := run(ctx, command, args[1:], service); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string, service *tenancyapp.TenantService) error {
	switch command {
	case "create":
		return runCreate(ctx, args, service)
	case "list":
		return runList(ctx, args, service)
	case "show":
		return runShow(ctx, args, service)
	case "suspend":
		return runSuspend(ctx, args, service)
	case "reactivate":
		return runLifecycle(ctx, args, service, service.Reactivate)
	case "archive":
		return runLifecycle(ctx, args, service, service.Archive)
	case "upgrade":
		return runLifecycle(ctx, args, service, service.Upgrade)
	case "downgrade":
		return runDowngrade(ctx, args, service)
	case "provision":
		return runLifecycle(ctx, args, service, service.Provision)
	case "license":
		return runLicense(ctx, args, service)
	case "stats":
		return runStats(ctx, service)
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func runCreate(ctx context.Context, args []string, service *tenancyapp.TenantService) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	code := fs.String("code", "", "Unique tenant code (required)")
	name := fs.String("name", "", "Display name (required)")
	subdomain := fs.String("subdomain", "", "Subdomain under the base domain (required)")
	currency := fs.String("currency", "", "ISO 4217 currency code")
	contactName := fs.String("contact-name", "", "Primary contact name")
	contactPhone := fs.String("contact-phone", "", "Primary contact phone")
	contactEmail := fs.String("contact-email", "", "Primary contact email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *code == "" || *name == "" || *subdomain == "" {
		return fmt.Errorf("-code, -name and -subdomain are required")
	}

	tenant, err := service.Create(ctx, tenancyapp.CreateTenantRequest{
		Code:         *code,
		Name:         *name,
		Subdomain:    *subdomain,
		Currency:     *currency,
		ContactName:  *contactName,
		ContactPhone: *contactPhone,
		ContactEmail: *contactEmail,
	})
	if err != nil {
		return err
	}
	printTenant(tenant)
	return nil
}

func runList(ctx context.Context, args []string, service *tenancyapp.TenantService) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	status := fs.String("status", "", "Filter by status (active, suspended, archived)")
	plan := fs.String("plan", "", "Filter by plan (free, enterprise)")
	placement := fs.String("placement", "", "Filter by placement (shared, dedicated, migrating)")
	page := fs.Int("page", 1, "Page number")
	pageSize := fs.Int("page-size", 50, "Page size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tenants, total, err := service.List(ctx, tenancyapp.TenantListFilter{
		Status:    *status,
		Plan:      *plan,
		Placement: *placement,
		Page:      *page,
		PageSize:  *pageSize,
	})
	if err != nil {
		return err
	}

	fmt.Printf("%-36s  %-12s  %-20s  %-9s  %-10s  %-10s  %s\n",
		"ID", "CODE", "SUBDOMAIN", "STATUS", "PLAN", "PLACEMENT", "DATABASE")
	for i := range tenants {
		t := &tenants[i]
		fmt.Printf("%-36s  %-12s  %-20s  %-9s  %-10s  %-10s  %s\n",
			t.ID, t.Code, t.Subdomain, t.Status, t.Plan, t.Placement, t.DatabaseName)
	}
	fmt.Printf("\n%d of %d tenants\n", len(tenants), total)
	return nil
}

func runShow(ctx context.Context, args []string, service *tenancyapp.TenantService) error {
	tenant, err := resolveTenant(ctx, args, service)
	if err != nil {
		return err
	}
	printTenant(tenant)
	return nil
}

func runSuspend(ctx context.Context, args []string, service *tenancyapp.TenantService) error {
	fs := flag.NewFlagSet("suspend", flag.ExitOnError)
	reason := fs.String("reason", "", "Why the tenant is being suspended")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := resolveTenantID(ctx, fs.Args(), service)
	if err != nil {
		return err
	}
	tenant, err := service.Suspend(ctx, id, tenancyapp.SuspendTenantRequest{Reason: *reason})
	if err != nil {
		return err
	}
	printTenant(tenant)
	return nil
}

func runDowngrade(ctx context.Context, args []string, service *tenancyapp.TenantService) error {
	id, err := resolveTenantID(ctx, args, service)
	if err != nil {
		return err
	}
	return service.Downgrade(ctx, id)
}

// runLifecycle handles the commands that take a tenant reference and
// return the updated tenant.
func runLifecycle(
	ctx context.Context,
	args []string,
	service *tenancyapp.TenantService,
	op func(context.Context, uuid.UUID) (*tenancyapp.TenantResponse, error),
) error {
	id, err := resolveTenantID(ctx, args, service)
	if err != nil {
		return err
	}
	tenant, err := op(ctx, id)
	if err != nil {
		return err
	}
	printTenant(tenant)
	return nil
}

func runLicense(ctx context.Context, args []string, service *tenancyapp.TenantService) error {
	fs := flag.NewFlagSet("license", flag.ExitOnError)
	key := fs.String("key", "", "License key (required)")
	expires := fs.String("expires", "", "Expiry date, YYYY-MM-DD (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *key == "" || *expires == "" {
		return fmt.Errorf("-key and -expires are required")
	}
	expiresAt, err := time.Parse("2006-01-02", *expires)
	if err != nil {
		return fmt.Errorf("invalid -expires date: %w", err)
	}

	id, err := resolveTenantID(ctx, fs.Args(), service)
	if err != nil {
		return err
	}
	tenant, err := service.AssignLicense(ctx, id, tenancyapp.AssignLicenseRequest{
		LicenseKey: *key,
		ExpiresAt:  expiresAt,
	})
	if err != nil {
		return err
	}
	printTenant(tenant)
	return nil
}

func runStats(ctx context.Context, service *tenancyapp.TenantService) error {
	stats, err := service.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Total:      %d\n", stats.Total)
	fmt.Printf("Active:     %d\n", stats.Active)
	fmt.Printf("Suspended:  %d\n", stats.Suspended)
	fmt.Printf("Archived:   %d\n", stats.Archived)
	fmt.Printf("Free plan:  %d\n", stats.FreePlan)
	fmt.Printf("Enterprise: %d\n", stats.Enterprise)
	fmt.Printf("Dedicated:  %d\n", stats.Dedicated)
	fmt.Printf("Migrating:  %d\n", stats.Migrating)
	return nil
}

// resolveTenant accepts either a tenant UUID or a tenant code.
func resolveTenant(ctx context.Context, args []string, service *tenancyapp.TenantService) (*tenancyapp.TenantResponse, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("tenant ID or code required")
	}
	ref := args[0]
	if id, err := uuid.Parse(ref); err == nil {
		return service.Get(ctx, id)
	}
	return service.GetByCode(ctx, ref)
}

func resolveTenantID(ctx context.Context, args []string, service *tenancyapp.TenantService) (uuid.UUID, error) {
	tenant, err := resolveTenant(ctx, args, service)
	if err != nil {
		return uuid.Nil, err
	}
	return tenant.ID, nil
}

func printTenant(t *tenancyapp.TenantResponse) {
	fmt.Printf("ID:         %s\n", t.ID)
	fmt.Printf("Code:       %s\n", t.Code)
	fmt.Printf("Name:       %s\n", t.Name)
	fmt.Printf("Subdomain:  %s\n", t.Subdomain)
	fmt.Printf("Status:     %s\n", t.Status)
	fmt.Printf("Plan:       %s\n", t.Plan)
	fmt.Printf("Placement:  %s\n", t.Placement)
	fmt.Printf("Currency:   %s\n", t.Currency)
	if t.DatabaseName != "" {
		fmt.Printf("Database:   %s\n", t.DatabaseName)
	}
	if t.ProvisionedAt != nil {
		fmt.Printf("Provisioned: %s\n", t.ProvisionedAt.Format(time.RFC3339))
	}
	if t.LicenseKey != "" {
		fmt.Printf("License:    %s (expires %s, expired=%s)\n",
			t.LicenseKey,
			formatTimePtr(t.LicenseExpiresAt),
			strconv.FormatBool(t.LicenseExpired))
	}
	if t.ContactName != "" || t.ContactPhone != "" || t.ContactEmail != "" {
		fmt.Printf("Contact:    %s %s %s\n", t.ContactName, t.ContactPhone, t.ContactEmail)
	}
	fmt.Printf("Created:    %s\n", t.CreatedAt.Format(time.RFC3339))
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format("2006-01-02")
}

func printUsage() {
	fmt.Println(`Tenant Directory Tool

Usage:
  tenantctl [flags] <command> [arguments]

Commands:
  create -code <c> -name <n> -subdomain <s>   Onboard a tenant
  list [-status s] [-plan p] [-placement pl]  List tenants
  show <id|code>                              Show one tenant
  suspend [-reason r] <id|code>               Suspend a tenant
  reactivate <id|code>                        Reactivate a suspended tenant
  archive <id|code>                           Archive a tenant (terminal)
  upgrade <id|code>                           Move to enterprise plan and a dedicated database
  downgrade <id|code>                         Refused; moving back to shared is not supported
  provision <id|code>                         Run or resume the dedicated database move
  license -key <k> -expires <date> <id|code>  Assign a license
  stats                                       Directory summary

Flags:
  -log-level string   Log level: debug, info, warn, error (default: warn)`)
}
