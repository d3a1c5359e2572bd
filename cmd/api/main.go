package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-pos-sync/internal/config"
	"go-pos-sync/internal/handler"
	"go-pos-sync/internal/model"
	"go-pos-sync/internal/remote"
	"go-pos-sync/internal/repository"
	"go-pos-sync/internal/service"
	"go-pos-sync/internal/syncengine"
	"go-pos-sync/internal/ws"
	"go-pos-sync/pkg/database"
	"go-pos-sync/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}
	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 2. Setup Database
	db, err := database.OpenLocal(cfg.LocalDBPath, database.LocalOptions{Debug: cfg.DBDebug})
	if err != nil {
		log.Fatalf("Failed to open local store: %v", err)
	}
	defer database.Close(db)
	store := repository.NewStore(db)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 3. Setup WebSocket Hub
	wsHub := ws.NewHub()
	go wsHub.Run(ctx)

	// 4. Sync engine and push scheduler
	client := remote.NewClient(cfg.RemoteBaseURL, cfg.RemoteAPIKey, cfg.RemoteTimeout)
	engine := syncengine.NewEngine(store, client, syncengine.LogReporter{}, wsHub)
	scheduler := syncengine.NewScheduler(engine, tenantSource(store, cfg.TenantUUID), cfg.PushInterval, cfg.PushInitialDelay)
	scheduler.Start(ctx)

	// 5. Dependency Injection (Wiring Layers)
	hasher := service.BcryptHasher{}
	authService := service.NewAuthService(store, hasher, jwt.NewSigner(cfg.JWTSecret, 12*time.Hour))
	activation := service.NewActivationService(store, client, engine, wsHub)

	seedAdmin(ctx, store, hasher)

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "POS Sync v1.0",
	})

	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	// 7. Routes
	handler.SetupRoutes(app, handler.Handlers{
		Authenticator: authService,
		Auth:          handler.NewAuthHandler(authService),
		Users:         handler.NewUserHandler(service.NewUserService(store, hasher)),
		Dashboard:     handler.NewDashboardHandler(service.NewDashboardService(store)),
		Inventory:     handler.NewInventoryHandler(service.NewInventoryService(store, wsHub)),
		Transactions:  handler.NewTransactionHandler(service.NewTransactionService(store, wsHub)),
		Catalog:       handler.NewCatalogHandler(service.NewCatalogService(store, wsHub)),
		Sync:          handler.NewSyncHandler(ctx, activation, engine, scheduler),
		Hub:           wsHub,
	})

	// 8. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Panic(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	scheduler.Stop()
	if err := app.Shutdown(); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
	stop()

	log.Println("Server exited")
}

// tenantSource pushes for the activated tenant, falling back to TENANT_UUID.
func tenantSource(store *repository.Store, fallback uuid.UUID) syncengine.TenantSource {
	return func(ctx context.Context) (uuid.UUID, error) {
		tenant, err := store.Tenants.Current(ctx)
		if err == nil {
			return tenant.UUID, nil
		}
		if errors.Is(err, repository.ErrNotFound) && fallback != uuid.Nil {
			return fallback, nil
		}
		return uuid.Nil, err
	}
}

// seedAdmin creates admin/ADMIN_PASSWORD for an activated tenant that has no
// users yet, so a fresh installation can sign in.
func seedAdmin(ctx context.Context, store *repository.Store, hasher service.PasswordHasher) {
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		return
	}
	tenant, err := store.Tenants.Current(ctx)
	if err != nil {
		return
	}
	users, err := store.Users.QueryAll(ctx, tenant.UUID)
	if err != nil || len(users) > 0 {
		return
	}

	_, err = service.NewUserService(store, hasher).CreateUser(ctx, model.NewSession(tenant, nil), &service.CreateUserRequest{
		Username: "admin",
		Password: password,
		FullName: "Administrator",
		Role:     model.RoleAdmin,
	})
	if err != nil {
		log.Printf("Warning: Failed to create admin user: %v", err)
		return
	}
	log.Println("✅ Admin user created: admin (ADMIN)")
}
