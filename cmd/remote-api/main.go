package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go-pos-sync/internal/config"
	"go-pos-sync/internal/model"
	"go-pos-sync/internal/remoteapi"
	"go-pos-sync/pkg/database"

	"github.com/gofiber/fiber/v2/middleware/logger"
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

	apiKey := cfg.RemoteAPIKey
	if apiKey == "" {
		log.Fatal("REMOTE_API_KEY is required")
	}

	// 2. Setup Database
	db, err := database.ConnectPostgres(cfg.RemoteDatabaseURL, cfg.DBDebug)
	if err != nil {
		log.Fatalf("Failed to connect to remote database: %v", err)
	}
	store := remoteapi.NewStore(db)
	if err := store.Migrate(); err != nil {
		log.Fatalf("Failed to migrate remote database: %v", err)
	}

	// 3. Seed a tenant for a fresh deployment
	seedTenant(store)

	// 4. Setup Fiber
	app := remoteapi.NewServer(store, apiKey).App(logger.New())

	// 5. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.RemotePort); err != nil {
			log.Panic(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down remote store...")
	if err := app.Shutdown(); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
	database.Close(db)
	log.Println("Server exited")
}

// seedTenant stores SEED_TENANT_UUID as an active tenant when it is set.
func seedTenant(store *remoteapi.Store) {
	raw := os.Getenv("SEED_TENANT_UUID")
	if raw == "" {
		return
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		log.Printf("Warning: SEED_TENANT_UUID %q is not a uuid", raw)
		return
	}
	name := os.Getenv("SEED_TENANT_NAME")
	if name == "" {
		name = "Default Tenant"
	}
	tenant := &model.Tenant{UUID: id, Name: name, Status: model.TenantStatusActive}
	if err := store.SeedTenant(context.Background(), tenant); err != nil {
		log.Printf("Warning: Failed to seed tenant: %v", err)
		return
	}
	log.Printf("✅ Tenant %s (%s) is ready for activation", name, id)
}
