package handler

import (
	"go-pos-sync/internal/middleware"
	"go-pos-sync/internal/model"
	"go-pos-sync/internal/service"
	"go-pos-sync/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// Handlers groups everything the local API serves.
type Handlers struct {
	Authenticator service.AuthService
	Auth          *AuthHandler
	Users         *UserHandler
	Dashboard     *DashboardHandler
	Inventory     *InventoryHandler
	Transactions  *TransactionHandler
	Catalog       *CatalogHandler
	Sync          *SyncHandler
	Hub           *ws.Hub
}

func SetupRoutes(app *fiber.App, h Handlers) {
	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	api.Post("/auth/login", h.Auth.Login)
	api.Post("/activate", h.Sync.Activate)
	api.Get("/tenant", h.Sync.CurrentTenant)
	api.Get("/sync/status", h.Sync.Status)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(h.Authenticator))
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	protected.Get("/auth/me", h.Auth.Me)
	protected.Post("/auth/change-password", h.Auth.ChangePassword)

	protected.Post("/sync/push", h.Sync.Push)

	protected.Get("/dashboard/stats", h.Dashboard.GetDashboardStats)
	protected.Get("/dashboard/stock-movement", h.Dashboard.GetStockMovement)

	protected.Get("/stock", h.Inventory.GetStockLevels)
	protected.Get("/stock/:id", h.Inventory.GetStock)
	protected.Get("/stock/:id/history", h.Inventory.GetHistory)
	protected.Post("/stock/adjustments", adminOnly, h.Inventory.AdjustStock)
	protected.Post("/stock/adjustments/:id/reverse", adminOnly, h.Inventory.ReverseAdjustment)

	protected.Post("/sales", h.Transactions.RecordSale)
	protected.Post("/sales/availability", h.Transactions.CheckAvailability)
	protected.Post("/purchases", adminOnly, h.Transactions.RecordPurchase)
	protected.Get("/transactions", h.Transactions.ListTransactions)
	protected.Get("/transactions/:id", h.Transactions.GetTransaction)
	protected.Post("/transactions/:id/payments", h.Transactions.ApplyPayment)
	protected.Post("/transactions/:id/cancel", adminOnly, h.Transactions.CancelTransaction)

	h.Catalog.Register(protected, adminOnly)

	protected.Get("/users", h.Users.GetUsers)
	protected.Get("/users/:id", h.Users.GetUser)
	protected.Post("/users", adminOnly, h.Users.CreateUser)
	protected.Put("/users/:id", adminOnly, h.Users.UpdateUser)
	protected.Delete("/users/:id", adminOnly, h.Users.DeleteUser)

	if h.Hub == nil {
		return
	}
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		h.Hub.Register <- c
		defer func() { h.Hub.Unregister <- c }()

		for {
			// keep-alive; clients only listen
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))
}
