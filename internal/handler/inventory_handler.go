package handler

import (
	"go-pos-sync/internal/middleware"
	"go-pos-sync/internal/service"

	"github.com/gofiber/fiber/v2"
)

type InventoryHandler struct {
	service service.InventoryService
}

func NewInventoryHandler(s service.InventoryService) *InventoryHandler {
	return &InventoryHandler{service: s}
}

// GET /api/v1/stock
func (h *InventoryHandler) GetStockLevels(c *fiber.Ctx) error {
	levels, err := h.service.StockLevels(c.UserContext(), middleware.Session(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(levels)
}

// GET /api/v1/stock/:id
func (h *InventoryHandler) GetStock(c *fiber.Ctx) error {
	productID, err := paramUUID(c)
	if err != nil {
		return invalidID(c)
	}

	stock, err := h.service.Stock(c.UserContext(), middleware.Session(c), productID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"product_uuid": productID, "stock": stock})
}

// GET /api/v1/stock/:id/history
func (h *InventoryHandler) GetHistory(c *fiber.Ctx) error {
	productID, err := paramUUID(c)
	if err != nil {
		return invalidID(c)
	}

	entries, err := h.service.History(c.UserContext(), middleware.Session(c), productID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(entries)
}

// POST /api/v1/stock/adjustments
func (h *InventoryHandler) AdjustStock(c *fiber.Ctx) error {
	var req service.AdjustmentInput
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	entry, err := h.service.AdjustStock(c.UserContext(), middleware.Session(c), &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Stock adjusted", "data": entry})
}

// POST /api/v1/stock/adjustments/:id/reverse
func (h *InventoryHandler) ReverseAdjustment(c *fiber.Ctx) error {
	entryID, err := paramUUID(c)
	if err != nil {
		return invalidID(c)
	}

	var req struct {
		Note string `json:"note"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return invalidJSON(c)
		}
	}

	entry, err := h.service.ReverseAdjustment(c.UserContext(), middleware.Session(c), entryID, req.Note)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Adjustment reversed", "data": entry})
}
