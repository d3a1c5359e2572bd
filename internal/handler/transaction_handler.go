package handler

import (
	"go-pos-sync/internal/middleware"
	"go-pos-sync/internal/model"
	"go-pos-sync/internal/service"

	"github.com/gofiber/fiber/v2"
)

type TransactionHandler struct {
	service service.TransactionService
}

func NewTransactionHandler(s service.TransactionService) *TransactionHandler {
	return &TransactionHandler{service: s}
}

// POST /api/v1/sales
func (h *TransactionHandler) RecordSale(c *fiber.Ctx) error {
	var req service.SaleInput
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	detail, err := h.service.RecordSale(c.UserContext(), middleware.Session(c), &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Sale recorded", "data": detail})
}

// POST /api/v1/purchases
func (h *TransactionHandler) RecordPurchase(c *fiber.Ctx) error {
	var req service.PurchaseInput
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	detail, err := h.service.RecordPurchase(c.UserContext(), middleware.Session(c), &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Purchase recorded", "data": detail})
}

// POST /api/v1/sales/availability
func (h *TransactionHandler) CheckAvailability(c *fiber.Ctx) error {
	var req struct {
		Items []service.SaleLine `json:"items"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	shortages, err := h.service.CheckAvailability(c.UserContext(), middleware.Session(c), req.Items)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"available": len(shortages) == 0, "shortages": shortages})
}

// GET /api/v1/transactions?type=sale|purchase
func (h *TransactionHandler) ListTransactions(c *fiber.Ctx) error {
	saleType := model.SaleType(c.Query("type"))
	if saleType != "" && !saleType.Valid() {
		return c.Status(400).JSON(fiber.Map{"error": "type must be sale or purchase"})
	}

	sales, err := h.service.ListSales(c.UserContext(), middleware.Session(c), saleType)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(sales)
}

// GET /api/v1/transactions/:id
func (h *TransactionHandler) GetTransaction(c *fiber.Ctx) error {
	saleID, err := paramUUID(c)
	if err != nil {
		return invalidID(c)
	}

	detail, err := h.service.GetSale(c.UserContext(), middleware.Session(c), saleID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(detail)
}

// POST /api/v1/transactions/:id/payments
func (h *TransactionHandler) ApplyPayment(c *fiber.Ctx) error {
	saleID, err := paramUUID(c)
	if err != nil {
		return invalidID(c)
	}

	var req service.PaymentInput
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	detail, err := h.service.ApplyPayment(c.UserContext(), middleware.Session(c), saleID, &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Payment applied", "data": detail})
}

// POST /api/v1/transactions/:id/cancel
func (h *TransactionHandler) CancelTransaction(c *fiber.Ctx) error {
	saleID, err := paramUUID(c)
	if err != nil {
		return invalidID(c)
	}

	if err := h.service.CancelTransaction(c.UserContext(), middleware.Session(c), saleID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Transaction cancelled"})
}
