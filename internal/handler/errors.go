package handler

import (
	"errors"
	"log/slog"

	"go-pos-sync/internal/model"
	"go-pos-sync/internal/repository"
	"go-pos-sync/internal/service"
	"go-pos-sync/internal/syncengine"
	"go-pos-sync/pkg/jwt"
	"go-pos-sync/pkg/validator"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var statusByError = []struct {
	err    error
	status int
}{
	{model.ErrNoAuthenticatedUser, fiber.StatusUnauthorized},
	{service.ErrInvalidCredentials, fiber.StatusUnauthorized},
	{jwt.ErrInvalidToken, fiber.StatusUnauthorized},
	{jwt.ErrMissingToken, fiber.StatusUnauthorized},

	{model.ErrNoActiveTenant, fiber.StatusForbidden},
	{model.ErrTenantInactive, fiber.StatusForbidden},
	{service.ErrTenantNotActivated, fiber.StatusForbidden},
	{service.ErrUserInactive, fiber.StatusForbidden},

	{service.ErrProductNotFound, fiber.StatusNotFound},
	{service.ErrCustomerNotFound, fiber.StatusNotFound},
	{service.ErrSupplierNotFound, fiber.StatusNotFound},
	{service.ErrSaleNotFound, fiber.StatusNotFound},
	{service.ErrCategoryNotFound, fiber.StatusNotFound},
	{service.ErrUnitNotFound, fiber.StatusNotFound},
	{service.ErrSettingNotFound, fiber.StatusNotFound},
	{service.ErrSupplierLinkMissing, fiber.StatusNotFound},
	{service.ErrLedgerEntryNotFound, fiber.StatusNotFound},
	{service.ErrUserNotFound, fiber.StatusNotFound},
	{service.ErrNotActivated, fiber.StatusNotFound},
	{repository.ErrNotFound, fiber.StatusNotFound},

	{service.ErrSKUExists, fiber.StatusConflict},
	{service.ErrSupplierLinkExists, fiber.StatusConflict},
	{service.ErrUsernameExists, fiber.StatusConflict},
	{service.ErrAlreadyCancelled, fiber.StatusConflict},
	{service.ErrAlreadyReversed, fiber.StatusConflict},
	{syncengine.ErrCycleInProgress, fiber.StatusConflict},

	{service.ErrCategoryCycle, fiber.StatusBadRequest},
	{service.ErrProductInactive, fiber.StatusBadRequest},
	{service.ErrCannotReverseReversal, fiber.StatusBadRequest},
	{service.ErrLinkedToTransaction, fiber.StatusBadRequest},
	{service.ErrWrongPassword, fiber.StatusBadRequest},
	{service.ErrCannotDeleteSelf, fiber.StatusBadRequest},
	{validator.ErrValidation, fiber.StatusBadRequest},
}

func statusFor(err error) int {
	for _, e := range statusByError {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return fiber.StatusInternalServerError
}

// fail writes err as a JSON error. Internal errors are logged and not echoed.
func fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(status).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func paramUUID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("id"))
}

func invalidID(c *fiber.Ctx) error {
	return c.Status(400).JSON(fiber.Map{"error": "Invalid ID"})
}

func invalidJSON(c *fiber.Ctx) error {
	return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
}
