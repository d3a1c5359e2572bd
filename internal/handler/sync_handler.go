package handler

import (
	"context"
	"errors"

	"go-pos-sync/internal/middleware"
	"go-pos-sync/internal/service"
	"go-pos-sync/internal/syncengine"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// StatusSource reports the sync state of a tenant.
type StatusSource interface {
	Status(tenant uuid.UUID) syncengine.Status
}

// PushTrigger asks for a push outside the regular schedule.
type PushTrigger interface {
	TriggerNow()
}

type SyncHandler struct {
	activation service.ActivationService
	status     StatusSource
	trigger    PushTrigger
	// background outlives the request that starts an activation.
	background context.Context
}

func NewSyncHandler(ctx context.Context, activation service.ActivationService, status StatusSource, trigger PushTrigger) *SyncHandler {
	return &SyncHandler{activation: activation, status: status, trigger: trigger, background: ctx}
}

type ActivateRequest struct {
	TenantID uuid.UUID `json:"tenant_uuid"`
}

// Activate starts the activation and returns at once; progress and the
// outcome are streamed on /ws and visible on /sync/status.
// POST /api/v1/activate
func (h *SyncHandler) Activate(c *fiber.Ctx) error {
	var req ActivateRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	if req.TenantID == uuid.Nil {
		return c.Status(400).JSON(fiber.Map{"error": "tenant_uuid is required"})
	}

	done := h.activation.Activate(h.background, req.TenantID)
	go func() {
		for range done {
		}
	}()

	return c.Status(202).JSON(fiber.Map{
		"message":   "Activation started",
		"tenant_id": req.TenantID,
	})
}

// GET /api/v1/tenant
func (h *SyncHandler) CurrentTenant(c *fiber.Ctx) error {
	tenant, err := h.activation.Current(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(tenant)
}

// Status reports the sync state of ?tenant_id=, defaulting to the activated
// tenant.
// GET /api/v1/sync/status
func (h *SyncHandler) Status(c *fiber.Ctx) error {
	var tenant uuid.UUID
	if q := c.Query("tenant_id"); q != "" {
		id, err := uuid.Parse(q)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid tenant_id"})
		}
		tenant = id
	} else {
		current, err := h.activation.Current(c.UserContext())
		if err != nil {
			if errors.Is(err, service.ErrNotActivated) {
				return c.JSON(syncengine.Status{State: syncengine.StateIdle})
			}
			return fail(c, err)
		}
		tenant = current.UUID
	}
	return c.JSON(h.status.Status(tenant))
}

// Push triggers a push of the signed-in tenant now.
// POST /api/v1/sync/push
func (h *SyncHandler) Push(c *fiber.Ctx) error {
	if _, err := middleware.Session(c).TenantID(); err != nil {
		return fail(c, err)
	}
	h.trigger.TriggerNow()
	return c.Status(202).JSON(fiber.Map{"message": "Push scheduled"})
}
