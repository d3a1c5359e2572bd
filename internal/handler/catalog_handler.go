package handler

import (
	"context"

	"go-pos-sync/internal/middleware"
	"go-pos-sync/internal/model"
	"go-pos-sync/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CatalogHandler exposes master data: categories, units, suppliers,
// customers, products, supplier links and settings.
type CatalogHandler struct {
	service service.CatalogService
}

func NewCatalogHandler(s service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: s}
}

// Register mounts the catalog routes. Reads are open to every signed-in
// user; writes go through the write middleware.
func (h *CatalogHandler) Register(r fiber.Router, write fiber.Handler) {
	s := h.service

	r.Get("/categories", listWith(s.ListCategories))
	r.Post("/categories", write, createWith(s.CreateCategory))
	r.Put("/categories/:id", write, updateWith(s.UpdateCategory))
	r.Delete("/categories/:id", write, deleteWith(s.DeleteCategory))

	r.Get("/units", listWith(s.ListUnits))
	r.Post("/units", write, createWith(s.CreateUnit))
	r.Put("/units/:id", write, updateWith(s.UpdateUnit))
	r.Delete("/units/:id", write, deleteWith(s.DeleteUnit))

	r.Get("/suppliers", listWith(s.ListSuppliers))
	r.Post("/suppliers", write, createWith(s.CreateSupplier))
	r.Put("/suppliers/:id", write, updateWith(s.UpdateSupplier))
	r.Delete("/suppliers/:id", write, deleteWith(s.DeleteSupplier))

	r.Get("/customers", listWith(s.ListCustomers))
	r.Post("/customers", createWith(s.CreateCustomer))
	r.Put("/customers/:id", updateWith(s.UpdateCustomer))
	r.Delete("/customers/:id", write, deleteWith(s.DeleteCustomer))

	r.Get("/products", listWith(s.ListProducts))
	r.Post("/products", write, createWith(s.CreateProduct))
	r.Put("/products/:id", write, updateWith(s.UpdateProduct))
	r.Delete("/products/:id", write, deleteWith(s.DeleteProduct))

	r.Post("/product-suppliers", write, createWith(s.LinkSupplier))
	r.Delete("/product-suppliers/:id", write, deleteWith(s.UnlinkSupplier))

	r.Get("/settings", listWith(s.ListSettings))
	r.Get("/settings/:key", h.GetSetting)
	r.Put("/settings/:key", write, h.SetSetting)
}

func (h *CatalogHandler) GetSetting(c *fiber.Ctx) error {
	key := c.Params("key")
	value, err := h.service.GetSetting(c.UserContext(), middleware.Session(c), key)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"key": key, "value": value})
}

func (h *CatalogHandler) SetSetting(c *fiber.Ctx) error {
	var req struct {
		Value string `json:"value"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	setting, err := h.service.SetSetting(c.UserContext(), middleware.Session(c), c.Params("key"), req.Value)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(setting)
}

func listWith[Out any](fn func(context.Context, model.Session) (Out, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		out, err := fn(c.UserContext(), middleware.Session(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(out)
	}
}

func createWith[In, Out any](fn func(context.Context, model.Session, *In) (Out, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := new(In)
		if err := c.BodyParser(req); err != nil {
			return invalidJSON(c)
		}
		out, err := fn(c.UserContext(), middleware.Session(c), req)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(201).JSON(fiber.Map{"message": "Created", "data": out})
	}
}

func updateWith[In, Out any](fn func(context.Context, model.Session, uuid.UUID, *In) (Out, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramUUID(c)
		if err != nil {
			return invalidID(c)
		}
		req := new(In)
		if err := c.BodyParser(req); err != nil {
			return invalidJSON(c)
		}
		out, err := fn(c.UserContext(), middleware.Session(c), id, req)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "Updated", "data": out})
	}
}

func deleteWith(fn func(context.Context, model.Session, uuid.UUID) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramUUID(c)
		if err != nil {
			return invalidID(c)
		}
		if err := fn(c.UserContext(), middleware.Session(c), id); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "Deleted"})
	}
}
