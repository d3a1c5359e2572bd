package remoteapi

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

var filterColumns = []string{"tenant_id", "uuid"}

type Server struct {
	store  *Store
	apiKey string
	logger *slog.Logger
}

func NewServer(store *Store, apiKey string) *Server {
	return &Server{
		store:  store,
		apiKey: apiKey,
		logger: slog.Default().With("component", "remoteapi"),
	}
}

// App builds the fiber application serving every collection under /. The
// given middleware runs before the collection routes.
func (s *Server) App(middleware ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "POS Remote Store",
		BodyLimit:    16 * 1024 * 1024,
		ErrorHandler: s.errorHandler,
	})
	app.Use(recover.New())
	for _, m := range middleware {
		app.Use(m)
	}
	s.Register(app)
	return app
}

// Register mounts the collection routes on r.
func (s *Server) Register(r fiber.Router) {
	r.Use(s.requireKey)
	r.Get("/:collection", s.List)
	r.Post("/:collection", s.Upsert)
}

// requireKey accepts the key either as a bearer token or as the apikey header.
func (s *Server) requireKey(c *fiber.Ctx) error {
	key := c.Get("apikey")
	if key == "" {
		key = strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
	}
	if s.apiKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
		return c.Status(401).JSON(fiber.Map{"error": "Invalid API key"})
	}
	return c.Next()
}

// List answers GET /:collection?tenant_id=eq.<id>&uuid=eq.<id> with a JSON
// array of stored documents.
func (s *Server) List(c *fiber.Ctx) error {
	var f Filter
	for _, col := range filterColumns {
		raw := c.Query(col)
		if raw == "" {
			continue
		}
		value, ok := strings.CutPrefix(raw, "eq.")
		if !ok {
			return c.Status(400).JSON(fiber.Map{"error": "Only eq. filters are supported on " + col})
		}
		switch col {
		case "tenant_id":
			f.TenantID = value
		case "uuid":
			f.UUID = value
		}
	}

	docs, err := s.store.Find(c.UserContext(), c.Params("collection"), f)
	if err != nil {
		return s.fail(c, err)
	}

	// Build the array by hand so documents go out byte for byte.
	var b strings.Builder
	b.WriteByte('[')
	for i, doc := range docs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.Write(doc)
	}
	b.WriteByte(']')
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.SendString(b.String())
}

// Upsert answers POST /:collection?on_conflict=uuid. The body is one object
// or an array of objects.
func (s *Server) Upsert(c *fiber.Ctx) error {
	if conflict := c.Query("on_conflict"); conflict != "" && conflict != "uuid" {
		return c.Status(400).JSON(fiber.Map{"error": "on_conflict must be uuid"})
	}

	n, err := s.store.Upsert(c.UserContext(), c.Params("collection"), c.Body())
	if err != nil {
		return s.fail(c, err)
	}
	s.logger.Debug("upserted", "collection", c.Params("collection"), "records", n)
	return c.SendStatus(201)
}

func (s *Server) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrInvalidCollection), errors.Is(err, ErrInvalidRecord):
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrTenantConflict):
		return c.Status(409).JSON(fiber.Map{"error": err.Error()})
	}
	s.logger.Error("request failed", "path", c.Path(), "error", err)
	return c.Status(500).JSON(fiber.Map{"error": "Internal server error"})
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	return s.fail(c, err)
}
