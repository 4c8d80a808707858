package status

import (
	"bytes"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"ocsync/core/logger"
)

// Handler serves status reports over HTTP.
type Handler struct {
	reporter *Reporter
	log      *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(reporter *Reporter, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{reporter: reporter, log: log}
}

// RegisterRoutes registers the status routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Get("/health", h.HandleHealth)
	group := app.Group("/status")
	group.Get("/", h.HandleStatus)
	group.Get("/:name", h.HandleDestination)
}

// HandleStatus returns the full report. ?format=yaml selects YAML.
func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	l := logger.WithRequestID(h.log, c)

	rep, err := h.reporter.Get(c.UserContext())
	if err != nil {
		l.Error("Failed to build status report", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	format, err := ParseFormat(c.Query("format", string(FormatJSON)))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if format == FormatJSON {
		return c.JSON(rep)
	}

	var buf bytes.Buffer
	if err := Render(&buf, rep, format); err != nil {
		l.Error("Failed to render status report", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if format == FormatYAML {
		c.Set(fiber.HeaderContentType, "application/yaml")
	} else {
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	}
	return c.Send(buf.Bytes())
}

// HandleDestination returns the row for one destination.
func (h *Handler) HandleDestination(c *fiber.Ctx) error {
	l := logger.WithRequestID(h.log, c)
	name := c.Params("name")

	rep, err := h.reporter.Get(c.UserContext())
	if err != nil {
		l.Error("Failed to build status report", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	row, ok := rep.Find(name)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "destination not found", "name": name})
	}
	return c.JSON(row)
}

// HandleHealth returns 200 when the report is healthy and 503 otherwise.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	rep, err := h.reporter.Get(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "error", "error": err.Error()})
	}

	var attention []string
	for _, d := range rep.Destinations {
		if d.Recommendation != "" || d.Error != "" {
			attention = append(attention, d.Name)
		}
	}
	body := fiber.Map{
		"status":          "ok",
		"remote":          rep.Remote.Reachable,
		"needs_attention": attention,
	}
	if !rep.Healthy() {
		body["status"] = "degraded"
		return c.Status(fiber.StatusServiceUnavailable).JSON(body)
	}
	return c.JSON(body)
}
