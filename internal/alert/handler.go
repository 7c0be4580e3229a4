package alert

import (
	"fmt"

	"stocksense-backend/internal/apperr"
	"stocksense-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
)

func alertID(c *fiber.Ctx) (uint, error) {
	var id uint
	if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid alert ID")
	}
	return id, nil
}

// GET /api/alerts/summary
func SummaryHandler(e *Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := e.GetAlertSummary(c.UserContext())
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(s)
	}
}

// GET /api/alerts/low-stock
func LowStockHandler(e *Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resp, err := e.GetLowStockProducts(c.UserContext())
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// GET /api/alerts/active
func ActiveAlertsHandler(e *Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resp, err := e.GetActiveAlerts(c.UserContext())
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// POST /api/alerts/check
func CheckHandler(e *Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		n, err := e.CheckAndCreateAlerts(c.UserContext())
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"message": "Alert check completed", "created": n})
	}
}

// POST /api/alerts/:id/read
func MarkReadHandler(e *Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := alertID(c)
		if err != nil {
			return err
		}
		if err := e.MarkAsRead(c.UserContext(), id); err != nil {
			return apperr.ToFiber(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/alerts/:id/resolve
func ResolveHandler(e *Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := alertID(c)
		if err != nil {
			return err
		}
		if err := e.Resolve(c.UserContext(), id); err != nil {
			return apperr.ToFiber(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/alerts/settings
func GetSettingsHandler(e *Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := auth.Actor(c)
		s, err := e.GetSettings(c.UserContext(), userID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(s)
	}
}

// PUT /api/alerts/settings
func UpdateSettingsHandler(e *Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := auth.Actor(c)
		var body Settings
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		s, err := e.UpdateSettings(c.UserContext(), userID, body)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(s)
	}
}

func Register(r fiber.Router, e *Engine) {
	r.Get("/summary", SummaryHandler(e))
	r.Get("/low-stock", LowStockHandler(e))
	r.Get("/active", ActiveAlertsHandler(e))
	r.Post("/check", CheckHandler(e))
	r.Get("/settings", GetSettingsHandler(e))
	r.Put("/settings", UpdateSettingsHandler(e))
	r.Post("/:id/read", MarkReadHandler(e))
	r.Post("/:id/resolve", ResolveHandler(e))
}
