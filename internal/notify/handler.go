package notify

import (
	"fmt"

	"stocksense-backend/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

func parseID(c *fiber.Ctx) (uint, error) {
	var id uint
	if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid webhook ID")
	}
	return id, nil
}

// GET /api/integrations/webhooks
func ListWebhooksHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resp, err := svc.List(c.UserContext())
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// GET /api/integrations/webhooks/:id
func GetWebhookHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		resp, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// POST /api/integrations/webhooks
func CreateWebhookHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body WebhookInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		resp, err := svc.Create(c.UserContext(), body)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// PUT /api/integrations/webhooks/:id
func UpdateWebhookHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		var body WebhookInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		resp, err := svc.Update(c.UserContext(), id, body)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// DELETE /api/integrations/webhooks/:id
func DeleteWebhookHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return apperr.ToFiber(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/integrations/webhooks/:id/test
func TestWebhookHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		ok, err := svc.Test(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		msg := "Webhook test failed"
		if ok {
			msg = "Webhook test successful"
		}
		return c.JSON(fiber.Map{"success": ok, "message": msg})
	}
}

// GET /api/integrations/webhooks/logs?webhook_id=&limit=
func ListWebhookLogsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var webhookID uint
		if s := c.Query("webhook_id"); s != "" {
			if _, err := fmt.Sscan(s, &webhookID); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid webhook_id")
			}
		}
		resp, err := svc.Logs(c.UserContext(), webhookID, c.QueryInt("limit", 50))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

func Register(r fiber.Router, svc *Service, writeGuard fiber.Handler) {
	r.Get("", ListWebhooksHandler(svc))
	r.Get("/logs", ListWebhookLogsHandler(svc))
	r.Get("/:id", GetWebhookHandler(svc))
	r.Post("", writeGuard, CreateWebhookHandler(svc))
	r.Put("/:id", writeGuard, UpdateWebhookHandler(svc))
	r.Delete("/:id", writeGuard, DeleteWebhookHandler(svc))
	r.Post("/:id/test", writeGuard, TestWebhookHandler(svc))
}
