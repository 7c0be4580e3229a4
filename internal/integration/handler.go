package integration

import (
	"crypto/subtle"
	"fmt"

	"stocksense-backend/internal/apperr"
	"stocksense-backend/internal/audit"
	"stocksense-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
)

const secretHeader = "X-Webhook-Secret"

func orderID(c *fiber.Ctx) (uint, error) {
	var id uint
	if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid order ID")
	}
	return id, nil
}

// POST /api/integrations/orders/incoming
// Public endpoint for platforms; when secret is set the caller must send it in X-Webhook-Secret.
func IncomingOrderHandler(svc *Service, secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret != "" && subtle.ConstantTimeCompare([]byte(c.Get(secretHeader)), []byte(secret)) != 1 {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid webhook secret")
		}
		var body IncomingOrder
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		resp, err := svc.ProcessIncomingOrder(c.UserContext(), body)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// GET /api/integrations/orders?status=
func ListOrdersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resp, err := svc.ListOrders(c.UserContext(), c.Query("status"))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// GET /api/integrations/orders/:id
func GetOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := orderID(c)
		if err != nil {
			return err
		}
		resp, err := svc.GetOrder(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// PATCH /api/integrations/orders/:id/status
func UpdateOrderStatusHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := orderID(c)
		if err != nil {
			return err
		}
		var body struct {
			Status string `json:"status"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		userID, userName := auth.Actor(c)
		resp, err := svc.UpdateOrderStatus(c.UserContext(), audit.Actor{UserID: userID, UserName: userName}, id, body.Status)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// GET /api/integrations/dashboard
func DashboardHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resp, err := svc.Dashboard(c.UserContext())
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// RegisterIncoming mounts the unauthenticated platform callback.
func RegisterIncoming(r fiber.Router, svc *Service, secret string) {
	r.Post("/orders/incoming", IncomingOrderHandler(svc, secret))
}

func Register(r fiber.Router, svc *Service, adminGuard fiber.Handler) {
	r.Get("/dashboard", DashboardHandler(svc))
	r.Get("/orders", ListOrdersHandler(svc))
	r.Get("/orders/:id", GetOrderHandler(svc))
	r.Patch("/orders/:id/status", adminGuard, UpdateOrderStatusHandler(svc))
}
