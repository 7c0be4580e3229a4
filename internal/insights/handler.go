package insights

import (
	"fmt"

	"stocksense-backend/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

func productID(c *fiber.Ctx) (uint, error) {
	var id uint
	if _, err := fmt.Sscan(c.Params("productId"), &id); err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid product ID")
	}
	return id, nil
}

// GET /api/insights
func ReportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := svc.Report(c.UserContext())
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(r)
	}
}

// GET /api/insights/price/:productId
func PriceHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := productID(c)
		if err != nil {
			return err
		}
		r, err := svc.PriceFor(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(r)
	}
}

// GET /api/insights/prices
func PricesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := svc.Prices(c.UserContext())
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(r)
	}
}

// GET /api/insights/anomalies
func AnomaliesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := svc.Anomalies(c.UserContext())
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(r)
	}
}

// GET /api/insights/trend/:productId
func TrendHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := productID(c)
		if err != nil {
			return err
		}
		r, err := svc.Trend(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(r)
	}
}

func Register(r fiber.Router, svc *Service) {
	r.Get("", ReportHandler(svc))
	r.Get("/prices", PricesHandler(svc))
	r.Get("/price/:productId", PriceHandler(svc))
	r.Get("/anomalies", AnomaliesHandler(svc))
	r.Get("/trend/:productId", TrendHandler(svc))
}
