package warehouse

import (
	"fmt"

	"stocksense-backend/internal/apperr"
	"stocksense-backend/internal/auth"
	"stocksense-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

func parseUintParam(c *fiber.Ctx, name, label string) (uint, error) {
	var id uint
	if _, err := fmt.Sscan(c.Params(name), &id); err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid "+label)
	}
	return id, nil
}

func actor(c *fiber.Ctx) Actor {
	id, name := auth.Actor(c)
	return Actor{UserID: id, UserName: name}
}

// GET /api/warehouses
func ListWarehousesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resp, err := svc.ListWarehouses(c.UserContext())
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// GET /api/warehouses/:id
func GetWarehouseHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseUintParam(c, "id", "warehouse ID")
		if err != nil {
			return err
		}
		resp, err := svc.GetWarehouse(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// POST /api/warehouses
func CreateWarehouseHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body WarehouseInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		resp, err := svc.CreateWarehouse(c.UserContext(), actor(c), body)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// PUT /api/warehouses/:id
func UpdateWarehouseHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseUintParam(c, "id", "warehouse ID")
		if err != nil {
			return err
		}
		var body WarehouseInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		resp, err := svc.UpdateWarehouse(c.UserContext(), actor(c), id, body)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// DELETE /api/warehouses/:id
func DeleteWarehouseHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseUintParam(c, "id", "warehouse ID")
		if err != nil {
			return err
		}
		if err := svc.DeleteWarehouse(c.UserContext(), actor(c), id); err != nil {
			return apperr.ToFiber(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/warehouses/:id/stock
func GetWarehouseStockHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseUintParam(c, "id", "warehouse ID")
		if err != nil {
			return err
		}
		resp, err := svc.GetWarehouseStock(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// POST /api/warehouses/:id/stock
func SetStockHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseUintParam(c, "id", "warehouse ID")
		if err != nil {
			return err
		}
		var body StockInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		resp, err := svc.SetStock(c.UserContext(), actor(c), id, body)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// GET /api/warehouses/product/:productId/stock
func GetProductStockHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseUintParam(c, "productId", "product ID")
		if err != nil {
			return err
		}
		resp, err := svc.GetProductStockAcrossWarehouses(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// GET /api/warehouses/transfers?status=&warehouse_id=&product_id=
func ListTransfersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := TransferFilter{Status: models.TransferStatus(c.Query("status"))}
		if s := c.Query("warehouse_id"); s != "" {
			if _, err := fmt.Sscan(s, &f.WarehouseID); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid warehouse_id")
			}
		}
		if s := c.Query("product_id"); s != "" {
			if _, err := fmt.Sscan(s, &f.ProductID); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid product_id")
			}
		}
		resp, err := svc.ListTransfers(c.UserContext(), f)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// GET /api/warehouses/transfers/pending
func ListPendingTransfersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resp, err := svc.ListPendingTransfers(c.UserContext())
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// GET /api/warehouses/transfers/:id
func GetTransferHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseUintParam(c, "id", "transfer ID")
		if err != nil {
			return err
		}
		resp, err := svc.GetTransfer(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// POST /api/warehouses/transfers
func CreateTransferHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateTransferInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		resp, err := svc.CreateTransfer(c.UserContext(), actor(c), body)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// POST /api/warehouses/transfers/:id/complete
func CompleteTransferHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseUintParam(c, "id", "transfer ID")
		if err != nil {
			return err
		}
		resp, err := svc.CompleteTransfer(c.UserContext(), actor(c), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// POST /api/warehouses/transfers/:id/cancel
func CancelTransferHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseUintParam(c, "id", "transfer ID")
		if err != nil {
			return err
		}
		resp, err := svc.CancelTransfer(c.UserContext(), actor(c), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// Register mounts the warehouse routes; transfer paths are registered before /:id.
func Register(r fiber.Router, svc *Service, writeGuard fiber.Handler) {
	r.Get("/transfers", ListTransfersHandler(svc))
	r.Get("/transfers/pending", ListPendingTransfersHandler(svc))
	r.Get("/transfers/:id", GetTransferHandler(svc))
	r.Post("/transfers", CreateTransferHandler(svc))
	r.Post("/transfers/:id/complete", CompleteTransferHandler(svc))
	r.Post("/transfers/:id/cancel", CancelTransferHandler(svc))
	r.Get("/product/:productId/stock", GetProductStockHandler(svc))

	r.Get("", ListWarehousesHandler(svc))
	r.Get("/:id", GetWarehouseHandler(svc))
	r.Post("", writeGuard, CreateWarehouseHandler(svc))
	r.Put("/:id", writeGuard, UpdateWarehouseHandler(svc))
	r.Delete("/:id", writeGuard, DeleteWarehouseHandler(svc))
	r.Get("/:id/stock", GetWarehouseStockHandler(svc))
	r.Post("/:id/stock", SetStockHandler(svc))
}
