package catalog

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"stocksense-backend/internal/apperr"
	"stocksense-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func parseID(c *fiber.Ctx, name, label string) (uint, error) {
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

// GET /api/products?category=&search=&low_stock=true
func ListProductsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resp, err := svc.ListProducts(c.UserContext(), ProductFilter{
			Category: c.Query("category"),
			Search:   strings.TrimSpace(c.Query("search")),
			LowStock: c.QueryBool("low_stock"),
		})
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// GET /api/products/:id
func GetProductHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "id", "product ID")
		if err != nil {
			return err
		}
		resp, err := svc.GetProduct(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// POST /api/products
func CreateProductHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ProductInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		resp, err := svc.CreateProduct(c.UserContext(), actor(c), body)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// PUT /api/products/:id
func UpdateProductHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "id", "product ID")
		if err != nil {
			return err
		}
		var body ProductInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		resp, err := svc.UpdateProduct(c.UserContext(), actor(c), id, body)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// DELETE /api/products/:id
func DeleteProductHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "id", "product ID")
		if err != nil {
			return err
		}
		if err := svc.DeleteProduct(c.UserContext(), actor(c), id); err != nil {
			return apperr.ToFiber(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/products/:id/stock-adjustment
func AdjustStockHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "id", "product ID")
		if err != nil {
			return err
		}
		var body StockAdjustmentInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		resp, err := svc.AdjustStock(c.UserContext(), actor(c), id, body)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// POST /api/products/:id/description
func GenerateDescriptionHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "id", "product ID")
		if err != nil {
			return err
		}
		resp, err := svc.GenerateDescription(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// GET /api/products/:id/sales-prediction
func SalesPredictionHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "id", "product ID")
		if err != nil {
			return err
		}
		resp, err := svc.PredictSales(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// POST /api/products/import (multipart, field "file")
func ImportProductsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file is required")
		}
		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "Only .xlsx files can be imported")
		}
		file, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file could not be opened")
		}
		defer file.Close()

		resp, err := svc.ImportProducts(c.UserContext(), actor(c), file)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// GET /api/suppliers
func ListSuppliersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resp, err := svc.ListSuppliers(c.UserContext())
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// GET /api/suppliers/:id
func GetSupplierHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "id", "supplier ID")
		if err != nil {
			return err
		}
		resp, err := svc.GetSupplier(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// POST /api/suppliers
func CreateSupplierHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body SupplierInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		resp, err := svc.CreateSupplier(c.UserContext(), actor(c), body)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// PUT /api/suppliers/:id
func UpdateSupplierHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "id", "supplier ID")
		if err != nil {
			return err
		}
		var body SupplierInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		resp, err := svc.UpdateSupplier(c.UserContext(), actor(c), id, body)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// DELETE /api/suppliers/:id
func DeleteSupplierHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "id", "supplier ID")
		if err != nil {
			return err
		}
		if err := svc.DeleteSupplier(c.UserContext(), actor(c), id); err != nil {
			return apperr.ToFiber(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/suppliers/:id/shipments
func SupplierShipmentsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "id", "supplier ID")
		if err != nil {
			return err
		}
		resp, err := svc.SupplierShipments(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// GET /api/shipments?status=
func ListShipmentsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resp, err := svc.ListShipments(c.UserContext(), c.Query("status"))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// GET /api/shipments/pending
func PendingShipmentsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resp, err := svc.ListPendingShipments(c.UserContext())
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// GET /api/shipments/overdue
func OverdueShipmentsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resp, err := svc.OverdueShipments(c.UserContext())
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// GET /api/shipments/:id
func GetShipmentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "id", "shipment ID")
		if err != nil {
			return err
		}
		resp, err := svc.GetShipment(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// POST /api/shipments
func CreateShipmentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ShipmentInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		resp, err := svc.CreateShipment(c.UserContext(), actor(c), body)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// PUT /api/shipments/:id/status
func UpdateShipmentStatusHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "id", "shipment ID")
		if err != nil {
			return err
		}
		var body struct {
			Status string `json:"status"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		resp, err := svc.UpdateShipmentStatus(c.UserContext(), actor(c), id, body.Status)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// POST /api/shipments/:id/deliver
func DeliverShipmentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "id", "shipment ID")
		if err != nil {
			return err
		}
		resp, err := svc.MarkDelivered(c.UserContext(), actor(c), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// POST /api/shipments/:id/cancel
func CancelShipmentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "id", "shipment ID")
		if err != nil {
			return err
		}
		resp, err := svc.CancelShipment(c.UserContext(), actor(c), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// GET /api/barcodes/lookup/:code
func LookupBarcodeHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		code, err := url.PathUnescape(c.Params("code"))
		if err != nil || strings.TrimSpace(code) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid barcode")
		}
		resp, err := svc.LookupBarcode(c.UserContext(), code)
		if err != nil {
			return apperr.ToFiber(err)
		}
		if !resp.Found {
			return c.Status(fiber.StatusNotFound).JSON(resp)
		}
		return c.JSON(resp)
	}
}

// GET /api/barcodes/:productId
func BarcodeHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "productId", "product ID")
		if err != nil {
			return err
		}
		resp, err := svc.Barcode(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// GET /api/reports/summary
func ReportSummaryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resp, err := svc.ReportSummary(c.UserContext())
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	}
}

// GET /api/reports/inventory.xlsx
func InventoryExportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var buf bytes.Buffer
		if err := svc.WriteInventoryXLSX(c.UserContext(), &buf); err != nil {
			return apperr.ToFiber(err)
		}
		c.Set(fiber.HeaderContentType, xlsxContentType)
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="inventory.xlsx"`)
		return c.Send(buf.Bytes())
	}
}

func RegisterProducts(r fiber.Router, svc *Service, writeGuard fiber.Handler) {
	r.Get("", ListProductsHandler(svc))
	r.Post("/import", writeGuard, ImportProductsHandler(svc))
	r.Get("/:id", GetProductHandler(svc))
	r.Post("", writeGuard, CreateProductHandler(svc))
	r.Put("/:id", writeGuard, UpdateProductHandler(svc))
	r.Delete("/:id", writeGuard, DeleteProductHandler(svc))
	r.Post("/:id/stock-adjustment", writeGuard, AdjustStockHandler(svc))
	r.Post("/:id/description", GenerateDescriptionHandler(svc))
	r.Get("/:id/sales-prediction", SalesPredictionHandler(svc))
}

func RegisterSuppliers(r fiber.Router, svc *Service, writeGuard fiber.Handler) {
	r.Get("", ListSuppliersHandler(svc))
	r.Get("/:id", GetSupplierHandler(svc))
	r.Get("/:id/shipments", SupplierShipmentsHandler(svc))
	r.Post("", writeGuard, CreateSupplierHandler(svc))
	r.Put("/:id", writeGuard, UpdateSupplierHandler(svc))
	r.Delete("/:id", writeGuard, DeleteSupplierHandler(svc))
}

func RegisterShipments(r fiber.Router, svc *Service, writeGuard fiber.Handler) {
	r.Get("", ListShipmentsHandler(svc))
	r.Get("/pending", PendingShipmentsHandler(svc))
	r.Get("/overdue", OverdueShipmentsHandler(svc))
	r.Get("/:id", GetShipmentHandler(svc))
	r.Post("", writeGuard, CreateShipmentHandler(svc))
	r.Put("/:id/status", writeGuard, UpdateShipmentStatusHandler(svc))
	r.Post("/:id/deliver", writeGuard, DeliverShipmentHandler(svc))
	r.Post("/:id/cancel", writeGuard, CancelShipmentHandler(svc))
}

func RegisterBarcodes(r fiber.Router, svc *Service) {
	r.Get("/lookup/:code", LookupBarcodeHandler(svc))
	r.Get("/:productId", BarcodeHandler(svc))
}

func RegisterReports(r fiber.Router, svc *Service) {
	r.Get("/summary", ReportSummaryHandler(svc))
	r.Get("/inventory.xlsx", InventoryExportHandler(svc))
}
