package audit

import (
	"fmt"

	"stocksense-backend/internal/apperr"
	"stocksense-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	UserID      uint               `json:"user_id"`
	UserName    string             `json:"user_name"`
	EntityType  string             `json:"entity_type"`
	EntityID    uint               `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	BeforeData  string             `json:"before_data"`
	AfterData   string             `json:"after_data"`
}

// GET /api/audit-logs?entity_type=stock_transfer&entity_id=1&user_id=2&limit=50
func ListAuditLogsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := Filter{
			EntityType: c.Query("entity_type"),
			Limit:      c.QueryInt("limit", 100),
		}
		if s := c.Query("entity_id"); s != "" {
			if _, err := fmt.Sscan(s, &f.EntityID); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid entity_id")
			}
		}
		if s := c.Query("user_id"); s != "" {
			if _, err := fmt.Sscan(s, &f.UserID); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid user_id")
			}
		}

		logs, err := List(c.UserContext(), db, f)
		if err != nil {
			return apperr.ToFiber(err)
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, log := range logs {
			resp = append(resp, AuditLogResponse{
				ID:          log.ID,
				CreatedAt:   log.CreatedAt.Format("2006-01-02 15:04:05"),
				UserID:      log.UserID,
				UserName:    log.UserName,
				EntityType:  log.EntityType,
				EntityID:    log.EntityID,
				Action:      log.Action,
				Description: log.Description,
				BeforeData:  log.BeforeData,
				AfterData:   log.AfterData,
			})
		}
		return c.JSON(resp)
	}
}
