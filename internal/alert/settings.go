package alert

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"stocksense-backend/internal/apperr"
	"stocksense-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Settings struct {
	EmailNotificationsEnabled bool   `json:"email_notifications_enabled"`
	NotificationEmail         string `json:"notification_email"`
	GlobalLowStockThreshold   int    `json:"global_low_stock_threshold"`
	NotifyOnLowStock          bool   `json:"notify_on_low_stock"`
	NotifyOnOutOfStock        bool   `json:"notify_on_out_of_stock"`
}

// DefaultSettings applies to users who never saved their own.
func DefaultSettings() Settings {
	return Settings{
		GlobalLowStockThreshold: models.DefaultReorderLevel,
		NotifyOnLowStock:        true,
		NotifyOnOutOfStock:      true,
	}
}

func (s Settings) validate() error {
	if s.GlobalLowStockThreshold < 0 {
		return apperr.Validation("global_low_stock_threshold must be zero or greater")
	}
	if s.EmailNotificationsEnabled {
		if _, err := mail.ParseAddress(s.NotificationEmail); err != nil {
			return apperr.Validation("notification_email must be a valid address when email notifications are enabled")
		}
	}
	return nil
}

func (e *Engine) GetSettings(ctx context.Context, userID uint) (Settings, error) {
	var row models.AlertSettings
	err := e.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("load alert settings for user %d: %w", userID, err)
	}
	return Settings{
		EmailNotificationsEnabled: row.EmailNotificationsEnabled,
		NotificationEmail:         row.NotificationEmail,
		GlobalLowStockThreshold:   row.GlobalLowStockThreshold,
		NotifyOnLowStock:          row.NotifyOnLowStock,
		NotifyOnOutOfStock:        row.NotifyOnOutOfStock,
	}, nil
}

// UpdateSettings upserts the user's settings row.
func (e *Engine) UpdateSettings(ctx context.Context, userID uint, in Settings) (Settings, error) {
	in.NotificationEmail = strings.TrimSpace(in.NotificationEmail)
	if err := in.validate(); err != nil {
		return Settings{}, err
	}

	row := models.AlertSettings{
		UserID:                    userID,
		EmailNotificationsEnabled: in.EmailNotificationsEnabled,
		NotificationEmail:         in.NotificationEmail,
		GlobalLowStockThreshold:   in.GlobalLowStockThreshold,
		NotifyOnLowStock:          in.NotifyOnLowStock,
		NotifyOnOutOfStock:        in.NotifyOnOutOfStock,
	}
	err := e.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email_notifications_enabled", "notification_email", "global_low_stock_threshold",
			"notify_on_low_stock", "notify_on_out_of_stock", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return Settings{}, fmt.Errorf("save alert settings for user %d: %w", userID, err)
	}
	return in, nil
}
