package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"stocksense-backend/internal/apperr"
	"stocksense-backend/internal/models"

	"gorm.io/gorm"
)

type WebhookInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Platform    string `json:"platform"`
	WebhookURL  string `json:"webhook_url"`
	SecretKey   string `json:"secret_key"`
	IsActive    *bool  `json:"is_active"`
	EventTypes  uint   `json:"event_types"`
}

type WebhookResponse struct {
	ID              uint       `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Platform        string     `json:"platform"`
	WebhookURL      string     `json:"webhook_url"`
	IsActive        bool       `json:"is_active"`
	EventTypes      uint       `json:"event_types"`
	EnabledEvents   []string   `json:"enabled_events"`
	LastTriggeredAt *time.Time `json:"last_triggered_at"`
	SuccessCount    int        `json:"success_count"`
	FailureCount    int        `json:"failure_count"`
}

type WebhookLogResponse struct {
	ID           uint      `json:"id"`
	WebhookID    uint      `json:"webhook_id"`
	WebhookName  string    `json:"webhook_name"`
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"`
	StatusCode   *int      `json:"status_code"`
	IsSuccess    bool      `json:"is_success"`
	ErrorMessage string    `json:"error_message"`
	SentAt       time.Time `json:"sent_at"`
}

// Service manages webhook subscriptions.
type Service struct {
	db     *gorm.DB
	sender *WebhookNotifier
}

func NewService(db *gorm.DB, sender *WebhookNotifier) *Service {
	return &Service{db: db, sender: sender}
}

func (in WebhookInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.Validation("name is required")
	}
	u, err := url.Parse(strings.TrimSpace(in.WebhookURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperr.Validation("webhook_url must be an absolute http(s) URL")
	}
	if models.WebhookEvent(in.EventTypes)&^models.EventAll != 0 {
		return apperr.Validation(fmt.Sprintf("event_types must be within 0..%d", uint(models.EventAll)))
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]WebhookResponse, error) {
	var hooks []models.WebhookConfig
	if err := s.db.WithContext(ctx).Order("id").Find(&hooks).Error; err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	resp := make([]WebhookResponse, 0, len(hooks))
	for _, h := range hooks {
		resp = append(resp, toWebhookResponse(h))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*WebhookResponse, error) {
	hook, err := s.load(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	resp := toWebhookResponse(*hook)
	return &resp, nil
}

func (s *Service) Create(ctx context.Context, in WebhookInput) (*WebhookResponse, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	hook := models.WebhookConfig{IsActive: true}
	apply(&hook, in)
	if err := s.db.WithContext(ctx).Create(&hook).Error; err != nil {
		return nil, fmt.Errorf("create webhook: %w", err)
	}
	resp := toWebhookResponse(hook)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, id uint, in WebhookInput) (*WebhookResponse, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var out models.WebhookConfig
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		hook, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		apply(hook, in)
		if err := tx.Model(hook).Select("name", "description", "platform", "webhook_url", "secret_key", "is_active", "event_types").
			Updates(hook).Error; err != nil {
			return fmt.Errorf("update webhook %d: %w", id, err)
		}
		out = *hook
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := toWebhookResponse(out)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.load(ctx, tx, id); err != nil {
			return err
		}
		if err := tx.Where("webhook_config_id = ?", id).Delete(&models.WebhookLog{}).Error; err != nil {
			return fmt.Errorf("delete webhook logs %d: %w", id, err)
		}
		return tx.Delete(&models.WebhookConfig{}, id).Error
	})
}

// Test sends a synthetic event to one webhook and reports whether it answered 2xx.
func (s *Service) Test(ctx context.Context, id uint) (bool, error) {
	hook, err := s.load(ctx, s.db, id)
	if err != nil {
		return false, err
	}
	ev := NewEvent(models.EventNone, map[string]any{
		"type":      "test",
		"message":   "StockSense webhook test",
		"timestamp": time.Now().UTC(),
	})
	ev.Name = "Test"
	return s.sender.Send(ctx, hook, ev), nil
}

// Logs returns the newest attempts first, optionally for one webhook.
func (s *Service) Logs(ctx context.Context, webhookID uint, limit int) ([]WebhookLogResponse, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Preload("WebhookConfig").Order("sent_at DESC").Limit(limit)
	if webhookID != 0 {
		q = q.Where("webhook_config_id = ?", webhookID)
	}
	var logs []models.WebhookLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list webhook logs: %w", err)
	}

	resp := make([]WebhookLogResponse, 0, len(logs))
	for _, l := range logs {
		name := l.WebhookConfig.Name
		if name == "" {
			name = "Unknown"
		}
		resp = append(resp, WebhookLogResponse{
			ID:           l.ID,
			WebhookID:    l.WebhookConfigID,
			WebhookName:  name,
			EventID:      l.EventID,
			EventType:    l.EventType,
			StatusCode:   l.StatusCode,
			IsSuccess:    l.IsSuccess,
			ErrorMessage: l.ErrorMessage,
			SentAt:       l.SentAt,
		})
	}
	return resp, nil
}

func (s *Service) load(ctx context.Context, db *gorm.DB, id uint) (*models.WebhookConfig, error) {
	var hook models.WebhookConfig
	if err := db.WithContext(ctx).First(&hook, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Webhook not found")
		}
		return nil, fmt.Errorf("load webhook %d: %w", id, err)
	}
	return &hook, nil
}

func apply(hook *models.WebhookConfig, in WebhookInput) {
	hook.Name = strings.TrimSpace(in.Name)
	hook.Description = in.Description
	hook.Platform = in.Platform
	hook.WebhookURL = strings.TrimSpace(in.WebhookURL)
	hook.SecretKey = in.SecretKey
	if in.IsActive != nil {
		hook.IsActive = *in.IsActive
	}
	hook.EventTypes = models.WebhookEvent(in.EventTypes)
}

func toWebhookResponse(h models.WebhookConfig) WebhookResponse {
	return WebhookResponse{
		ID:              h.ID,
		Name:            h.Name,
		Description:     h.Description,
		Platform:        h.Platform,
		WebhookURL:      h.WebhookURL,
		IsActive:        h.IsActive,
		EventTypes:      uint(h.EventTypes),
		EnabledEvents:   h.EventTypes.Names(),
		LastTriggeredAt: h.LastTriggeredAt,
		SuccessCount:    h.SuccessCount,
		FailureCount:    h.FailureCount,
	}
}
