package services

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"declarehub/internal/config"
)

// NotificationService posts task links to the configured webhook (mail
// gateway, chat relay). Implements Notifier. Deliveries run in the
// background and never fail the operation that triggered them.
type NotificationService struct {
	cfg    *config.Config
	client *http.Client
}

// NewNotificationService creates a new notification service
func NewNotificationService(cfg *config.Config) *NotificationService {
	return &NotificationService{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type taskLinkMessage struct {
	Recipient string `json:"recipient"`
	Link      string `json:"link"`
	Expiry    string `json:"expiry"`
}

// SendTaskLink delivers a declaration link to an employee
func (s *NotificationService) SendTaskLink(email, link string, expiry time.Time) {
	if s.cfg.Notify.WebhookURL == "" {
		log.Printf("⚠️ Notify webhook not configured, link for %s not sent", email)
		return
	}

	msg := taskLinkMessage{
		Recipient: email,
		Link:      link,
		Expiry:    expiry.Format(time.RFC3339),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		body, err := json.Marshal(msg)
		if err != nil {
			log.Printf("❌ Failed to encode task link message: %v", err)
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Notify.WebhookURL, bytes.NewReader(body))
		if err != nil {
			log.Printf("❌ Failed to build notify request: %v", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")
		if s.cfg.Notify.AuthToken != "" {
			req.Header.Set("Authorization", "Bearer "+s.cfg.Notify.AuthToken)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			log.Printf("❌ Failed to deliver task link to %s: %v", email, err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			log.Printf("❌ Notify webhook returned %d for %s", resp.StatusCode, email)
			return
		}
		log.Printf("✅ Task link sent to %s", email)
	}()
}
