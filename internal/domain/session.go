package domain

import (
	"encoding/json"
	"time"
)

// WhatsAppSession pending phone verification keyed by a 6-digit code
type WhatsAppSession struct {
	SessionID          string    `json:"id"`
	Code               string    `json:"code"`
	ReferralCode       string    `json:"referral_code"`
	IsWhatsAppBusiness bool      `json:"is_whatsapp_business"`
	Phone              string    `json:"phone"`
	AgentID            *string   `json:"agent_id"`
	DeviceToken        string    `json:"-"`
	IsVerified         bool      `json:"is_verified"`
	CreatedAt          time.Time `json:"created_at"`
}

// VerificationEvent a proven phone identity arriving from the messaging side
type VerificationEvent struct {
	Phone              string
	ProfileName        string
	ReferralCode       string
	IsWhatsAppBusiness bool
}

const (
	WebhookSourceCRM    = "RIVO_CRM"
	WebhookSourceYCloud = "YCLOUD"
)

// WebhookLog raw record of every inbound webhook call
type WebhookLog struct {
	LogID        string          `json:"id"`
	Source       string          `json:"source"`
	EventType    string          `json:"event_type"`
	Payload      json.RawMessage `json:"payload"`
	Processed    bool            `json:"processed"`
	ErrorMessage string          `json:"error_message"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ConfigEntry one row of app_config
type ConfigEntry struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}
