package models

import "time"

// Webhook providers pushing events into this service.
const (
	ProviderFlutterwave = "flutterwave"
	ProviderVapi        = "vapi"
	ProviderTwilio      = "twilio"
)

// Processing status lifecycle: received -> processed | failed. Rows are never
// deleted; failed rows keep the raw payload for operator replay.
const (
	EventStatusReceived  = "received"
	EventStatusProcessed = "processed"
	EventStatusFailed    = "failed"
)

// WebhookEvent stores every verified provider delivery with deduplication
// metadata for idempotent processing. The unique (provider, provider_event_id)
// index is what makes concurrent duplicate deliveries collapse to a single
// insert.
type WebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Provider        string     `gorm:"type:varchar(20);not null;index:ux_webhook_events_provider_event,unique,priority:1;index" json:"provider"`
	ProviderEventID string     `gorm:"type:varchar(191);not null;index:ux_webhook_events_provider_event,unique,priority:2" json:"provider_event_id"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PayloadJSON     string     `gorm:"type:longtext;not null" json:"payload_json"`
	Status          string     `gorm:"type:varchar(20);not null;default:'received';index" json:"status"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	DuplicateCount  uint       `gorm:"not null;default:0" json:"duplicate_count"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ReceivedAt      time.Time  `gorm:"autoCreateTime;index" json:"received_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
