package models

import "time"

// WebhookDeliveryStat is the flush target for the Redis delivery counters.
// One row per (provider, outcome, day), incremented in batches.
type WebhookDeliveryStat struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Provider  string    `gorm:"type:varchar(20);not null;uniqueIndex:ux_delivery_stats_key,priority:1" json:"provider"`
	Outcome   string    `gorm:"type:varchar(20);not null;uniqueIndex:ux_delivery_stats_key,priority:2" json:"outcome"`
	Day       string    `gorm:"type:varchar(10);not null;uniqueIndex:ux_delivery_stats_key,priority:3" json:"day"`
	Count     uint64    `gorm:"not null;default:0" json:"count"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
