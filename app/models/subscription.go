package models

import "time"

const (
	SubscriptionStatusTrialing = "trialing"
	SubscriptionStatusActive   = "active"
	SubscriptionStatusCanceled = "canceled"
)

// Subscription mirrors the provider-side subscription for a company. Exactly
// one row per company (unique company_id); the provider subscription id is
// informational and may change over the company's lifetime, so it is never
// used as the upsert key.
type Subscription struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	CompanyID              string     `gorm:"type:varchar(36);not null;uniqueIndex:ux_subscriptions_company" json:"company_id"`
	ProviderSubscriptionID string     `gorm:"type:varchar(191);not null;default:'';index" json:"provider_subscription_id"`
	ProviderCustomerID     string     `gorm:"type:varchar(191);not null;default:''" json:"provider_customer_id"`
	PlanID                 string     `gorm:"type:varchar(50);not null;default:''" json:"plan_id"`
	Status                 string     `gorm:"type:varchar(20);not null;default:'trialing';index" json:"status"`
	CurrentPeriodEnd       *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
