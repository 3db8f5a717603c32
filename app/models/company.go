package models

import "time"

const (
	CompanyStatusActive    = "active"
	CompanyStatusSuspended = "suspended"
)

// Company is the tenant owning a wallet and a subscription. The dashboard
// service owns the full company record; this service only needs the linkage
// columns webhook processing resolves against.
type Company struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(200);not null" json:"name"`
	Status    string    `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
