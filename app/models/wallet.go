package models

import "time"

// Wallet transaction types. The ledger is append-only; the balance column is
// only ever moved by signed deltas that carry one of these types.
const (
	TransactionTypeTopUp         = "top_up"
	TransactionTypeAddonPurchase = "addon_purchase"
	TransactionTypeUsageCharge   = "usage_charge"
)

// Wallet holds a company's prepaid balance in integer cents. One wallet per
// company. Balance is never overwritten directly; all movement goes through
// the ledger service so that sum(wallet_transactions.amount_cents) always
// equals balance_cents.
type Wallet struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CompanyID    string    `gorm:"type:varchar(36);not null;uniqueIndex:ux_wallets_company" json:"company_id"`
	BalanceCents int64     `gorm:"not null;default:0" json:"balance_cents"`
	Currency     string    `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// WalletTransaction is one signed ledger entry. Rows are never updated or
// deleted after insert.
type WalletTransaction struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	WalletID    uint      `gorm:"not null;index" json:"wallet_id"`
	AmountCents int64     `gorm:"not null" json:"amount_cents"`
	Type        string    `gorm:"type:varchar(32);not null;index" json:"type"`
	Description string    `gorm:"type:varchar(255);not null;default:''" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
