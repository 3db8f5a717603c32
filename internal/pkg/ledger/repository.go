package ledger

import (
	"context"
	"errors"

	"github.com/voxdesk/VoxDesk/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInsufficientFunds is returned when a debit would take the persisted
// balance below zero. Checked under the row lock, so concurrent debits cannot
// slip past each other.
var ErrInsufficientFunds = errors.New("insufficient wallet balance")

// Repository provides the storage operations behind the ledger service.
type Repository interface {
	GetWalletByCompany(companyID string) (*models.Wallet, error)
	ApplyDelta(ctx context.Context, walletID uint, deltaCents int64, txnType, description string) (int64, error)
	ListTransactions(walletID uint, limit int) ([]models.WalletTransaction, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a ledger repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetWalletByCompany(companyID string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.Where("company_id = ?", companyID).First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// ApplyDelta moves the balance and appends the matching ledger entry in one
// transaction. The SELECT ... FOR UPDATE on the wallet row serializes
// concurrent deltas to the same wallet; either both writes commit or neither
// does.
func (r *gormRepository) ApplyDelta(ctx context.Context, walletID uint, deltaCents int64, txnType, description string) (int64, error) {
	var newBalance int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wallet models.Wallet
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&wallet, walletID).Error; err != nil {
			return err
		}

		newBalance = wallet.BalanceCents + deltaCents
		if newBalance < 0 {
			return ErrInsufficientFunds
		}

		if err := tx.Model(&models.Wallet{}).
			Where("id = ?", walletID).
			UpdateColumn("balance_cents", gorm.Expr("balance_cents + ?", deltaCents)).Error; err != nil {
			return err
		}

		return tx.Create(&models.WalletTransaction{
			WalletID:    walletID,
			AmountCents: deltaCents,
			Type:        txnType,
			Description: description,
		}).Error
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

func (r *gormRepository) ListTransactions(walletID uint, limit int) ([]models.WalletTransaction, error) {
	var txns []models.WalletTransaction
	err := r.db.Where("wallet_id = ?", walletID).
		Order("id DESC").Limit(limit).Find(&txns).Error
	return txns, err
}
