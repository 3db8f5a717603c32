package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/voxdesk/VoxDesk/app/models"
	"gorm.io/gorm"
)

// Service is the single writer path for wallet balances. Every movement is a
// signed delta paired with an append-only transaction row; the two are
// committed atomically by the repository so no partial ledger state is ever
// observable.
type Service struct {
	repo Repository
}

// NewService creates a ledger service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a ledger service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// ApplyDelta applies a signed balance change with its audit record and
// returns the post-mutation balance.
func (s *Service) ApplyDelta(ctx context.Context, walletID uint, deltaCents int64, txnType, description string) (int64, error) {
	if walletID == 0 {
		return 0, errors.New("wallet id is required")
	}
	if deltaCents == 0 {
		return 0, errors.New("delta must be non-zero")
	}
	switch txnType {
	case models.TransactionTypeTopUp, models.TransactionTypeAddonPurchase, models.TransactionTypeUsageCharge:
	default:
		return 0, fmt.Errorf("unknown transaction type %q", txnType)
	}
	return s.repo.ApplyDelta(ctx, walletID, deltaCents, txnType, description)
}

// Credit adds funds to a company's wallet.
func (s *Service) Credit(ctx context.Context, companyID string, amountCents int64, txnType, description string) (int64, error) {
	if amountCents <= 0 {
		return 0, errors.New("credit amount must be positive")
	}
	wallet, err := s.repo.GetWalletByCompany(companyID)
	if err != nil {
		return 0, err
	}
	return s.ApplyDelta(ctx, wallet.ID, amountCents, txnType, description)
}

// Debit removes funds from a company's wallet. The caller-facing funds check
// lives here; ApplyDelta re-checks under the row lock so concurrent debits
// cannot persist a negative balance.
func (s *Service) Debit(ctx context.Context, companyID string, amountCents int64, txnType, description string) (int64, error) {
	if amountCents <= 0 {
		return 0, errors.New("debit amount must be positive")
	}
	wallet, err := s.repo.GetWalletByCompany(companyID)
	if err != nil {
		return 0, err
	}
	if wallet.BalanceCents < amountCents {
		return 0, ErrInsufficientFunds
	}
	return s.ApplyDelta(ctx, wallet.ID, -amountCents, txnType, description)
}

// WalletByCompany resolves a company's wallet.
func (s *Service) WalletByCompany(ctx context.Context, companyID string) (*models.Wallet, error) {
	_ = ctx
	return s.repo.GetWalletByCompany(companyID)
}

// RecentTransactions returns the newest ledger entries for a wallet.
func (s *Service) RecentTransactions(ctx context.Context, walletID uint, limit int) ([]models.WalletTransaction, error) {
	_ = ctx
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListTransactions(walletID, limit)
}
