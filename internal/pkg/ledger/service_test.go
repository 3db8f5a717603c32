package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/voxdesk/VoxDesk/app/models"
	"gorm.io/gorm"
)

// memoryRepository mirrors the transactional semantics of the GORM
// repository: a delta either records both the balance move and the ledger
// entry, or neither.
type memoryRepository struct {
	wallets map[uint]*models.Wallet
	txns    []models.WalletTransaction
}

func newMemoryRepository(wallets ...*models.Wallet) *memoryRepository {
	m := &memoryRepository{wallets: make(map[uint]*models.Wallet)}
	for _, w := range wallets {
		m.wallets[w.ID] = w
	}
	return m
}

func (m *memoryRepository) GetWalletByCompany(companyID string) (*models.Wallet, error) {
	for _, w := range m.wallets {
		if w.CompanyID == companyID {
			copied := *w
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryRepository) ApplyDelta(ctx context.Context, walletID uint, deltaCents int64, txnType, description string) (int64, error) {
	wallet, ok := m.wallets[walletID]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	if wallet.BalanceCents+deltaCents < 0 {
		return 0, ErrInsufficientFunds
	}
	wallet.BalanceCents += deltaCents
	m.txns = append(m.txns, models.WalletTransaction{
		WalletID:    walletID,
		AmountCents: deltaCents,
		Type:        txnType,
		Description: description,
	})
	return wallet.BalanceCents, nil
}

func (m *memoryRepository) ListTransactions(walletID uint, limit int) ([]models.WalletTransaction, error) {
	var out []models.WalletTransaction
	for i := len(m.txns) - 1; i >= 0 && len(out) < limit; i-- {
		if m.txns[i].WalletID == walletID {
			out = append(out, m.txns[i])
		}
	}
	return out, nil
}

func (m *memoryRepository) sumTransactions(walletID uint) int64 {
	var sum int64
	for _, txn := range m.txns {
		if txn.WalletID == walletID {
			sum += txn.AmountCents
		}
	}
	return sum
}

func TestApplyDeltaReturnsNewBalance(t *testing.T) {
	repo := newMemoryRepository(&models.Wallet{ID: 1, CompanyID: "c1", BalanceCents: 10000})
	svc := NewService(repo)

	balance, err := svc.ApplyDelta(context.Background(), 1, 5000, models.TransactionTypeTopUp, "top-up")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance != 15000 {
		t.Fatalf("expected balance 15000, got %d", balance)
	}
}

func TestApplyDeltaRejectsBadInput(t *testing.T) {
	svc := NewService(newMemoryRepository(&models.Wallet{ID: 1, CompanyID: "c1"}))
	ctx := context.Background()

	if _, err := svc.ApplyDelta(ctx, 0, 100, models.TransactionTypeTopUp, ""); err == nil {
		t.Fatalf("expected error for missing wallet id")
	}
	if _, err := svc.ApplyDelta(ctx, 1, 0, models.TransactionTypeTopUp, ""); err == nil {
		t.Fatalf("expected error for zero delta")
	}
	if _, err := svc.ApplyDelta(ctx, 1, 100, "refund", ""); err == nil {
		t.Fatalf("expected error for unknown transaction type")
	}
}

func TestLedgerConservation(t *testing.T) {
	repo := newMemoryRepository(&models.Wallet{ID: 7, CompanyID: "c1", BalanceCents: 0})
	svc := NewService(repo)
	ctx := context.Background()

	deltas := []struct {
		amount int64
		typ    string
	}{
		{5000, models.TransactionTypeTopUp},
		{2500, models.TransactionTypeTopUp},
		{-1200, models.TransactionTypeUsageCharge},
		{-300, models.TransactionTypeAddonPurchase},
		{10000, models.TransactionTypeTopUp},
	}
	for _, d := range deltas {
		if _, err := svc.ApplyDelta(ctx, 7, d.amount, d.typ, ""); err != nil {
			t.Fatalf("unexpected error applying %+v: %v", d, err)
		}
	}

	wallet := repo.wallets[7]
	if wallet.BalanceCents != repo.sumTransactions(7) {
		t.Fatalf("ledger invariant broken: balance=%d sum(txns)=%d", wallet.BalanceCents, repo.sumTransactions(7))
	}
	if wallet.BalanceCents != 16000 {
		t.Fatalf("expected balance 16000, got %d", wallet.BalanceCents)
	}
}

func TestCreditOrderIndependence(t *testing.T) {
	ctx := context.Background()

	run := func(amounts []int64) int64 {
		repo := newMemoryRepository(&models.Wallet{ID: 1, CompanyID: "c1", BalanceCents: 100})
		svc := NewService(repo)
		for _, a := range amounts {
			if _, err := svc.Credit(ctx, "c1", a, models.TransactionTypeTopUp, ""); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		return repo.wallets[1].BalanceCents
	}

	if run([]int64{5000, 300}) != run([]int64{300, 5000}) {
		t.Fatalf("credits must be commutative")
	}
}

func TestDebitInsufficientFunds(t *testing.T) {
	repo := newMemoryRepository(&models.Wallet{ID: 1, CompanyID: "c1", BalanceCents: 500})
	svc := NewService(repo)
	ctx := context.Background()

	if _, err := svc.Debit(ctx, "c1", 600, models.TransactionTypeUsageCharge, "call"); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if len(repo.txns) != 0 {
		t.Fatalf("rejected debit must leave no ledger entry")
	}
	if repo.wallets[1].BalanceCents != 500 {
		t.Fatalf("rejected debit must not move balance, got %d", repo.wallets[1].BalanceCents)
	}

	balance, err := svc.Debit(ctx, "c1", 500, models.TransactionTypeUsageCharge, "call")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected balance 0, got %d", balance)
	}
}

func TestDebitUnknownCompany(t *testing.T) {
	svc := NewService(newMemoryRepository())
	if _, err := svc.Debit(context.Background(), "ghost", 100, models.TransactionTypeUsageCharge, ""); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record-not-found, got %v", err)
	}
}
