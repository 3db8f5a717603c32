package billing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/voxdesk/VoxDesk/app/models"
	"gorm.io/gorm"
)

// Service syncs provider subscription state into the local subscription
// table. It is the only writer of subscription rows.
type Service struct {
	repo Repository
}

// NewService creates a billing service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// SyncSubscription upserts the company's subscription row with the given
// status. Re-applying the same event converges to the same row; two distinct
// events applied in either order settle on last-write-wins.
func (s *Service) SyncSubscription(ctx context.Context, companyID, providerSubscriptionID, providerCustomerID, planID, status string, currentPeriodEnd *time.Time) (*models.Subscription, error) {
	_ = ctx
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return nil, errors.New("company id is required")
	}
	switch status {
	case models.SubscriptionStatusTrialing, models.SubscriptionStatusActive, models.SubscriptionStatusCanceled:
	default:
		return nil, errors.New("unknown subscription status " + status)
	}

	if _, err := s.repo.GetCompany(companyID); err != nil {
		return nil, err
	}

	sub := &models.Subscription{
		CompanyID:              companyID,
		ProviderSubscriptionID: strings.TrimSpace(providerSubscriptionID),
		ProviderCustomerID:     strings.TrimSpace(providerCustomerID),
		PlanID:                 strings.TrimSpace(planID),
		Status:                 status,
		CurrentPeriodEnd:       currentPeriodEnd,
	}
	if err := s.repo.UpsertSubscription(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// CancelByProviderSubscriptionID flips the matching subscription to canceled.
// Returns the number of rows touched so the caller can distinguish a
// dangling provider id from a successful (or already-applied) cancel.
func (s *Service) CancelByProviderSubscriptionID(ctx context.Context, providerSubscriptionID string) (int64, error) {
	_ = ctx
	providerSubscriptionID = strings.TrimSpace(providerSubscriptionID)
	if providerSubscriptionID == "" {
		return 0, errors.New("provider subscription id is required")
	}
	return s.repo.CancelByProviderSubscriptionID(providerSubscriptionID)
}

// SubscriptionByCompany returns the company's subscription row.
func (s *Service) SubscriptionByCompany(ctx context.Context, companyID string) (*models.Subscription, error) {
	_ = ctx
	return s.repo.GetSubscriptionByCompany(companyID)
}
