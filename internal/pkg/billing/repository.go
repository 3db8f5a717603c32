package billing

import (
	"github.com/voxdesk/VoxDesk/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the subscription service and the
// event router.
type Repository interface {
	GetCompany(companyID string) (*models.Company, error)
	UpsertSubscription(sub *models.Subscription) error
	GetSubscriptionByCompany(companyID string) (*models.Subscription, error)
	CancelByProviderSubscriptionID(providerSubscriptionID string) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetCompany(companyID string) (*models.Company, error) {
	var company models.Company
	if err := r.db.Where("id = ?", companyID).First(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

// UpsertSubscription writes the one subscription row per company. Keyed by
// company_id; the provider subscription id is data, not identity.
func (r *gormRepository) UpsertSubscription(sub *models.Subscription) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "company_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"provider_subscription_id",
			"provider_customer_id",
			"plan_id",
			"status",
			"current_period_end",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("company_id = ?", sub.CompanyID).First(sub).Error
}

func (r *gormRepository) GetSubscriptionByCompany(companyID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.Where("company_id = ?", companyID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) CancelByProviderSubscriptionID(providerSubscriptionID string) (int64, error) {
	tx := r.db.Model(&models.Subscription{}).
		Where("provider_subscription_id = ?", providerSubscriptionID).
		Update("status", models.SubscriptionStatusCanceled)
	return tx.RowsAffected, tx.Error
}
