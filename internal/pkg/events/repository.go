package events

import (
	"time"

	"github.com/voxdesk/VoxDesk/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the event store.
type Repository interface {
	CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkOutcome(id uint, status, processingError string) error
	IncrementDuplicate(id uint) error
	Reopen(id uint) error
	GetByID(id uint) (*models.WebhookEvent, error)
	List(provider, status string, limit int) ([]models.WebhookEvent, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates an event repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// CreateIfNotExists inserts the event unless a row with the same
// (provider, provider_event_id) already exists. The unique index makes the
// check-then-insert atomic under concurrent deliveries: of two racing
// inserts exactly one reports created=true.
func (r *gormRepository) CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

// MarkOutcome transitions a received event to processed or failed. The status
// guard makes re-marking an already-finalized event a no-op.
func (r *gormRepository) MarkOutcome(id uint, status, processingError string) error {
	now := time.Now()
	return r.db.Model(&models.WebhookEvent{}).
		Where("id = ? AND status = ?", id, models.EventStatusReceived).
		Updates(map[string]interface{}{
			"status":           status,
			"processed_at":     &now,
			"processing_error": processingError,
		}).Error
}

func (r *gormRepository) IncrementDuplicate(id uint) error {
	return r.db.Model(&models.WebhookEvent{}).
		Where("id = ?", id).
		UpdateColumn("duplicate_count", gorm.Expr("duplicate_count + 1")).Error
}

// Reopen moves a failed event back to received for a manual retry.
func (r *gormRepository) Reopen(id uint) error {
	return r.db.Model(&models.WebhookEvent{}).
		Where("id = ? AND status = ?", id, models.EventStatusFailed).
		Updates(map[string]interface{}{
			"status":           models.EventStatusReceived,
			"processing_error": "",
		}).Error
}

func (r *gormRepository) GetByID(id uint) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	if err := r.db.First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *gormRepository) List(provider, status string, limit int) ([]models.WebhookEvent, error) {
	q := r.db.Order("id DESC").Limit(limit)
	if provider != "" {
		q = q.Where("provider = ?", provider)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.WebhookEvent
	err := q.Find(&out).Error
	return out, err
}
