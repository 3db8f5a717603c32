package events

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/voxdesk/VoxDesk/app/models"
	"gorm.io/gorm"
)

// RecordInput is the normalized input for webhook event persistence.
type RecordInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
}

// Service is the durable, idempotent log of externally received events. It is
// the single owner of webhook_events rows; deduplication and replay safety
// hang off the (provider, provider_event_id) key.
type Service struct {
	repo Repository
}

// NewService creates an event store from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates an event store from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// RecordIfNew persists the event on first delivery and short-circuits on
// redelivery. isNew=false means the caller must acknowledge success without
// re-running side effects. Duplicate arrivals are counted on the stored row.
func (s *Service) RecordIfNew(ctx context.Context, in RecordInput) (bool, *models.WebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		// Some providers omit a delivery id; fall back to a payload hash so
		// byte-identical redeliveries still dedup.
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.WebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		Status:          models.EventStatusReceived,
	}
	created, stored, err := s.repo.CreateIfNotExists(event)
	if err != nil {
		return false, nil, err
	}
	if !created {
		if incErr := s.repo.IncrementDuplicate(stored.ID); incErr != nil {
			// Duplicate bookkeeping is best effort; the dedup outcome stands.
			return false, stored, nil
		}
	}
	return created, stored, nil
}

// MarkProcessed finalizes a received event as processed (nil error) or failed.
// Marking an already-finalized event again is a no-op.
func (s *Service) MarkProcessed(ctx context.Context, eventID uint, processingErr error) error {
	_ = ctx
	if eventID == 0 {
		return errors.New("event id is required")
	}
	status := models.EventStatusProcessed
	errMsg := ""
	if processingErr != nil {
		status = models.EventStatusFailed
		errMsg = processingErr.Error()
	}
	return s.repo.MarkOutcome(eventID, status, errMsg)
}

// Reopen puts a failed event back into received so an operator retry can run
// it through the router again.
func (s *Service) Reopen(ctx context.Context, eventID uint) error {
	_ = ctx
	if eventID == 0 {
		return errors.New("event id is required")
	}
	return s.repo.Reopen(eventID)
}

// Get returns a stored event by id.
func (s *Service) Get(ctx context.Context, eventID uint) (*models.WebhookEvent, error) {
	_ = ctx
	return s.repo.GetByID(eventID)
}

// List returns recent events, optionally filtered by provider and status.
func (s *Service) List(ctx context.Context, provider, status string, limit int) ([]models.WebhookEvent, error) {
	_ = ctx
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.List(strings.ToLower(strings.TrimSpace(provider)), strings.TrimSpace(status), limit)
}
