package events

import (
	"context"
	"strings"
	"testing"

	"github.com/voxdesk/VoxDesk/app/models"
	"gorm.io/gorm"
)

type memoryRepository struct {
	nextID uint
	rows   map[string]*models.WebhookEvent // key: provider + "|" + provider_event_id
	byID   map[uint]*models.WebhookEvent
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		nextID: 1,
		rows:   make(map[string]*models.WebhookEvent),
		byID:   make(map[uint]*models.WebhookEvent),
	}
}

func (m *memoryRepository) key(provider, eventID string) string {
	return provider + "|" + eventID
}

func (m *memoryRepository) CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	k := m.key(event.Provider, event.ProviderEventID)
	if existing, ok := m.rows[k]; ok {
		copied := *existing
		return false, &copied, nil
	}
	event.ID = m.nextID
	m.nextID++
	m.rows[k] = event
	m.byID[event.ID] = event
	copied := *event
	return true, &copied, nil
}

func (m *memoryRepository) MarkOutcome(id uint, status, processingError string) error {
	row, ok := m.byID[id]
	if !ok || row.Status != models.EventStatusReceived {
		// Mirrors the SQL status guard: finalized rows are untouched.
		return nil
	}
	row.Status = status
	row.ProcessingError = processingError
	return nil
}

func (m *memoryRepository) IncrementDuplicate(id uint) error {
	if row, ok := m.byID[id]; ok {
		row.DuplicateCount++
	}
	return nil
}

func (m *memoryRepository) Reopen(id uint) error {
	row, ok := m.byID[id]
	if !ok || row.Status != models.EventStatusFailed {
		return nil
	}
	row.Status = models.EventStatusReceived
	row.ProcessingError = ""
	return nil
}

func (m *memoryRepository) GetByID(id uint) (*models.WebhookEvent, error) {
	row, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *row
	return &copied, nil
}

func (m *memoryRepository) List(provider, status string, limit int) ([]models.WebhookEvent, error) {
	var out []models.WebhookEvent
	for _, row := range m.byID {
		if provider != "" && row.Provider != provider {
			continue
		}
		if status != "" && row.Status != status {
			continue
		}
		out = append(out, *row)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func TestRecordIfNewDedup(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	in := RecordInput{
		Provider:        "flutterwave",
		ProviderEventID: "evt_1",
		EventType:       "charge.completed",
		PayloadJSON:     `{"event":"charge.completed"}`,
	}

	isNew, stored, err := svc.RecordIfNew(ctx, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !isNew || stored.ID == 0 {
		t.Fatalf("first delivery must be new, got isNew=%v id=%d", isNew, stored.ID)
	}
	if stored.Status != models.EventStatusReceived {
		t.Fatalf("new event must start as received, got %q", stored.Status)
	}

	isNew, again, err := svc.RecordIfNew(ctx, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if isNew {
		t.Fatalf("second delivery of the same event id must not be new")
	}
	if again.ID != stored.ID {
		t.Fatalf("duplicate must resolve to the stored row, got id=%d want %d", again.ID, stored.ID)
	}
	if repo.byID[stored.ID].DuplicateCount != 1 {
		t.Fatalf("duplicate arrival should be counted, got %d", repo.byID[stored.ID].DuplicateCount)
	}
}

func TestRecordIfNewHashFallback(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	payload := `{"CallSid":"CA123"}`
	isNew, stored, err := svc.RecordIfNew(ctx, RecordInput{Provider: "twilio", PayloadJSON: payload})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !isNew {
		t.Fatalf("first delivery must be new")
	}
	if !strings.HasPrefix(stored.ProviderEventID, "hash:") {
		t.Fatalf("missing provider event id must fall back to payload hash, got %q", stored.ProviderEventID)
	}

	// Byte-identical redelivery without an id still dedups.
	isNew, _, err = svc.RecordIfNew(ctx, RecordInput{Provider: "twilio", PayloadJSON: payload})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if isNew {
		t.Fatalf("identical payload without event id must dedup via hash")
	}
}

func TestRecordIfNewRequiresProvider(t *testing.T) {
	svc := NewService(newMemoryRepository())
	if _, _, err := svc.RecordIfNew(context.Background(), RecordInput{PayloadJSON: "{}"}); err == nil {
		t.Fatalf("expected error for missing provider")
	}
}

func TestMarkProcessedIdempotent(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	_, stored, err := svc.RecordIfNew(ctx, RecordInput{Provider: "vapi", ProviderEventID: "evt_2", PayloadJSON: "{}"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.MarkProcessed(ctx, stored.ID, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.byID[stored.ID].Status != models.EventStatusProcessed {
		t.Fatalf("expected processed, got %q", repo.byID[stored.ID].Status)
	}

	// Re-marking with an error must not flip a finalized event.
	if err := svc.MarkProcessed(ctx, stored.ID, errMarker); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.byID[stored.ID].Status != models.EventStatusProcessed {
		t.Fatalf("re-mark must be a no-op, got %q", repo.byID[stored.ID].Status)
	}
}

func TestReopenFailedEvent(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	_, stored, err := svc.RecordIfNew(ctx, RecordInput{Provider: "flutterwave", ProviderEventID: "evt_3", PayloadJSON: "{}"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.MarkProcessed(ctx, stored.ID, errMarker); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.byID[stored.ID].Status != models.EventStatusFailed {
		t.Fatalf("expected failed, got %q", repo.byID[stored.ID].Status)
	}

	if err := svc.Reopen(ctx, stored.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.byID[stored.ID].Status != models.EventStatusReceived {
		t.Fatalf("reopen must move failed back to received, got %q", repo.byID[stored.ID].Status)
	}
}

var errMarker = errTest("handler blew up")

type errTest string

func (e errTest) Error() string { return string(e) }
