package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/voxdesk/VoxDesk/app/models"
	"github.com/voxdesk/VoxDesk/internal/pkg/billing"
)

// EventStore is the slice of the event service the operator API needs.
type EventStore interface {
	Get(ctx context.Context, eventID uint) (*models.WebhookEvent, error)
	List(ctx context.Context, provider, status string, limit int) ([]models.WebhookEvent, error)
	Reopen(ctx context.Context, eventID uint) error
	MarkProcessed(ctx context.Context, eventID uint, processingErr error) error
}

// AdminEventsController serves the operator surface for inspecting stored
// webhook events and replaying failed ones.
type AdminEventsController struct {
	events EventStore
	router EventRouter
}

func NewAdminEventsController(store EventStore, router EventRouter) *AdminEventsController {
	return &AdminEventsController{events: store, router: router}
}

// HandleListEvents returns recent events filtered by provider and status.
func (ac *AdminEventsController) HandleListEvents(c *fiber.Ctx) error {
	list, err := ac.events.List(c.Context(), c.Query("provider"), c.Query("status"), c.QueryInt("limit", 100))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	out := make([]fiber.Map, 0, len(list))
	for _, ev := range list {
		out = append(out, eventSummary(&ev))
	}
	return c.JSON(fiber.Map{"events": out})
}

// HandleGetEvent returns a single stored event including its raw payload.
func (ac *AdminEventsController) HandleGetEvent(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Invalid event id"})
	}
	ev, err := ac.events.Get(c.Context(), uint(id))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}
	detail := eventSummary(ev)
	detail["payload"] = ev.PayloadJSON
	detail["processing_error"] = ev.ProcessingError
	return c.JSON(detail)
}

// HandleRetryEvent replays a failed event through the router. Only failed
// events are retryable; processed events stay final so a replay can never
// double-apply a mutation.
func (ac *AdminEventsController) HandleRetryEvent(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Invalid event id"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ev, err := ac.events.Get(ctx, uint(id))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}
	if ev.Status != models.EventStatusFailed {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "not_retryable", "message": "Only failed events can be retried"})
	}

	inbound, err := billing.ParseStored(ev.Provider, []byte(ev.PayloadJSON))
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "invalid_payload", "message": err.Error()})
	}

	if err := ac.events.Reopen(ctx, ev.ID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	outcome, routeErr := ac.router.Route(ctx, inbound)
	if markErr := ac.events.MarkProcessed(ctx, ev.ID, routeErr); markErr != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}
	if routeErr != nil {
		return c.JSON(fiber.Map{"event_id": ev.ID, "status": models.EventStatusFailed, "message": routeErr.Error()})
	}
	return c.JSON(fiber.Map{"event_id": ev.ID, "status": models.EventStatusProcessed, "outcome": outcome})
}

func eventSummary(ev *models.WebhookEvent) fiber.Map {
	m := fiber.Map{
		"id":                ev.ID,
		"provider":          ev.Provider,
		"provider_event_id": ev.ProviderEventID,
		"event_type":        ev.EventType,
		"status":            ev.Status,
		"duplicate_count":   ev.DuplicateCount,
		"received_at":       ev.ReceivedAt,
	}
	if ev.ProcessedAt != nil {
		m["processed_at"] = ev.ProcessedAt
	}
	if strings.TrimSpace(ev.ProcessingError) != "" {
		m["has_error"] = true
	}
	return m
}
