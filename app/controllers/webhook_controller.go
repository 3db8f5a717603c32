package controllers

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/voxdesk/VoxDesk/app/models"
	"github.com/voxdesk/VoxDesk/internal/pkg/billing"
	"github.com/voxdesk/VoxDesk/internal/pkg/env"
	"github.com/voxdesk/VoxDesk/internal/pkg/events"
	"github.com/voxdesk/VoxDesk/internal/pkg/metrics/counter"
	"github.com/voxdesk/VoxDesk/internal/pkg/webhook"
)

// Processing budget per delivery; covers the event insert plus the ledger or
// subscription mutation.
const webhookTimeout = 30 * time.Second

// Safe carrier responses. Twilio renders these into the live call/SMS
// session, so even a rejected delivery must answer with well-formed TwiML.
const (
	twimlEmpty         = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`
	twimlNotActionable = `<?xml version="1.0" encoding="UTF-8"?><Response><Say>Your request was received. Please try again in a moment.</Say></Response>`
)

// EventRecorder is the slice of the event store the webhook boundary needs.
type EventRecorder interface {
	RecordIfNew(ctx context.Context, in events.RecordInput) (bool, *models.WebhookEvent, error)
	MarkProcessed(ctx context.Context, eventID uint, processingErr error) error
}

// EventRouter executes the single action a parsed event maps to.
type EventRouter interface {
	Route(ctx context.Context, ev *billing.InboundEvent) (string, error)
}

// WebhookController is the provider-facing boundary: raw bytes in, verified
// and deduplicated mutation out, provider-shaped ack back.
type WebhookController struct {
	verifiers *webhook.VerifierSet
	events    EventRecorder
	router    EventRouter
	count     func(provider, outcome string)
}

func NewWebhookController(verifiers *webhook.VerifierSet, recorder EventRecorder, router EventRouter, count func(provider, outcome string)) *WebhookController {
	if count == nil {
		count = func(string, string) {}
	}
	return &WebhookController{verifiers: verifiers, events: recorder, router: router, count: count}
}

// HandleFlutterwave processes payment processor deliveries. Signature header:
// verif-hash.
func (wc *WebhookController) HandleFlutterwave(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("verif-hash"))

	if !wc.verifiers.Verify(models.ProviderFlutterwave, &webhook.Request{Body: rawBody, Signature: signature}) {
		wc.count(models.ProviderFlutterwave, counter.OutcomeRejected)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	ev, err := billing.ParseFlutterwaveEvent(rawBody)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}
	return wc.processJSON(c, ev, rawBody)
}

// HandleVapi processes voice platform deliveries. Signature header:
// x-vapi-signature, bare hex or sha256= prefixed.
func (wc *WebhookController) HandleVapi(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("x-vapi-signature"))

	if !wc.verifiers.Verify(models.ProviderVapi, &webhook.Request{Body: rawBody, Signature: signature}) {
		wc.count(models.ProviderVapi, counter.OutcomeRejected)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	ev, err := billing.ParseVapiEvent(rawBody)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}
	return wc.processJSON(c, ev, rawBody)
}

// processJSON runs the record -> route -> mark sequence shared by the JSON
// providers. The event row is inserted before any mutation: a crash between
// the mutation and the final mark leaves a row that dedups the retry, so the
// mutation is never applied twice.
func (wc *WebhookController) processJSON(c *fiber.Ctx, ev *billing.InboundEvent, rawBody []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	created, stored, err := wc.events.RecordIfNew(ctx, events.RecordInput{
		Provider:        ev.Provider,
		ProviderEventID: ev.ExternalID,
		EventType:       ev.Type,
		PayloadJSON:     string(rawBody),
	})
	if err != nil {
		// Outcome unknown (e.g. store timeout): a retryable error is the one
		// correct answer, never a false success.
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created {
		wc.count(ev.Provider, counter.OutcomeDuplicate)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}
	wc.count(ev.Provider, counter.OutcomeReceived)

	outcome, routeErr := wc.router.Route(ctx, ev)
	if routeErr != nil {
		if isAmbiguousOutcome(ctx, routeErr) {
			// Do not mark failed: the mutation may have committed. The event
			// row already exists, so a provider retry dedups safely.
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "processing_timeout"})
		}
		_ = wc.events.MarkProcessed(ctx, stored.ID, routeErr)
		wc.count(ev.Provider, counter.OutcomeFailed)
		// Confirmed-not-applied failures are acknowledged so the provider
		// does not hammer an event that needs operator attention instead.
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	}

	_ = wc.events.MarkProcessed(ctx, stored.ID, nil)
	wc.count(ev.Provider, counter.OutcomeProcessed)
	if outcome == billing.OutcomeIgnored {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

// HandleTwilio processes carrier deliveries. The body is form-encoded and the
// response is TwiML consumed by a live call/SMS session, so failures answer
// 200 with a safe body instead of an error status.
func (wc *WebhookController) HandleTwilio(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("X-Twilio-Signature"))

	form, err := url.ParseQuery(string(rawBody))
	if err != nil {
		form = url.Values{}
	}

	if !wc.verifiers.Verify(models.ProviderTwilio, &webhook.Request{
		Body:      rawBody,
		Signature: signature,
		URL:       publicWebhookURL(c),
		Form:      form,
	}) {
		wc.count(models.ProviderTwilio, counter.OutcomeRejected)
		return respondTwiML(c, twimlEmpty)
	}

	ev := billing.ParseTwilioEvent(form)

	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	created, stored, err := wc.events.RecordIfNew(ctx, events.RecordInput{
		Provider:        ev.Provider,
		ProviderEventID: ev.ExternalID,
		EventType:       ev.Type,
		PayloadJSON:     string(rawBody),
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("persist failed")
	}
	if !created {
		wc.count(ev.Provider, counter.OutcomeDuplicate)
		return respondTwiML(c, twimlEmpty)
	}
	wc.count(ev.Provider, counter.OutcomeReceived)

	if _, routeErr := wc.router.Route(ctx, ev); routeErr != nil {
		_ = wc.events.MarkProcessed(ctx, stored.ID, routeErr)
		wc.count(ev.Provider, counter.OutcomeFailed)
		return respondTwiML(c, twimlNotActionable)
	}
	_ = wc.events.MarkProcessed(ctx, stored.ID, nil)
	wc.count(ev.Provider, counter.OutcomeProcessed)
	return respondTwiML(c, twimlEmpty)
}

// publicWebhookURL reconstructs the URL Twilio signed. Behind a proxy the
// externally visible domain comes from PUBLIC_DOMAIN.
func publicWebhookURL(c *fiber.Ctx) string {
	if base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/"); base != "" {
		return base + c.OriginalURL()
	}
	return c.Protocol() + "://" + c.Hostname() + c.OriginalURL()
}

func respondTwiML(c *fiber.Ctx, body string) error {
	c.Set(fiber.HeaderContentType, "text/xml")
	return c.Status(fiber.StatusOK).SendString(body)
}

func isAmbiguousOutcome(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
