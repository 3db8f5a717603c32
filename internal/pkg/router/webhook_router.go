package router

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/voxdesk/VoxDesk/app/controllers"
	"github.com/voxdesk/VoxDesk/internal/pkg/billing"
	"github.com/voxdesk/VoxDesk/internal/pkg/database"
	"github.com/voxdesk/VoxDesk/internal/pkg/events"
	"github.com/voxdesk/VoxDesk/internal/pkg/ledger"
	"github.com/voxdesk/VoxDesk/internal/pkg/mail"
	"github.com/voxdesk/VoxDesk/internal/pkg/metrics/counter"
	"github.com/voxdesk/VoxDesk/internal/pkg/webhook"
)

type WebhookRouter struct {
}

// InstallRouter wires the webhook ingestion pipeline and registers the
// provider endpoints. A missing provider secret aborts startup: running with
// unverifiable webhooks is worse than not running.
func (h WebhookRouter) InstallRouter(app *fiber.App) {
	verifiers, err := webhook.SetFromEnv()
	if err != nil {
		log.Fatalf("webhook verifier setup failed: %v", err)
	}

	db := database.GetDB()
	eventStore := events.NewServiceFromDB(db)
	ledgerSvc := ledger.NewServiceFromDB(db)
	billingSvc := billing.NewServiceFromDB(db)
	eventRouter := billing.NewRouter(billingSvc, ledgerSvc, mail.NotifyOperator)

	wc := controllers.NewWebhookController(verifiers, eventStore, eventRouter, countDelivery)

	hooks := app.Group("/webhooks")
	hooks.Post("/flutterwave", wc.HandleFlutterwave)
	hooks.Post("/vapi", wc.HandleVapi)
	hooks.Post("/twilio", wc.HandleTwilio)
}

func NewWebhookRouter() *WebhookRouter {
	return &WebhookRouter{}
}

// countDelivery is best effort; a counter failure never affects the webhook
// response.
func countDelivery(provider, outcome string) {
	if err := counter.AddDelivery(provider, outcome); err != nil {
		log.Printf("delivery counter increment failed: %v", err)
	}
}
