package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/voxdesk/VoxDesk/app/controllers"
	"github.com/voxdesk/VoxDesk/internal/pkg/billing"
	"github.com/voxdesk/VoxDesk/internal/pkg/database"
	"github.com/voxdesk/VoxDesk/internal/pkg/events"
	"github.com/voxdesk/VoxDesk/internal/pkg/ledger"
	"github.com/voxdesk/VoxDesk/internal/pkg/mail"
	"github.com/voxdesk/VoxDesk/internal/pkg/middleware"
	"github.com/voxdesk/VoxDesk/internal/pkg/payments"
)

type ApiRouter struct {
}

// InstallRouter registers the key-protected internal API: wallet reads,
// top-up initiation, addon purchases and the operator event surface.
func (h ApiRouter) InstallRouter(app *fiber.App) {
	db := database.GetDB()
	ledgerSvc := ledger.NewServiceFromDB(db)
	eventStore := events.NewServiceFromDB(db)
	billingSvc := billing.NewServiceFromDB(db)
	eventRouter := billing.NewRouter(billingSvc, ledgerSvc, mail.NotifyOperator)

	walletCtrl := controllers.NewWalletController(ledgerSvc, payments.NewFlutterwaveClientFromEnv())
	eventsCtrl := controllers.NewAdminEventsController(eventStore, eventRouter)

	api := app.Group("/api", limiter.New(), middleware.InternalAPIKeyMiddleware())

	v1 := api.Group("/v1")
	v1.Get("/companies/:companyID/wallet", walletCtrl.HandleGetBalance)
	v1.Post("/companies/:companyID/wallet/topup", walletCtrl.HandleCreateTopUp)
	v1.Post("/companies/:companyID/wallet/addons", walletCtrl.HandlePurchaseAddon)

	internal := api.Group("/internal")
	internal.Get("/events", eventsCtrl.HandleListEvents)
	internal.Get("/events/:id", eventsCtrl.HandleGetEvent)
	internal.Post("/events/:id/retry", eventsCtrl.HandleRetryEvent)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
