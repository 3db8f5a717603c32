package controllers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/voxdesk/VoxDesk/app/models"
	"github.com/voxdesk/VoxDesk/internal/pkg/billing"
	"github.com/voxdesk/VoxDesk/internal/pkg/env"
	"github.com/voxdesk/VoxDesk/internal/pkg/ledger"
	"github.com/voxdesk/VoxDesk/internal/pkg/payments"
)

var walletValidate = validator.New()

// PaymentLinker is the outbound payment surface the wallet API needs.
type PaymentLinker interface {
	CreatePaymentLink(ctx context.Context, req payments.PaymentLinkRequest) (*payments.PaymentLink, error)
}

// WalletController serves the internal wallet API: balance reads, top-up
// initiation and addon purchases. Balance mutations other than addon debits
// only ever happen through the webhook pipeline.
type WalletController struct {
	ledger *ledger.Service
	links  PaymentLinker
}

func NewWalletController(ledgerSvc *ledger.Service, links PaymentLinker) *WalletController {
	return &WalletController{ledger: ledgerSvc, links: links}
}

// HandleGetBalance returns a company's wallet balance and its most recent
// ledger entries.
func (wc *WalletController) HandleGetBalance(c *fiber.Ctx) error {
	companyID := strings.TrimSpace(c.Params("companyID"))
	if companyID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Company id is required"})
	}

	wallet, err := wc.ledger.WalletByCompany(c.Context(), companyID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "No wallet for company"})
	}
	txns, err := wc.ledger.RecentTransactions(c.Context(), wallet.ID, c.QueryInt("limit", 20))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	entries := make([]fiber.Map, 0, len(txns))
	for _, t := range txns {
		entries = append(entries, fiber.Map{
			"amount_cents": t.AmountCents,
			"type":         t.Type,
			"description":  t.Description,
			"created_at":   t.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{
		"company_id":    companyID,
		"balance_cents": wallet.BalanceCents,
		"currency":      wallet.Currency,
		"transactions":  entries,
	})
}

// TopUpRequest is the inbound DTO for initiating a hosted top-up payment.
type TopUpRequest struct {
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	Currency      string  `json:"currency" validate:"required,len=3"`
	CustomerEmail string  `json:"customer_email" validate:"required,email"`
	CustomerName  string  `json:"customer_name" validate:"omitempty,max=120"`
}

// HandleCreateTopUp requests a hosted payment page for a wallet top-up. The
// wallet is only credited once the matching charge.completed webhook lands;
// this endpoint never touches the balance.
func (wc *WalletController) HandleCreateTopUp(c *fiber.Ctx) error {
	companyID := strings.TrimSpace(c.Params("companyID"))
	if companyID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Company id is required"})
	}

	var req TopUpRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Invalid JSON body"})
	}
	if err := walletValidate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": err.Error()})
	}

	txRef := "vd-topup-" + uuid.New().String()
	link, err := wc.links.CreatePaymentLink(c.Context(), payments.PaymentLinkRequest{
		TxRef:       txRef,
		Amount:      req.Amount,
		Currency:    strings.ToUpper(strings.TrimSpace(req.Currency)),
		RedirectURL: env.GetEnv("TOPUP_REDIRECT_URL", ""),
		Customer: payments.PaymentCustomer{
			Email: strings.TrimSpace(req.CustomerEmail),
			Name:  strings.TrimSpace(req.CustomerName),
		},
		Meta: map[string]string{
			"companyId": companyID,
			"mode":      billing.ModePayment,
		},
	})
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "payment_provider_error", "message": "Could not create payment link"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"tx_ref": txRef,
		"link":   link.Link,
	})
}

// AddonPurchaseRequest is the inbound DTO for buying an addon from the wallet
// balance.
type AddonPurchaseRequest struct {
	AddonID    string `json:"addon_id" validate:"required,max=64"`
	PriceCents int64  `json:"price_cents" validate:"required,gt=0"`
}

// HandlePurchaseAddon debits the wallet for a one-off addon. Insufficient
// funds is a client outcome, not a server error.
func (wc *WalletController) HandlePurchaseAddon(c *fiber.Ctx) error {
	companyID := strings.TrimSpace(c.Params("companyID"))
	if companyID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Company id is required"})
	}

	var req AddonPurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Invalid JSON body"})
	}
	if err := walletValidate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": err.Error()})
	}

	description := fmt.Sprintf("addon purchase %s", req.AddonID)
	newBalance, err := wc.ledger.Debit(c.Context(), companyID, req.PriceCents, models.TransactionTypeAddonPurchase, description)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": "insufficient_funds"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	return c.JSON(fiber.Map{
		"addon_id":      req.AddonID,
		"balance_cents": newBalance,
	})
}
