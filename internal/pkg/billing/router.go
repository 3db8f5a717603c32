package billing

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/voxdesk/VoxDesk/app/models"
	"github.com/voxdesk/VoxDesk/internal/pkg/ledger"
	"gorm.io/gorm"
)

// Alerter surfaces events that need operator follow-up (failed mappings,
// exhausted wallets). Best effort; routing outcomes never depend on it.
type Alerter func(subject, body string)

// Router maps a verified, deduplicated event to exactly one handler. Every
// handler is idempotent-friendly: re-applying is prevented upstream by the
// event store, and distinct events converge (credits commute, subscription
// state is last-write-wins).
type Router struct {
	subs   *Service
	ledger *ledger.Service
	alert  Alerter
}

// NewRouter wires the router against the subscription and ledger services.
func NewRouter(subs *Service, led *ledger.Service, alert Alerter) *Router {
	if alert == nil {
		alert = func(string, string) {}
	}
	return &Router{subs: subs, ledger: led, alert: alert}
}

// Route executes the single action an event maps to and reports whether a
// mutation was applied or the event was deliberately ignored. A returned
// error of type *MappingError means the event can never be applied and must
// be marked failed but still acknowledged.
func (r *Router) Route(ctx context.Context, ev *InboundEvent) (string, error) {
	if ev == nil {
		return "", errors.New("nil event")
	}

	switch ev.Provider {
	case models.ProviderFlutterwave:
		return r.routeFlutterwave(ctx, ev)
	case models.ProviderVapi:
		return r.routeVapi(ctx, ev)
	case models.ProviderTwilio:
		// Carrier events are recorded for audit only; the TwiML response on
		// the transport path is the real product of those deliveries.
		return OutcomeIgnored, nil
	default:
		return OutcomeIgnored, nil
	}
}

func (r *Router) routeFlutterwave(ctx context.Context, ev *InboundEvent) (string, error) {
	switch ev.Type {
	case "charge.completed":
		switch ev.Mode {
		case ModePayment:
			return r.applyTopUp(ctx, ev)
		case ModeSubscription:
			return r.applySubscriptionCharge(ctx, ev)
		default:
			return "", r.flag(ev, mappingErrorf("charge.completed with missing or unknown mode %q", ev.Mode))
		}
	case "subscription.created":
		if ev.CompanyID == "" {
			return "", r.flag(ev, mappingErrorf("subscription.created without companyId metadata"))
		}
		_, err := r.subs.SyncSubscription(ctx, ev.CompanyID, ev.ProviderSubscriptionID, ev.ProviderCustomerID, ev.PlanID, models.SubscriptionStatusTrialing, ev.CurrentPeriodEnd)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", r.flag(ev, mappingErrorf("unknown company %q", ev.CompanyID))
		}
		if err != nil {
			return "", err
		}
		return OutcomeApplied, nil
	case "subscription.cancelled":
		subID := ev.ProviderSubscriptionID
		if subID == "" {
			subID = ev.ExternalID
		}
		if subID == "" {
			return "", r.flag(ev, mappingErrorf("subscription.cancelled without a subscription id"))
		}
		rows, err := r.subs.CancelByProviderSubscriptionID(ctx, subID)
		if err != nil {
			return "", err
		}
		if rows == 0 {
			return "", r.flag(ev, mappingErrorf("no subscription matches provider id %q", subID))
		}
		return OutcomeApplied, nil
	default:
		return OutcomeIgnored, nil
	}
}

// applyTopUp credits the company wallet. The provider amount is in major
// units; MajorToCents is the only conversion point (50 -> 5000).
func (r *Router) applyTopUp(ctx context.Context, ev *InboundEvent) (string, error) {
	if ev.CompanyID == "" {
		return "", r.flag(ev, mappingErrorf("payment charge without companyId metadata"))
	}
	cents := MajorToCents(ev.Amount)
	if cents <= 0 {
		return "", r.flag(ev, mappingErrorf("payment charge with non-positive amount %v", ev.Amount))
	}

	desc := fmt.Sprintf("Flutterwave top-up (charge %s)", ev.ExternalID)
	if _, err := r.ledger.Credit(ctx, ev.CompanyID, cents, models.TransactionTypeTopUp, desc); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", r.flag(ev, mappingErrorf("no wallet for company %q", ev.CompanyID))
		}
		return "", err
	}
	return OutcomeApplied, nil
}

func (r *Router) applySubscriptionCharge(ctx context.Context, ev *InboundEvent) (string, error) {
	if ev.CompanyID == "" {
		return "", r.flag(ev, mappingErrorf("subscription charge without companyId metadata"))
	}
	_, err := r.subs.SyncSubscription(ctx, ev.CompanyID, ev.ProviderSubscriptionID, ev.ProviderCustomerID, ev.PlanID, models.SubscriptionStatusActive, ev.CurrentPeriodEnd)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", r.flag(ev, mappingErrorf("unknown company %q", ev.CompanyID))
	}
	if err != nil {
		return "", err
	}
	return OutcomeApplied, nil
}

func (r *Router) routeVapi(ctx context.Context, ev *InboundEvent) (string, error) {
	switch ev.Type {
	case "end-of-call-report":
		if ev.CompanyID == "" {
			return "", r.flag(ev, mappingErrorf("call report without companyId metadata"))
		}
		cents := MajorToCents(ev.Amount)
		if cents <= 0 {
			// Zero-cost calls produce no ledger movement.
			return OutcomeIgnored, nil
		}

		desc := fmt.Sprintf("Voice usage (call %s)", ev.ExternalID)
		_, err := r.ledger.Debit(ctx, ev.CompanyID, cents, models.TransactionTypeUsageCharge, desc)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", r.flag(ev, mappingErrorf("no wallet for company %q", ev.CompanyID))
		}
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			// The charge is real but the wallet cannot cover it; keep the
			// failed event for remediation and tell an operator.
			log.Printf("ERROR: wallet exhausted for company %s on call %s", ev.CompanyID, ev.ExternalID)
			r.alert("Wallet exhausted: "+ev.CompanyID,
				fmt.Sprintf("Usage charge of %d cents for call %s could not be applied: insufficient balance.", cents, ev.ExternalID))
			return "", err
		}
		if err != nil {
			return "", err
		}
		return OutcomeApplied, nil
	default:
		return OutcomeIgnored, nil
	}
}

// flag logs a mapping failure at error severity and pings the operator
// channel, then hands the error back for the failed-event bookkeeping.
func (r *Router) flag(ev *InboundEvent, err *MappingError) error {
	log.Printf("ERROR: %s event %s (%s): %s", ev.Provider, ev.Type, ev.ExternalID, err.Reason)
	r.alert(
		fmt.Sprintf("Unroutable %s event %s", ev.Provider, ev.ExternalID),
		fmt.Sprintf("Event type %s could not be applied: %s", ev.Type, err.Reason),
	)
	return err
}
