package billing

import (
	"fmt"
	"math"
	"time"
)

// Charge modes carried in provider event metadata. Set by whoever created the
// original payment link; they discriminate what a charge.completed pays for.
const (
	ModePayment      = "payment"
	ModeSubscription = "subscription"
)

// Routing outcomes. Ignored events are acknowledged to the provider without
// any mutation (providers send many types this service does not act on).
const (
	OutcomeApplied = "applied"
	OutcomeIgnored = "ignored"
)

// InboundEvent is the provider-agnostic shape a verified, deduplicated
// webhook delivery is normalized into before routing.
type InboundEvent struct {
	Provider   string
	Type       string // provider vocabulary, e.g. "charge.completed"
	ExternalID string

	Mode      string
	CompanyID string
	PlanID    string

	// Amount is in major currency units exactly as the provider sent it;
	// conversion to cents happens once, in the router.
	Amount   float64
	Currency string

	ProviderSubscriptionID string
	ProviderCustomerID     string
	CurrentPeriodEnd       *time.Time
}

// MappingError marks events that verified and parsed fine but cannot be
// applied: missing required metadata, unknown company, dangling subscription
// id. The event is marked failed and the delivery is still acknowledged so
// the provider does not retry a request that can never succeed.
type MappingError struct {
	Reason string
}

func (e *MappingError) Error() string {
	return "event mapping failed: " + e.Reason
}

func mappingErrorf(format string, args ...interface{}) *MappingError {
	return &MappingError{Reason: fmt.Sprintf(format, args...)}
}

// MajorToCents converts a provider amount in major currency units to integer
// cents. This is the single conversion point between provider money and the
// ledger; everything past the router speaks cents.
func MajorToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
