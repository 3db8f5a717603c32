package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voxdesk/VoxDesk/internal/pkg/env"
)

const defaultFlutterwaveAPIBaseURL = "https://api.flutterwave.com/v3"

// FlutterwaveClient is the outbound side of the payment integration: creating
// payment links, plans and subscriptions whose completion comes back through
// the webhook pipeline. All calls carry bounded timeouts.
type FlutterwaveClient struct {
	SecretKey  string
	APIBaseURL string
	HTTPClient *http.Client
}

// PaymentLinkRequest describes a hosted payment page. Meta travels through
// the provider untouched and comes back on the charge.completed webhook; it
// must carry the company id and mode the router resolves against.
type PaymentLinkRequest struct {
	TxRef       string            `json:"tx_ref"`
	Amount      float64           `json:"amount"`
	Currency    string            `json:"currency"`
	RedirectURL string            `json:"redirect_url,omitempty"`
	Customer    PaymentCustomer   `json:"customer"`
	Meta        map[string]string `json:"meta"`
}

type PaymentCustomer struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type PaymentLink struct {
	Link string `json:"link"`
}

type PlanRequest struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Interval string  `json:"interval"`
}

type Plan struct {
	ID     json.Number `json:"id"`
	Name   string      `json:"name"`
	Status string      `json:"status"`
}

type Subscription struct {
	ID     json.Number `json:"id"`
	Status string      `json:"status"`
}

// apiEnvelope is the {status, message, data} wrapper every Flutterwave
// response uses.
type apiEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// NewFlutterwaveClientFromEnv builds the client from environment config.
func NewFlutterwaveClientFromEnv() *FlutterwaveClient {
	return &FlutterwaveClient{
		SecretKey:  strings.TrimSpace(env.GetEnv("FLW_SECRET_KEY", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("FLW_API_BASE_URL", defaultFlutterwaveAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CreatePaymentLink requests a hosted payment page for a top-up or a
// subscription purchase.
func (c *FlutterwaveClient) CreatePaymentLink(ctx context.Context, req PaymentLinkRequest) (*PaymentLink, error) {
	if strings.TrimSpace(req.TxRef) == "" {
		return nil, errors.New("tx_ref is required")
	}
	if req.Amount <= 0 {
		return nil, errors.New("amount must be positive")
	}
	var link PaymentLink
	if err := c.do(ctx, http.MethodPost, "/payments", req, &link); err != nil {
		return nil, err
	}
	if strings.TrimSpace(link.Link) == "" {
		return nil, errors.New("flutterwave returned no payment link")
	}
	return &link, nil
}

// CreatePlan registers a recurring payment plan.
func (c *FlutterwaveClient) CreatePlan(ctx context.Context, req PlanRequest) (*Plan, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, errors.New("plan name is required")
	}
	var plan Plan
	if err := c.do(ctx, http.MethodPost, "/payment-plans", req, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// CreateSubscription activates a plan subscription for a customer email.
func (c *FlutterwaveClient) CreateSubscription(ctx context.Context, planID, customerEmail string) (*Subscription, error) {
	if strings.TrimSpace(planID) == "" || strings.TrimSpace(customerEmail) == "" {
		return nil, errors.New("plan id and customer email are required")
	}
	body := map[string]string{"payment_plan": planID, "customer_email": customerEmail}
	var sub Subscription
	if err := c.do(ctx, http.MethodPost, "/subscriptions", body, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// CancelSubscription cancels a provider-side subscription. The authoritative
// local state change still arrives via the subscription.cancelled webhook.
func (c *FlutterwaveClient) CancelSubscription(ctx context.Context, subscriptionID string) error {
	if strings.TrimSpace(subscriptionID) == "" {
		return errors.New("subscription id is required")
	}
	return c.do(ctx, http.MethodPut, "/subscriptions/"+subscriptionID+"/cancel", nil, nil)
}

func (c *FlutterwaveClient) do(ctx context.Context, method, path string, payload, out interface{}) error {
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("FLW_SECRET_KEY is not configured")
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.APIBaseURL, "/")+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("flutterwave %s %s failed: status=%d body=%s", method, path, resp.StatusCode, string(raw))
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return err
	}
	if !strings.EqualFold(envelope.Status, "success") {
		return fmt.Errorf("flutterwave %s %s rejected: %s", method, path, envelope.Message)
	}
	if out != nil && len(envelope.Data) > 0 {
		return json.Unmarshal(envelope.Data, out)
	}
	return nil
}
