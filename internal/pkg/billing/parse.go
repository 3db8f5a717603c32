package billing

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/voxdesk/VoxDesk/app/models"
)

// flexID tolerates provider ids arriving as JSON numbers or strings
// (Flutterwave sends numeric charge ids but string subscription refs).
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type flutterwavePayload struct {
	Event string `json:"event"`
	Data  struct {
		ID               flexID  `json:"id"`
		TxRef            string  `json:"tx_ref"`
		Amount           float64 `json:"amount"`
		Currency         string  `json:"currency"`
		Status           string  `json:"status"`
		Subscription     flexID  `json:"subscription"`
		CurrentPeriodEnd string  `json:"current_period_end"`
		Customer         struct {
			ID    flexID `json:"id"`
			Email string `json:"email"`
		} `json:"customer"`
		Meta struct {
			CompanyID string `json:"companyId"`
			Mode      string `json:"mode"`
			PlanID    string `json:"planId"`
		} `json:"meta"`
	} `json:"data"`
}

// ParseFlutterwaveEvent extracts the routed fields from a raw Flutterwave
// webhook body. Parsing runs only after signature verification.
func ParseFlutterwaveEvent(raw []byte) (*InboundEvent, error) {
	var p flutterwavePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Event) == "" {
		return nil, errors.New("flutterwave payload has no event field")
	}

	ev := &InboundEvent{
		Provider:               models.ProviderFlutterwave,
		Type:                   strings.TrimSpace(p.Event),
		ExternalID:             string(p.Data.ID),
		Mode:                   strings.ToLower(strings.TrimSpace(p.Data.Meta.Mode)),
		CompanyID:              strings.TrimSpace(p.Data.Meta.CompanyID),
		PlanID:                 strings.TrimSpace(p.Data.Meta.PlanID),
		Amount:                 p.Data.Amount,
		Currency:               strings.ToUpper(strings.TrimSpace(p.Data.Currency)),
		ProviderSubscriptionID: string(p.Data.Subscription),
		ProviderCustomerID:     string(p.Data.Customer.ID),
	}
	if ev.ExternalID == "" {
		ev.ExternalID = strings.TrimSpace(p.Data.TxRef)
	}
	if end := strings.TrimSpace(p.Data.CurrentPeriodEnd); end != "" {
		if t, err := time.Parse(time.RFC3339, end); err == nil {
			ev.CurrentPeriodEnd = &t
		}
	}
	return ev, nil
}

type vapiPayload struct {
	Message struct {
		Type string  `json:"type"`
		Cost float64 `json:"cost"`
		Call struct {
			ID       string `json:"id"`
			Metadata struct {
				CompanyID string `json:"companyId"`
			} `json:"metadata"`
		} `json:"call"`
	} `json:"message"`
}

// ParseVapiEvent extracts the routed fields from a raw Vapi webhook body.
// Call cost arrives in major currency units like every provider amount.
func ParseVapiEvent(raw []byte) (*InboundEvent, error) {
	var p vapiPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Message.Type) == "" {
		return nil, errors.New("vapi payload has no message type")
	}
	return &InboundEvent{
		Provider:   models.ProviderVapi,
		Type:       strings.TrimSpace(p.Message.Type),
		ExternalID: strings.TrimSpace(p.Message.Call.ID),
		CompanyID:  strings.TrimSpace(p.Message.Call.Metadata.CompanyID),
		Amount:     p.Message.Cost,
	}, nil
}

// ParseStored re-parses a stored raw payload by provider, used when an
// operator replays a failed event.
func ParseStored(provider string, payload []byte) (*InboundEvent, error) {
	switch provider {
	case models.ProviderFlutterwave:
		return ParseFlutterwaveEvent(payload)
	case models.ProviderVapi:
		return ParseVapiEvent(payload)
	case models.ProviderTwilio:
		form, err := url.ParseQuery(string(payload))
		if err != nil {
			return nil, err
		}
		return ParseTwilioEvent(form), nil
	default:
		return nil, errors.New("unknown provider " + provider)
	}
}

// ParseTwilioEvent normalizes a carrier form-encoded delivery. Twilio events
// are recorded for audit but trigger no billing mutation; the live call/SMS
// response is what matters on that path.
func ParseTwilioEvent(form url.Values) *InboundEvent {
	ev := &InboundEvent{Provider: models.ProviderTwilio}
	switch {
	case form.Get("CallSid") != "":
		ev.ExternalID = form.Get("CallSid")
		ev.Type = "voice.inbound"
		if status := form.Get("CallStatus"); status != "" {
			ev.Type = "voice.status." + strings.ToLower(status)
		}
	case form.Get("MessageSid") != "":
		ev.ExternalID = form.Get("MessageSid")
		ev.Type = "sms.inbound"
	case form.Get("SmsSid") != "":
		ev.ExternalID = form.Get("SmsSid")
		ev.Type = "sms.inbound"
	default:
		ev.Type = "carrier.unknown"
	}
	return ev
}
