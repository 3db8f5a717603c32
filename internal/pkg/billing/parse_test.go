package billing

import (
	"net/url"
	"testing"
)

func TestParseFlutterwaveTopUpEvent(t *testing.T) {
	raw := []byte(`{
		"event": "charge.completed",
		"data": {
			"id": 285959875,
			"tx_ref": "vd-topup-1",
			"amount": 50,
			"currency": "USD",
			"status": "successful",
			"customer": { "id": 215604089, "email": "ops@c1.example" },
			"meta": { "companyId": "c1", "mode": "payment" }
		}
	}`)

	ev, err := ParseFlutterwaveEvent(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ev.Type != "charge.completed" || ev.Mode != ModePayment {
		t.Fatalf("unexpected type/mode: %q/%q", ev.Type, ev.Mode)
	}
	if ev.ExternalID != "285959875" {
		t.Fatalf("numeric data.id must map to external id, got %q", ev.ExternalID)
	}
	if ev.CompanyID != "c1" || ev.Amount != 50 || ev.Currency != "USD" {
		t.Fatalf("unexpected fields: company=%q amount=%v currency=%q", ev.CompanyID, ev.Amount, ev.Currency)
	}
	if ev.CurrentPeriodEnd != nil {
		t.Fatalf("absent period end must stay nil")
	}
}

func TestParseFlutterwaveSubscriptionEvent(t *testing.T) {
	raw := []byte(`{
		"event": "charge.completed",
		"data": {
			"meta": { "companyId": "c1", "mode": "subscription", "planId": "growth" },
			"subscription": "sub_123",
			"customer": { "id": "cust_123" },
			"current_period_end": "2026-09-27T00:00:00Z"
		}
	}`)

	ev, err := ParseFlutterwaveEvent(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ev.Mode != ModeSubscription || ev.PlanID != "growth" {
		t.Fatalf("unexpected mode/plan: %q/%q", ev.Mode, ev.PlanID)
	}
	if ev.ProviderSubscriptionID != "sub_123" || ev.ProviderCustomerID != "cust_123" {
		t.Fatalf("unexpected provider ids: %q/%q", ev.ProviderSubscriptionID, ev.ProviderCustomerID)
	}
	if ev.CurrentPeriodEnd == nil {
		t.Fatalf("expected parsed period end")
	}
}

func TestParseFlutterwaveTxRefFallback(t *testing.T) {
	raw := []byte(`{"event":"charge.completed","data":{"tx_ref":"vd-42","meta":{"companyId":"c1","mode":"payment"}}}`)
	ev, err := ParseFlutterwaveEvent(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ev.ExternalID != "vd-42" {
		t.Fatalf("expected tx_ref fallback, got %q", ev.ExternalID)
	}
}

func TestParseFlutterwaveRejectsGarbage(t *testing.T) {
	if _, err := ParseFlutterwaveEvent([]byte("not json")); err == nil {
		t.Fatalf("expected error for non-JSON body")
	}
	if _, err := ParseFlutterwaveEvent([]byte(`{"data":{}}`)); err == nil {
		t.Fatalf("expected error for missing event field")
	}
}

func TestParseVapiEvent(t *testing.T) {
	raw := []byte(`{
		"message": {
			"type": "end-of-call-report",
			"cost": 0.5,
			"call": { "id": "call_9", "metadata": { "companyId": "c1" } }
		}
	}`)

	ev, err := ParseVapiEvent(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ev.Type != "end-of-call-report" || ev.ExternalID != "call_9" {
		t.Fatalf("unexpected type/id: %q/%q", ev.Type, ev.ExternalID)
	}
	if ev.CompanyID != "c1" || ev.Amount != 0.5 {
		t.Fatalf("unexpected company/cost: %q/%v", ev.CompanyID, ev.Amount)
	}
}

func TestParseTwilioEvent(t *testing.T) {
	form := url.Values{}
	form.Set("CallSid", "CA123")
	form.Set("CallStatus", "completed")

	ev := ParseTwilioEvent(form)
	if ev.ExternalID != "CA123" || ev.Type != "voice.status.completed" {
		t.Fatalf("unexpected call event: id=%q type=%q", ev.ExternalID, ev.Type)
	}

	sms := url.Values{}
	sms.Set("MessageSid", "SM456")
	ev = ParseTwilioEvent(sms)
	if ev.ExternalID != "SM456" || ev.Type != "sms.inbound" {
		t.Fatalf("unexpected sms event: id=%q type=%q", ev.ExternalID, ev.Type)
	}

	ev = ParseTwilioEvent(url.Values{})
	if ev.ExternalID != "" || ev.Type != "carrier.unknown" {
		t.Fatalf("unexpected empty-form event: id=%q type=%q", ev.ExternalID, ev.Type)
	}
}
