package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreatePaymentLink(t *testing.T) {
	var gotAuth string
	var gotReq PaymentLinkRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/payments" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Write([]byte(`{"status":"success","message":"ok","data":{"link":"https://pay.example/abc"}}`))
	}))
	defer srv.Close()

	client := &FlutterwaveClient{SecretKey: "sk_test", APIBaseURL: srv.URL, HTTPClient: srv.Client()}
	link, err := client.CreatePaymentLink(context.Background(), PaymentLinkRequest{
		TxRef:    "vd-1",
		Amount:   50,
		Currency: "USD",
		Customer: PaymentCustomer{Email: "ops@c1.example"},
		Meta:     map[string]string{"companyId": "c1", "mode": "payment"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link.Link != "https://pay.example/abc" {
		t.Fatalf("unexpected link %q", link.Link)
	}
	if gotAuth != "Bearer sk_test" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
	if gotReq.Meta["companyId"] != "c1" || gotReq.Meta["mode"] != "payment" {
		t.Fatalf("meta must round-trip to the provider, got %v", gotReq.Meta)
	}
}

func TestCreatePaymentLinkRejectedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","message":"invalid currency"}`))
	}))
	defer srv.Close()

	client := &FlutterwaveClient{SecretKey: "sk_test", APIBaseURL: srv.URL, HTTPClient: srv.Client()}
	if _, err := client.CreatePaymentLink(context.Background(), PaymentLinkRequest{TxRef: "vd-1", Amount: 10}); err == nil {
		t.Fatalf("expected error for rejected envelope")
	}
}

func TestClientRequiresSecretKey(t *testing.T) {
	client := &FlutterwaveClient{HTTPClient: http.DefaultClient, APIBaseURL: "http://localhost:0"}
	if _, err := client.CreatePaymentLink(context.Background(), PaymentLinkRequest{TxRef: "x", Amount: 1}); err == nil {
		t.Fatalf("expected error for missing secret key")
	}
	if err := client.CancelSubscription(context.Background(), "sub_1"); err == nil {
		t.Fatalf("expected error for missing secret key")
	}
}
