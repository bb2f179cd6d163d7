package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v83"

	"github.com/golacotv/golaco-backend/pkg/logger"
)

const stripeTestSecret = "whsec_test"

type fakeStripeService struct {
	calls int
	err   error
}

func (f *fakeStripeService) HandleEvent(_ context.Context, _ *stripe.Event) error {
	f.calls++
	return f.err
}

type fakeSigningClient struct {
	secret string
}

func (f *fakeSigningClient) SigningSecret() string {
	return f.secret
}

func buildSignedStripeEvent(t *testing.T, eventID string) ([]byte, string) {
	t.Helper()
	event := map[string]any{
		"id":          eventID,
		"api_version": stripe.APIVersion,
		"type":        "payment_intent.succeeded",
		"created":     time.Now().Unix(),
		"data": map[string]any{
			"object": map[string]any{"id": "pi_1"},
		},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("encoding event: %v", err)
	}

	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(stripeTestSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	header := fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
	return payload, header
}

func postStripe(handler http.HandlerFunc, payload []byte, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	if header != "" {
		req.Header.Set("Stripe-Signature", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestStripeWebhookProcessesAndDeduplicates(t *testing.T) {
	service := &fakeStripeService{}
	guard := newFakeGuard()
	handler := StripeWebhook(service, &fakeSigningClient{secret: stripeTestSecret}, guard, nil, logger.New(logger.Options{ServiceName: "test"}))

	payload, header := buildSignedStripeEvent(t, "evt_1")
	rec := postStripe(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected one dispatch, got %d", service.calls)
	}

	rec = postStripe(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("duplicates must still be acknowledged, got %d", rec.Code)
	}
	if service.calls != 1 {
		t.Fatalf("duplicate delivery must not dispatch again, got %d calls", service.calls)
	}
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	service := &fakeStripeService{}
	handler := StripeWebhook(service, &fakeSigningClient{secret: stripeTestSecret}, newFakeGuard(), nil, logger.New(logger.Options{ServiceName: "test"}))

	payload, _ := buildSignedStripeEvent(t, "evt_2")
	rec := postStripe(handler, payload, "t=1,v1=invalid")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a bad signature, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("unverified payloads must never dispatch")
	}
}

func TestStripeWebhookMissingSignature(t *testing.T) {
	handler := StripeWebhook(&fakeStripeService{}, &fakeSigningClient{secret: stripeTestSecret}, newFakeGuard(), nil, logger.New(logger.Options{ServiceName: "test"}))

	payload, _ := buildSignedStripeEvent(t, "evt_3")
	rec := postStripe(handler, payload, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a signature header, got %d", rec.Code)
	}
}

func TestStripeWebhookUnconfiguredRail(t *testing.T) {
	handler := StripeWebhook(&fakeStripeService{}, nil, newFakeGuard(), nil, logger.New(logger.Options{ServiceName: "test"}))

	payload, header := buildSignedStripeEvent(t, "evt_4")
	rec := postStripe(handler, payload, header)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when the rail is unconfigured, got %d", rec.Code)
	}
}
