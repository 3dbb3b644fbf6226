package payment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coursemarket/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testSecret = "whsec_test_secret"

func newTestGateway(t *testing.T, backend string) *StripeGateway {
	t.Helper()
	gw, err := NewStripeGateway(StripeConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: testSecret,
		Currency:      "INR",
		Countries:     []string{"IN"},
		BackendURL:    backend,
	})
	require.NoError(t, err)
	return gw
}

func TestNewStripeGatewayRequiresKeys(t *testing.T) {
	_, err := NewStripeGateway(StripeConfig{SecretKey: "sk_test_123"})
	require.Error(t, err)
}

func TestCreateCheckoutSession(t *testing.T) {
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		form = map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1","amount_total":500}`))
	}))
	defer srv.Close()

	gw := newTestGateway(t, srv.URL)
	session, err := gw.CreateCheckoutSession(context.Background(), domain.CheckoutRequest{
		PurchaseID: "p-1",
		Title:      "Go in Practice",
		Thumbnail:  "https://img.example/go.png",
		Amount:     500,
		SuccessURL: "http://localhost:5173/course-progress/c-1",
		CancelURL:  "http://localhost:5173/course-detail/c-1",
		Metadata:   map[string]string{"courseId": "c-1", "userId": "u-1", "purchaseId": "p-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", session.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", session.URL)

	assert.Equal(t, "payment", form["mode"])
	assert.Equal(t, "card", form["payment_method_types[0]"])
	assert.Equal(t, "inr", form["line_items[0][price_data][currency]"])
	assert.Equal(t, "500", form["line_items[0][price_data][unit_amount]"])
	assert.Equal(t, "Go in Practice", form["line_items[0][price_data][product_data][name]"])
	assert.Equal(t, "1", form["line_items[0][quantity]"])
	assert.Equal(t, "p-1", form["client_reference_id"])
	assert.Equal(t, "IN", form["shipping_address_collection[allowed_countries][0]"])
	assert.Equal(t, "c-1", form["metadata[courseId]"])
	assert.Equal(t, "u-1", form["metadata[userId]"])
}

func TestCreateCheckoutSessionProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Invalid currency"}}`))
	}))
	defer srv.Close()

	gw := newTestGateway(t, srv.URL)
	_, err := gw.CreateCheckoutSession(context.Background(), domain.CheckoutRequest{PurchaseID: "p-1", Title: "x", Amount: 1})
	require.Error(t, err)
}

func TestCreateCheckoutSessionHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	gw := newTestGateway(t, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := gw.CreateCheckoutSession(ctx, domain.CheckoutRequest{PurchaseID: "p-1", Title: "x", Amount: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func signed(t *testing.T, secret string, event map[string]interface{}) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return sp.Payload, sp.Header
}

func checkoutCompleted() map[string]interface{} {
	return map[string]interface{}{
		"id":     "evt_1",
		"object": "event",
		"type":   "checkout.session.completed",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":           "cs_test_1",
				"object":       "checkout.session",
				"amount_total": 500,
				"metadata":     map[string]string{"courseId": "c-1", "userId": "u-1"},
			},
		},
	}
}

func TestParseEvent(t *testing.T) {
	gw := newTestGateway(t, "")

	payload, header := signed(t, testSecret, checkoutCompleted())
	event, err := gw.ParseEvent(payload, header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, domain.EventCheckoutCompleted, event.Type)
	assert.Equal(t, "cs_test_1", event.SessionID)
	assert.Equal(t, int64(500), event.AmountTotal)
	assert.Equal(t, "c-1", event.Metadata["courseId"])
}

func TestParseEventOtherType(t *testing.T) {
	gw := newTestGateway(t, "")

	payload, header := signed(t, testSecret, map[string]interface{}{
		"id":   "evt_2",
		"type": "payment_intent.succeeded",
		"data": map[string]interface{}{"object": map[string]interface{}{"id": "pi_1"}},
	})
	event, err := gw.ParseEvent(payload, header)
	require.NoError(t, err)
	assert.Equal(t, "payment_intent.succeeded", event.Type)
	assert.Empty(t, event.SessionID)
}

func TestParseEventRejectsBadSignature(t *testing.T) {
	gw := newTestGateway(t, "")

	payload, _ := signed(t, testSecret, checkoutCompleted())
	_, forged := signed(t, "whsec_other", checkoutCompleted())

	tests := map[string]string{
		"wrong secret": forged,
		"empty header": "",
		"garbage":      "t=1,v1=deadbeef",
	}
	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := gw.ParseEvent(payload, header)
			require.ErrorIs(t, err, domain.ErrInvalidSignature)
		})
	}
}

func TestParseEventRejectsTamperedBody(t *testing.T) {
	gw := newTestGateway(t, "")

	payload, header := signed(t, testSecret, checkoutCompleted())
	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)-2] = ' '

	_, err := gw.ParseEvent(tampered, header)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
}
