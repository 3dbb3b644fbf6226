package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"coursemarket/internal/domain"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	Countries     []string

	// BackendURL overrides the Stripe API base, used by tests.
	BackendURL string

	Client *http.Client
	Logger *slog.Logger
}

// StripeGateway opens hosted checkout sessions and verifies webhook deliveries.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	currency      string
	countries     []string
	logger        *slog.Logger
}

func NewStripeGateway(cfg StripeConfig) (*StripeGateway, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" || strings.TrimSpace(cfg.WebhookSecret) == "" {
		return nil, errors.New("stripe: secret key and webhook secret are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	currency := strings.ToLower(cfg.Currency)
	if currency == "" {
		currency = "inr"
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient: httpClient,
		// Retries are left to the caller's deadline.
		MaxNetworkRetries: stripe.Int64(0),
	}
	if cfg.BackendURL != "" {
		backendCfg.URL = stripe.String(cfg.BackendURL)
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	})

	logger.Info("stripe initialized", "currency", currency, "countries", cfg.Countries, "custom_backend", cfg.BackendURL != "")
	return &StripeGateway{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		currency:      currency,
		countries:     cfg.Countries,
		logger:        logger,
	}, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error) {
	logger := g.logger.With("op", "CreateCheckoutSession", "purchase_id", req.PurchaseID)

	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(req.Title),
	}
	if req.Thumbnail != "" {
		product.Images = stripe.StringSlice([]string{req.Thumbnail})
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:    stripe.String(g.currency),
					ProductData: product,
					UnitAmount:  stripe.Int64(req.Amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.PurchaseID),
	}
	if len(g.countries) > 0 {
		params.ShippingAddressCollection = &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(g.countries),
		}
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		var serr *stripe.Error
		if errors.As(err, &serr) {
			logger.Error("stripe rejected checkout session", "status", serr.HTTPStatusCode, "code", serr.Code, "msg", serr.Msg)
		}
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	if session.ID == "" || session.URL == "" {
		return nil, errors.New("stripe: checkout session without id or url")
	}

	logger.Debug("checkout session created", "session_id", session.ID)
	return &domain.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// ParseEvent verifies the Stripe-Signature header against the raw payload.
// Non-checkout events come back with only ID and Type set.
func (g *StripeGateway) ParseEvent(payload []byte, signature string) (*domain.GatewayEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	out := &domain.GatewayEvent{ID: event.ID, Type: string(event.Type)}
	if out.Type != domain.EventCheckoutCompleted {
		return out, nil
	}
	if event.Data == nil {
		return nil, errors.New("stripe: checkout event without data")
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("stripe: decode checkout session: %w", err)
	}
	out.SessionID = session.ID
	out.AmountTotal = session.AmountTotal
	out.Metadata = session.Metadata
	return out, nil
}
