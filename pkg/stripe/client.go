package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v83"

	"github.com/golacotv/golaco-backend/pkg/config"
	"github.com/golacotv/golaco-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// Client wraps Stripe's API client plus env-specific metadata.
type Client struct {
	api           *stripe.Client
	environment   string
	signingSecret string
}

// NewClient initializes Stripe once with the configured secrets and env.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	signingSecret := strings.TrimSpace(cfg.WebhookSecret)
	if signingSecret == "" {
		return nil, errSecretRequired
	}

	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	api := stripe.NewClient(apiKey)
	stripe.Key = apiKey

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	return &Client{
		api:           api,
		environment:   env,
		signingSecret: signingSecret,
	}, nil
}

// CreatePaymentIntent opens a one-shot card charge. Metadata travels to
// the webhook events Stripe emits for the intent.
func (c *Client) CreatePaymentIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*stripe.PaymentIntent, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("stripe client not initialized")
	}
	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if len(metadata) > 0 {
		params.Metadata = metadata
	}
	return c.api.V1PaymentIntents.Create(ctx, params)
}

// GetSubscription fetches a subscription and its metadata.
func (c *Client) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("stripe client not initialized")
	}
	return c.api.V1Subscriptions.Retrieve(ctx, id, nil)
}

// API returns the underlying Stripe API client.
func (c *Client) API() *stripe.Client {
	if c == nil {
		return nil
	}
	return c.api
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

func normalizeEnv(env string) (string, error) {
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, apiKey string) error {
	isTestKey := strings.HasPrefix(apiKey, "sk_test_") || strings.HasPrefix(apiKey, "rk_test_")
	isLiveKey := strings.HasPrefix(apiKey, "sk_live_") || strings.HasPrefix(apiKey, "rk_live_")

	switch env {
	case testEnv:
		if isLiveKey {
			return fmt.Errorf("live stripe key supplied for test environment")
		}
	case liveEnv:
		if isTestKey {
			return fmt.Errorf("test stripe key supplied for live environment")
		}
	}
	return nil
}
