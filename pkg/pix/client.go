package pix

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golacotv/golaco-backend/pkg/config"
	pkgerrors "github.com/golacotv/golaco-backend/pkg/errors"
	"github.com/golacotv/golaco-backend/pkg/logger"
)

var (
	errAppIDRequired  = errors.New("pix app id is required")
	errLoggerRequired = errors.New("pix logger is required")
)

// Client wraps the Woovi-style Pix provider API: charge and subscription
// creation plus webhook signature verification.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	appID         string
	webhookSecret string
	logger        *logger.Logger
}

// NewClient validates credentials and builds the Pix wrapper.
func NewClient(ctx context.Context, cfg config.PixConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	appID := strings.TrimSpace(cfg.AppID)
	if appID == "" {
		return nil, errAppIDRequired
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       strings.TrimRight(cfg.APIBaseURL, "/"),
		appID:         appID,
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		logger:        logg,
	}

	logg.Info(ctx, "pix client initialized")
	return client, nil
}

// SetWebhookSecret installs the admin-configured secret when the env var
// was absent at boot.
func (c *Client) SetWebhookSecret(secret string) {
	if c == nil {
		return
	}
	c.webhookSecret = strings.TrimSpace(secret)
}

// SigningSecret returns the webhook signature secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// VerifySignature checks the webhook HMAC over the raw payload. The
// provider sends either hex or base64 digests depending on account age,
// so both encodings are accepted.
func (c *Client) VerifySignature(payload []byte, header string) bool {
	secret := c.SigningSecret()
	if secret == "" || header == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	sum := mac.Sum(nil)

	if hmac.Equal([]byte(hex.EncodeToString(sum)), []byte(header)) {
		return true
	}
	return hmac.Equal([]byte(base64.StdEncoding.EncodeToString(sum)), []byte(header))
}

// ChargeRequest asks the provider for a new Pix charge.
type ChargeRequest struct {
	CorrelationID string `json:"correlationID"`
	Value         int64  `json:"value"`
	Comment       string `json:"comment,omitempty"`
}

// Charge is the subset of the provider's charge object the engine needs.
type Charge struct {
	CorrelationID string `json:"correlationID"`
	BRCode        string `json:"brCode"`
	QRCodeImage   string `json:"qrCodeImage"`
	Status        string `json:"status"`
}

type chargeEnvelope struct {
	Charge Charge `json:"charge"`
}

// CreateCharge creates a one-shot Pix charge for the given correlation id.
func (c *Client) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if req.CorrelationID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "correlation id is required")
	}
	if req.Value <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge value must be positive")
	}

	var envelope chargeEnvelope
	if err := c.post(ctx, "/api/v1/charge", req, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Charge, nil
}

// SubscriptionRequest asks the provider for a recurring Pix subscription.
type SubscriptionRequest struct {
	CorrelationID string `json:"correlationID"`
	Value         int64  `json:"value"`
	Customer      struct {
		Email string `json:"email"`
	} `json:"customer"`
	Comment string `json:"comment,omitempty"`
}

// Subscription is the provider's recurring charge handle.
type Subscription struct {
	GlobalID      string `json:"globalID"`
	CorrelationID string `json:"correlationID"`
	Status        string `json:"status"`
}

type subscriptionEnvelope struct {
	Subscription Subscription `json:"subscription"`
}

// CreateSubscription creates a recurring Pix subscription.
func (c *Client) CreateSubscription(ctx context.Context, req SubscriptionRequest) (*Subscription, error) {
	if req.CorrelationID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "correlation id is required")
	}
	if req.Value <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription value must be positive")
	}

	var envelope subscriptionEnvelope
	if err := c.post(ctx, "/api/v1/subscriptions", req, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Subscription, nil
}

func (c *Client) post(ctx context.Context, path string, body any, dest any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode pix request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build pix request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.appID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call pix provider")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read pix response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("pix provider returned %d", resp.StatusCode)).
			WithDetails(map[string]any{"body": string(payload)})
	}

	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode pix response")
	}
	return nil
}
