package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://api.razorpay.com/v1"

// Client is the payment-gateway contract the checkout flow depends on:
// create an order, verify a redirect-callback signature, verify a webhook
// body. Verification fails closed.
type Client interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*GatewayOrder, error)
	VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
	KeyID() string
	WebhookSecretConfigured() bool
}

type CreateOrderRequest struct {
	AmountPaise int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

type GatewayOrder struct {
	ID          string `json:"id"`
	AmountPaise int64  `json:"amount"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
}

// AmountToPaise converts a rupee amount to the gateway's minor currency
// unit, truncating any sub-paise fraction.
func AmountToPaise(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}

type razorpayClient struct {
	keyID         string
	keySecret     string
	webhookSecret string
	baseURL       string
	httpClient    *http.Client
}

// NewRazorpayClient builds a gateway client with a bounded request
// timeout; a gateway outage surfaces as an error, never a hang.
func NewRazorpayClient(keyID, keySecret, webhookSecret string) Client {
	return &razorpayClient{
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		baseURL:       defaultBaseURL,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
	}
}

// NewRazorpayClientWithBaseURL is used by tests to point the client at a
// stub server.
func NewRazorpayClientWithBaseURL(keyID, keySecret, webhookSecret, baseURL string) Client {
	client := NewRazorpayClient(keyID, keySecret, webhookSecret).(*razorpayClient)
	client.baseURL = baseURL
	return client
}

func (r *razorpayClient) KeyID() string {
	return r.keyID
}

func (r *razorpayClient) WebhookSecretConfigured() bool {
	return r.webhookSecret != ""
}

func (r *razorpayClient) CreateOrder(ctx context.Context, req CreateOrderRequest) (*GatewayOrder, error) {
	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}

	orderBody := map[string]interface{}{
		"amount":          req.AmountPaise,
		"currency":        currency,
		"receipt":         req.Receipt,
		"payment_capture": 1,
	}
	if len(req.Notes) > 0 {
		orderBody["notes"] = req.Notes
	}

	jsonBody, err := json.Marshal(orderBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode gateway order request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/orders", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway order request: %w", err)
	}
	httpReq.SetBasicAuth(r.keyID, r.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway order request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("gateway order creation failed with status %d: %s", resp.StatusCode, string(body))
	}

	var order GatewayOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("failed to decode gateway order: %w", err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("gateway order response missing id")
	}
	return &order, nil
}

// VerifyPaymentSignature checks the redirect-callback signature: an
// HMAC-SHA256 of "<order_id>|<payment_id>" under the key secret.
func (r *razorpayClient) VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	expected := hmacHex(r.keySecret, gatewayOrderID+"|"+gatewayPaymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header against
// the raw webhook body. Returns true when no webhook secret is
// configured, preserving deployments that have not set one up.
func (r *razorpayClient) VerifyWebhookSignature(body []byte, signature string) bool {
	if r.webhookSecret == "" {
		return true
	}
	expected := hmacHex(r.webhookSecret, string(body))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func hmacHex(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}
