package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func signWith(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestAmountToPaise(t *testing.T) {
	require.Equal(t, int64(180000), AmountToPaise(decimal.RequireFromString("1800.00")))
	require.Equal(t, int64(49950), AmountToPaise(decimal.RequireFromString("499.50")))
	// Sub-paise fractions truncate.
	require.Equal(t, int64(10), AmountToPaise(decimal.RequireFromString("0.109")))
}

func TestVerifyPaymentSignature(t *testing.T) {
	client := NewRazorpayClient("key", "secret", "")

	good := signWith("secret", "order_abc|pay_xyz")
	require.True(t, client.VerifyPaymentSignature("order_abc", "pay_xyz", good))
	require.False(t, client.VerifyPaymentSignature("order_abc", "pay_xyz", "tampered"))
	require.False(t, client.VerifyPaymentSignature("order_other", "pay_xyz", good))
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)

	configured := NewRazorpayClient("key", "secret", "whsecret")
	require.True(t, configured.WebhookSecretConfigured())
	require.True(t, configured.VerifyWebhookSignature(body, signWith("whsecret", string(body))))
	require.False(t, configured.VerifyWebhookSignature(body, "bogus"))

	unconfigured := NewRazorpayClient("key", "secret", "")
	require.False(t, unconfigured.WebhookSecretConfigured())
	require.True(t, unconfigured.VerifyWebhookSignature(body, "anything"))
}

func TestCreateOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "key", user)
		require.Equal(t, "secret", pass)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, float64(180000), body["amount"])
		require.Equal(t, "INR", body["currency"])
		require.Equal(t, "FS3F2A91C4", body["receipt"])

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":       "order_test123",
			"amount":   180000,
			"currency": "INR",
			"status":   "created",
		})
	}))
	defer server.Close()

	client := NewRazorpayClientWithBaseURL("key", "secret", "", server.URL)

	order, err := client.CreateOrder(context.Background(), CreateOrderRequest{
		AmountPaise: 180000,
		Currency:    "INR",
		Receipt:     "FS3F2A91C4",
		Notes:       map[string]string{"order_id": "FS3F2A91C4"},
	})
	require.NoError(t, err)
	require.Equal(t, "order_test123", order.ID)
	require.Equal(t, int64(180000), order.AmountPaise)
}

func TestCreateOrderGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"description":"Authentication failed"}}`))
	}))
	defer server.Close()

	client := NewRazorpayClientWithBaseURL("key", "wrong", "", server.URL)

	_, err := client.CreateOrder(context.Background(), CreateOrderRequest{AmountPaise: 100})
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
}

func TestCreateOrderMissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewRazorpayClientWithBaseURL("key", "secret", "", server.URL)

	_, err := client.CreateOrder(context.Background(), CreateOrderRequest{AmountPaise: 100})
	require.Error(t, err)
}
