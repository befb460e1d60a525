package payments

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/florakart/florakart/internal/gateway"
	"github.com/florakart/florakart/internal/models"
)

const validSignature = "valid-signature"

// fakeGateway verifies exactly one signature value and counts gateway
// order creations.
type fakeGateway struct {
	created    int
	failCreate bool
}

func (f *fakeGateway) CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (*gateway.GatewayOrder, error) {
	if f.failCreate {
		return nil, fmt.Errorf("gateway unavailable")
	}
	f.created++
	return &gateway.GatewayOrder{
		ID:          fmt.Sprintf("order_fake%d", f.created),
		AmountPaise: req.AmountPaise,
		Currency:    req.Currency,
		Status:      "created",
	}, nil
}

func (f *fakeGateway) VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	return signature == validSignature
}

func (f *fakeGateway) VerifyWebhookSignature(body []byte, signature string) bool {
	return true
}

func (f *fakeGateway) KeyID() string { return "rzp_test_key" }

func (f *fakeGateway) WebhookSecretConfigured() bool { return false }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Role{}, &models.User{}, &models.Address{},
		&models.Category{}, &models.Product{}, &models.Coupon{},
		&models.Order{}, &models.OrderItem{}, &models.OrderTracking{},
		&models.Payment{}, &models.ShopSettings{},
	))
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, total string) *models.Order {
	t.Helper()
	user := models.User{
		FullName:    "Asha Rao",
		Email:       "asha@example.com",
		Password:    "hashed",
		PhoneNumber: "9876543210",
	}
	require.NoError(t, db.Create(&user).Error)

	order := models.Order{
		OrderID:       models.NewOrderNumber(),
		UserID:        user.ID,
		FullName:      user.FullName,
		Email:         user.Email,
		Phone:         user.PhoneNumber,
		AddressLine1:  "12 MG Road",
		City:          "Bengaluru",
		State:         "Karnataka",
		Pincode:       "560001",
		Subtotal:      decimal.RequireFromString(total),
		Total:         decimal.RequireFromString(total),
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		PaymentMethod: models.PaymentMethodRazorpay,
	}
	require.NoError(t, db.Create(&order).Error)
	return &order
}

func trackingCount(t *testing.T, db *gorm.DB, order *models.Order) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.OrderTracking{}).Where("order_ref = ?", order.ID).Count(&count).Error)
	return count
}

func capturedWebhook(gatewayOrderID, gatewayPaymentID string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":%q,"order_id":%q}}}}`,
		gatewayPaymentID, gatewayOrderID,
	))
}

func failedWebhook(gatewayOrderID string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_x","order_id":%q}}}}`,
		gatewayOrderID,
	))
}

func TestInitiateCreatesGatewayOrderAndPaymentRecord(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{}
	order := seedOrder(t, db, "1800.00")

	result, err := Initiate(context.Background(), db, gw, order)
	require.NoError(t, err)
	require.False(t, result.AlreadyPaid)
	require.Equal(t, int64(180000), result.AmountPaise)
	require.Equal(t, "order_fake1", result.GatewayOrderID)
	require.Equal(t, "rzp_test_key", result.KeyID)

	var fresh models.Order
	require.NoError(t, db.First(&fresh, order.ID).Error)
	require.Equal(t, "order_fake1", fresh.GatewayOrderID)

	var payment models.Payment
	require.NoError(t, db.Where("order_ref = ?", order.ID).First(&payment).Error)
	require.Equal(t, models.PaymentRecordInitiated, payment.Status)
	require.True(t, payment.Amount.Equal(order.Total))
	require.Equal(t, "order_fake1", payment.GatewayOrderID)
}

func TestInitiateShortCircuitsWhenAlreadyPaid(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{}
	order := seedOrder(t, db, "500.00")
	require.NoError(t, db.Model(order).Update("payment_status", models.PaymentStatusPaid).Error)
	order.PaymentStatus = models.PaymentStatusPaid

	result, err := Initiate(context.Background(), db, gw, order)
	require.NoError(t, err)
	require.True(t, result.AlreadyPaid)
	require.Zero(t, gw.created, "no duplicate gateway order may be created")

	var paymentCount int64
	db.Model(&models.Payment{}).Count(&paymentCount)
	require.Zero(t, paymentCount)
}

func TestInitiateGatewayFailure(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{failCreate: true}
	order := seedOrder(t, db, "500.00")

	_, err := Initiate(context.Background(), db, gw, order)
	require.Error(t, err)

	var paymentCount int64
	db.Model(&models.Payment{}).Count(&paymentCount)
	require.Zero(t, paymentCount)
}

func TestConfirmCallbackSuccess(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{}
	order := seedOrder(t, db, "1800.00")
	_, err := Initiate(context.Background(), db, gw, order)
	require.NoError(t, err)

	confirmed, verified, err := ConfirmCallback(db, gw, "order_fake1", "pay_abc", validSignature)
	require.NoError(t, err)
	require.True(t, verified)
	require.Equal(t, models.PaymentStatusPaid, confirmed.PaymentStatus)
	require.Equal(t, models.OrderStatusConfirmed, confirmed.Status)
	require.Equal(t, "pay_abc", confirmed.GatewayPaymentID)

	var payment models.Payment
	require.NoError(t, db.Where("order_ref = ?", order.ID).First(&payment).Error)
	require.Equal(t, models.PaymentRecordCompleted, payment.Status)
	require.Equal(t, "pay_abc", payment.TransactionID)

	require.Equal(t, int64(2), trackingCount(t, db, order))
}

func TestConfirmCallbackIdempotent(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{}
	order := seedOrder(t, db, "1800.00")
	_, err := Initiate(context.Background(), db, gw, order)
	require.NoError(t, err)

	_, verified, err := ConfirmCallback(db, gw, "order_fake1", "pay_abc", validSignature)
	require.NoError(t, err)
	require.True(t, verified)

	// The second arrival detects the paid state and appends nothing.
	_, verified, err = ConfirmCallback(db, gw, "order_fake1", "pay_abc", validSignature)
	require.NoError(t, err)
	require.True(t, verified)

	require.Equal(t, int64(2), trackingCount(t, db, order))
}

func TestConfirmCallbackSignatureMismatch(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{}
	order := seedOrder(t, db, "1800.00")
	_, err := Initiate(context.Background(), db, gw, order)
	require.NoError(t, err)

	failed, verified, err := ConfirmCallback(db, gw, "order_fake1", "pay_abc", "forged")
	require.NoError(t, err)
	require.False(t, verified)
	require.Equal(t, models.PaymentStatusFailed, failed.PaymentStatus)
	// The order itself stays pending so the customer can retry.
	require.Equal(t, models.OrderStatusPending, failed.Status)

	var payment models.Payment
	require.NoError(t, db.Where("order_ref = ?", order.ID).First(&payment).Error)
	require.Equal(t, models.PaymentRecordFailed, payment.Status)
	require.Equal(t, "Signature verification failed", payment.ErrorMessage)

	require.Zero(t, trackingCount(t, db, order))
}

func TestConfirmCallbackUnknownOrder(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{}

	_, _, err := ConfirmCallback(db, gw, "order_nowhere", "pay_abc", validSignature)
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestWebhookCaptured(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{}
	order := seedOrder(t, db, "1800.00")
	_, err := Initiate(context.Background(), db, gw, order)
	require.NoError(t, err)

	event, err := HandleWebhook(db, capturedWebhook("order_fake1", "pay_hook"))
	require.NoError(t, err)
	require.Equal(t, "payment.captured", event)

	var fresh models.Order
	require.NoError(t, db.First(&fresh, order.ID).Error)
	require.Equal(t, models.PaymentStatusPaid, fresh.PaymentStatus)
	require.Equal(t, models.OrderStatusConfirmed, fresh.Status)
	require.Equal(t, "pay_hook", fresh.GatewayPaymentID)
	require.Equal(t, int64(2), trackingCount(t, db, order))

	// Duplicate delivery is a no-op.
	_, err = HandleWebhook(db, capturedWebhook("order_fake1", "pay_hook"))
	require.NoError(t, err)
	require.Equal(t, int64(2), trackingCount(t, db, order))
}

func TestPaidTransitionWinsExactlyOnce(t *testing.T) {
	db := newTestDB(t)
	order := seedOrder(t, db, "900.00")

	// Two writers that both observed the order as pending, the way a
	// callback and a webhook on separate connections would.
	stale := *order

	first, err := markOrderPaid(db, order, map[string]interface{}{"gateway_payment_id": "pay_first"})
	require.NoError(t, err)
	require.True(t, first)

	second, err := markOrderPaid(db, &stale, map[string]interface{}{"gateway_payment_id": "pay_second"})
	require.NoError(t, err)
	require.False(t, second, "the losing writer must see zero rows affected")

	var fresh models.Order
	require.NoError(t, db.First(&fresh, order.ID).Error)
	require.Equal(t, "pay_first", fresh.GatewayPaymentID)
	require.Equal(t, models.PaymentStatusPaid, fresh.PaymentStatus)
	require.Equal(t, models.OrderStatusConfirmed, fresh.Status)
}

func TestWebhookCapturedOnCancelledOrderRecordsPaymentOnly(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{}
	order := seedOrder(t, db, "1800.00")
	_, err := Initiate(context.Background(), db, gw, order)
	require.NoError(t, err)
	require.NoError(t, db.Model(order).Update("status", models.OrderStatusCancelled).Error)

	_, err = HandleWebhook(db, capturedWebhook("order_fake1", "pay_late"))
	require.NoError(t, err)

	var fresh models.Order
	require.NoError(t, db.First(&fresh, order.ID).Error)
	require.Equal(t, models.PaymentStatusPaid, fresh.PaymentStatus)
	require.Equal(t, models.OrderStatusCancelled, fresh.Status)

	var tracking []models.OrderTracking
	require.NoError(t, db.Where("order_ref = ?", order.ID).Find(&tracking).Error)
	require.Len(t, tracking, 1)
	require.Equal(t, "Payment Received", tracking[0].Status)
}

func TestWebhookRacingCallbackNoDoubleConfirmation(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{}
	order := seedOrder(t, db, "1800.00")
	_, err := Initiate(context.Background(), db, gw, order)
	require.NoError(t, err)

	_, verified, err := ConfirmCallback(db, gw, "order_fake1", "pay_abc", validSignature)
	require.NoError(t, err)
	require.True(t, verified)

	_, err = HandleWebhook(db, capturedWebhook("order_fake1", "pay_abc"))
	require.NoError(t, err)

	require.Equal(t, int64(2), trackingCount(t, db, order))
}

func TestWebhookUnknownOrderIsBenign(t *testing.T) {
	db := newTestDB(t)

	event, err := HandleWebhook(db, capturedWebhook("order_from_another_env", "pay_x"))
	require.NoError(t, err)
	require.Equal(t, "payment.captured", event)

	var orderCount, trackingTotal int64
	db.Model(&models.Order{}).Count(&orderCount)
	db.Model(&models.OrderTracking{}).Count(&trackingTotal)
	require.Zero(t, orderCount)
	require.Zero(t, trackingTotal)
}

func TestWebhookFailed(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{}
	order := seedOrder(t, db, "1800.00")
	_, err := Initiate(context.Background(), db, gw, order)
	require.NoError(t, err)

	_, err = HandleWebhook(db, failedWebhook("order_fake1"))
	require.NoError(t, err)

	var fresh models.Order
	require.NoError(t, db.First(&fresh, order.ID).Error)
	require.Equal(t, models.PaymentStatusFailed, fresh.PaymentStatus)
	require.Equal(t, models.OrderStatusPending, fresh.Status)

	var payment models.Payment
	require.NoError(t, db.Where("order_ref = ?", order.ID).First(&payment).Error)
	require.Equal(t, models.PaymentRecordFailed, payment.Status)
}

func TestWebhookFailedDoesNotDowngradePaidOrder(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{}
	order := seedOrder(t, db, "1800.00")
	_, err := Initiate(context.Background(), db, gw, order)
	require.NoError(t, err)

	_, verified, err := ConfirmCallback(db, gw, "order_fake1", "pay_abc", validSignature)
	require.NoError(t, err)
	require.True(t, verified)

	_, err = HandleWebhook(db, failedWebhook("order_fake1"))
	require.NoError(t, err)

	var fresh models.Order
	require.NoError(t, db.First(&fresh, order.ID).Error)
	require.Equal(t, models.PaymentStatusPaid, fresh.PaymentStatus)
}

func TestWebhookMalformed(t *testing.T) {
	db := newTestDB(t)

	_, err := HandleWebhook(db, []byte(`not json`))
	require.ErrorIs(t, err, ErrMalformedWebhook)

	_, err = HandleWebhook(db, []byte(`{}`))
	require.ErrorIs(t, err, ErrMalformedWebhook)
}

func TestRetryRejectedWhenPaid(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{}
	order := seedOrder(t, db, "500.00")
	require.NoError(t, db.Model(order).Update("payment_status", models.PaymentStatusPaid).Error)
	order.PaymentStatus = models.PaymentStatusPaid

	_, err := Retry(context.Background(), db, gw, order)
	require.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestRetryCreatesNewAttempt(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{}
	order := seedOrder(t, db, "500.00")

	_, err := Initiate(context.Background(), db, gw, order)
	require.NoError(t, err)

	_, verified, err := ConfirmCallback(db, gw, "order_fake1", "pay_abc", "forged")
	require.NoError(t, err)
	require.False(t, verified)

	result, err := Retry(context.Background(), db, gw, order)
	require.NoError(t, err)
	require.Equal(t, "order_fake2", result.GatewayOrderID)

	var paymentCount int64
	db.Model(&models.Payment{}).Where("order_ref = ?", order.ID).Count(&paymentCount)
	require.Equal(t, int64(2), paymentCount)
}
