package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/florakart/florakart/internal/gateway"
	"github.com/florakart/florakart/internal/models"
)

var (
	ErrOrderNotFound    = errors.New("order not found for gateway order id")
	ErrAlreadyPaid      = errors.New("order is already paid")
	ErrMalformedWebhook = errors.New("malformed webhook payload")
)

// InitiateResult carries everything the client needs to open the gateway
// checkout.
type InitiateResult struct {
	Order          *models.Order
	GatewayOrderID string
	AmountPaise    int64
	Currency       string
	KeyID          string
	AlreadyPaid    bool
}

// Initiate creates the gateway-side order for an order's total and records
// the attempt. Calling it for an already-paid order short-circuits without
// touching the gateway, so a double-submitted checkout never creates a
// duplicate gateway order.
func Initiate(ctx context.Context, db *gorm.DB, gw gateway.Client, order *models.Order) (*InitiateResult, error) {
	if order.PaymentStatus == models.PaymentStatusPaid {
		return &InitiateResult{Order: order, AlreadyPaid: true}, nil
	}

	amountPaise := gateway.AmountToPaise(order.Total)
	gatewayOrder, err := gw.CreateOrder(ctx, gateway.CreateOrderRequest{
		AmountPaise: amountPaise,
		Currency:    "INR",
		Receipt:     order.OrderID,
		Notes: map[string]string{
			"order_id": order.OrderID,
			"user_id":  order.UserID.String(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway order: %w", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(order).Update("gateway_order_id", gatewayOrder.ID).Error; err != nil {
			return fmt.Errorf("failed to persist gateway order id: %w", err)
		}
		order.GatewayOrderID = gatewayOrder.ID

		payment := models.Payment{
			OrderRef:       order.ID,
			Gateway:        models.PaymentMethodRazorpay,
			Amount:         order.Total,
			Currency:       "INR",
			Status:         models.PaymentRecordInitiated,
			GatewayOrderID: gatewayOrder.ID,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return fmt.Errorf("failed to create payment record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &InitiateResult{
		Order:          order,
		GatewayOrderID: gatewayOrder.ID,
		AmountPaise:    amountPaise,
		Currency:       "INR",
		KeyID:          gw.KeyID(),
	}, nil
}

// ConfirmCallback reconciles the synchronous browser-redirected
// confirmation. It returns the order and whether the payment was
// verified. A repeat callback for an already-paid order is a verified
// no-op; tracking events are appended exactly once.
func ConfirmCallback(db *gorm.DB, gw gateway.Client, gatewayOrderID, gatewayPaymentID, signature string) (*models.Order, bool, error) {
	var order models.Order
	if err := db.Where("gateway_order_id = ?", gatewayOrderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrOrderNotFound
		}
		return nil, false, fmt.Errorf("failed to look up order: %w", err)
	}

	if order.PaymentStatus == models.PaymentStatusPaid {
		return &order, true, nil
	}

	if !gw.VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature) {
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&order).Update("payment_status", models.PaymentStatusFailed).Error; err != nil {
				return fmt.Errorf("failed to mark payment failed: %w", err)
			}
			order.PaymentStatus = models.PaymentStatusFailed
			return failLatestPayment(tx, order.ID, gatewayOrderID, "Signature verification failed")
		})
		if err != nil {
			return &order, false, err
		}
		return &order, false, nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		transitioned, err := markOrderPaid(tx, &order, map[string]interface{}{
			"gateway_payment_id": gatewayPaymentID,
			"gateway_signature":  signature,
		})
		if err != nil {
			return err
		}
		if !transitioned {
			// The webhook got there first and already appended tracking.
			return nil
		}
		order.GatewayPaymentID = gatewayPaymentID
		order.GatewaySignature = signature

		if err := completeLatestPayment(tx, order.ID, gatewayOrderID, gatewayPaymentID, signature); err != nil {
			return err
		}
		return appendConfirmationTracking(tx, &order)
	})
	if err != nil {
		return &order, false, err
	}
	return &order, true, nil
}

// markOrderPaid performs the paid transition as a single guarded update,
// so a callback and a webhook racing on separate connections cannot both
// win: the loser sees zero rows affected and must skip the side effects.
// The order only advances to confirmed when its current status allows it;
// a late capture on a cancelled order records the money without reviving
// the order.
func markOrderPaid(tx *gorm.DB, order *models.Order, updates map[string]interface{}) (bool, error) {
	updates["payment_status"] = models.PaymentStatusPaid
	advance := models.CanTransition(order.Status, models.OrderStatusConfirmed)
	if advance {
		updates["status"] = models.OrderStatusConfirmed
	}

	result := tx.Model(&models.Order{}).
		Where("id = ? AND payment_status <> ?", order.ID, models.PaymentStatusPaid).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark order paid: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		order.PaymentStatus = models.PaymentStatusPaid
		return false, nil
	}

	order.PaymentStatus = models.PaymentStatusPaid
	if advance {
		order.Status = models.OrderStatusConfirmed
	}
	return true, nil
}

type webhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleWebhook processes the asynchronous gateway notification. It is
// the authoritative secondary confirmation path: idempotent against the
// callback, and an unknown gateway order id is a benign no-op so the
// gateway stops retrying delivery. The event name is returned for
// logging.
func HandleWebhook(db *gorm.DB, body []byte) (string, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.Event == "" {
		return "", ErrMalformedWebhook
	}

	entity := payload.Payload.Payment.Entity

	switch payload.Event {
	case "payment.captured":
		var order models.Order
		if err := db.Where("gateway_order_id = ?", entity.OrderID).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Warn().Str("gateway_order_id", entity.OrderID).Msg("webhook for unknown gateway order, ignoring")
				return payload.Event, nil
			}
			return payload.Event, fmt.Errorf("failed to look up order: %w", err)
		}
		if order.PaymentStatus == models.PaymentStatusPaid {
			return payload.Event, nil
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			transitioned, err := markOrderPaid(tx, &order, map[string]interface{}{
				"gateway_payment_id": entity.ID,
			})
			if err != nil {
				return err
			}
			if !transitioned {
				// The callback got there first and already appended tracking.
				return nil
			}

			if err := completeLatestPayment(tx, order.ID, entity.OrderID, entity.ID, ""); err != nil {
				return err
			}
			return appendConfirmationTracking(tx, &order)
		})
		return payload.Event, err

	case "payment.failed":
		var order models.Order
		if err := db.Where("gateway_order_id = ?", entity.OrderID).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return payload.Event, nil
			}
			return payload.Event, fmt.Errorf("failed to look up order: %w", err)
		}
		// A capture that already landed wins over a late failure event.
		if order.PaymentStatus == models.PaymentStatusPaid {
			return payload.Event, nil
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&order).Update("payment_status", models.PaymentStatusFailed).Error; err != nil {
				return fmt.Errorf("failed to mark payment failed: %w", err)
			}
			return failLatestPayment(tx, order.ID, entity.OrderID, "Gateway reported payment failure")
		})
		return payload.Event, err
	}

	// Unhandled event types are acknowledged so the gateway does not
	// retry them forever.
	return payload.Event, nil
}

// Retry re-enters the initiate flow for an unpaid order.
func Retry(ctx context.Context, db *gorm.DB, gw gateway.Client, order *models.Order) (*InitiateResult, error) {
	if order.PaymentStatus == models.PaymentStatusPaid {
		return nil, ErrAlreadyPaid
	}
	return Initiate(ctx, db, gw, order)
}

func completeLatestPayment(tx *gorm.DB, orderRef interface{}, gatewayOrderID, gatewayPaymentID, signature string) error {
	var payment models.Payment
	err := tx.Where("order_ref = ? AND gateway_order_id = ?", orderRef, gatewayOrderID).
		Order("created_at DESC").First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up payment record: %w", err)
	}

	updates := map[string]interface{}{
		"status":             models.PaymentRecordCompleted,
		"gateway_payment_id": gatewayPaymentID,
		"transaction_id":     gatewayPaymentID,
	}
	if signature != "" {
		updates["gateway_signature"] = signature
	}
	if err := tx.Model(&payment).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to complete payment record: %w", err)
	}
	return nil
}

func failLatestPayment(tx *gorm.DB, orderRef interface{}, gatewayOrderID, message string) error {
	var payment models.Payment
	err := tx.Where("order_ref = ? AND gateway_order_id = ?", orderRef, gatewayOrderID).
		Order("created_at DESC").First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up payment record: %w", err)
	}

	updates := map[string]interface{}{
		"status":        models.PaymentRecordFailed,
		"error_message": message,
	}
	if err := tx.Model(&payment).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to fail payment record: %w", err)
	}
	return nil
}

func appendConfirmationTracking(tx *gorm.DB, order *models.Order) error {
	received := models.OrderTracking{
		OrderRef:    order.ID,
		Status:      "Payment Received",
		Description: fmt.Sprintf("Payment of ₹%s received via Razorpay.", order.Total.StringFixed(2)),
	}
	if err := tx.Create(&received).Error; err != nil {
		return fmt.Errorf("failed to create tracking entry: %w", err)
	}

	// A capture that could not advance the order (it was cancelled in the
	// meantime) records the money without announcing a confirmation.
	if order.Status != models.OrderStatusConfirmed {
		return nil
	}
	confirmed := models.OrderTracking{
		OrderRef:    order.ID,
		Status:      "Order Confirmed",
		Description: "Your order has been confirmed and is being processed.",
	}
	if err := tx.Create(&confirmed).Error; err != nil {
		return fmt.Errorf("failed to create tracking entry: %w", err)
	}
	return nil
}
