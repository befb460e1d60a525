package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/florakart/florakart/internal/helpers"
	"github.com/florakart/florakart/internal/middleware"
	"github.com/florakart/florakart/internal/models"
	"github.com/florakart/florakart/internal/payments"
)

// ProcessPayment starts the gateway checkout for the session's pending
// order. Re-invoking it for an already-paid order short-circuits without
// creating another gateway order.
func ProcessPayment(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	store := middleware.GetCartStore(c)
	token := middleware.GetCartToken(c)

	pendingID, err := store.PendingOrder(c.Request.Context(), token)
	if err != nil || pendingID == uuid.Nil {
		helpers.RespondWithError(c, http.StatusNotFound, "No order found. Please try again.")
		return
	}

	var order models.Order
	if err := gormDB.Where("id = ? AND user_id = ?", pendingID, userID.(uuid.UUID)).First(&order).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Order not found.")
		return
	}

	gw := middleware.GetGatewayClient(c)
	if gw == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Payment gateway not configured.")
		return
	}

	result, err := payments.Initiate(c.Request.Context(), gormDB, gw, &order)
	if err != nil {
		log.Error().Err(err).Str("order_id", order.OrderID).Msg("payment initiation failed")
		helpers.RespondWithError(c, http.StatusBadGateway, "Failed to initiate payment. Please try again.")
		return
	}

	if result.AlreadyPaid {
		c.JSON(http.StatusOK, gin.H{
			"status":   "paid",
			"order_id": order.OrderID,
			"message":  "Order is already paid.",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":           "initiated",
		"order_id":         order.OrderID,
		"gateway_order_id": result.GatewayOrderID,
		"key_id":           result.KeyID,
		"amount":           result.AmountPaise,
		"currency":         result.Currency,
		"callback_url":     "/v1/payments/callback",
	})
}

// PaymentCallback is the synchronous browser-redirected confirmation.
// Verification failure leaves the order pending so the customer can
// retry; nothing on this path escapes as a crash.
func PaymentCallback(c *gin.Context) {
	gatewayPaymentID := c.PostForm("razorpay_payment_id")
	gatewayOrderID := c.PostForm("razorpay_order_id")
	signature := c.PostForm("razorpay_signature")

	if gatewayOrderID == "" {
		helpers.RespondWithError(c, http.StatusBadRequest, "Missing payment callback fields.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	gw := middleware.GetGatewayClient(c)
	if gw == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Payment gateway not configured.")
		return
	}

	order, verified, err := payments.ConfirmCallback(gormDB, gw, gatewayOrderID, gatewayPaymentID, signature)
	if err != nil {
		log.Error().Err(err).Str("gateway_order_id", gatewayOrderID).Msg("payment callback failed")
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "failed",
			"message": "Payment could not be confirmed. Please try again.",
		})
		return
	}

	if !verified {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":   "failed",
			"order_id": order.OrderID,
			"message":  "Payment verification failed. You can retry the payment.",
		})
		return
	}

	store := middleware.GetCartStore(c)
	token := middleware.GetCartToken(c)
	if err := store.ClearPendingOrder(c.Request.Context(), token); err != nil {
		log.Warn().Err(err).Str("order_id", order.OrderID).Msg("failed to clear pending order marker")
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "success",
		"order_id": order.OrderID,
		"message":  "Payment received. Your order is confirmed.",
	})
}

// PaymentWebhook is the asynchronous gateway notification. A success
// acknowledgment stops gateway retries, so benign conditions (unknown
// order, unhandled event) still return ok; only malformed payloads and
// storage failures get the error acknowledgment.
func PaymentWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read webhook body"})
		return
	}

	gw := middleware.GetGatewayClient(c)
	if gw != nil && gw.WebhookSecretConfigured() {
		if !gw.VerifyWebhookSignature(body, c.GetHeader("X-Razorpay-Signature")) {
			log.Warn().Msg("webhook signature verification failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook signature"})
			return
		}
	}

	db, exists := c.Get("db")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database connection not found"})
		return
	}
	gormDB := db.(*gorm.DB)

	event, err := payments.HandleWebhook(gormDB, body)
	if err != nil {
		if errors.Is(err, payments.ErrMalformedWebhook) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed webhook payload"})
			return
		}
		log.Error().Err(err).Str("event", event).Msg("webhook processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook processing failed"})
		return
	}

	log.Info().Str("event", event).Msg("webhook processed")
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RetryPayment opens a fresh gateway order for an unpaid order and
// re-arms the session's pending-order marker so the callback can find it.
func RetryPayment(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	order := findUserOrder(c, gormDB)
	if order == nil {
		return
	}

	gw := middleware.GetGatewayClient(c)
	if gw == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Payment gateway not configured.")
		return
	}

	result, err := payments.Retry(c.Request.Context(), gormDB, gw, order)
	if err != nil {
		if errors.Is(err, payments.ErrAlreadyPaid) {
			c.JSON(http.StatusOK, gin.H{
				"status":   "paid",
				"order_id": order.OrderID,
				"message":  "Order is already paid.",
			})
			return
		}
		log.Error().Err(err).Str("order_id", order.OrderID).Msg("payment retry failed")
		helpers.RespondWithError(c, http.StatusBadGateway, "Failed to initiate payment. Please try again.")
		return
	}

	store := middleware.GetCartStore(c)
	token := middleware.GetCartToken(c)
	if err := store.SetPendingOrder(c.Request.Context(), token, order.ID); err != nil {
		log.Warn().Err(err).Str("order_id", order.OrderID).Msg("failed to set pending order marker")
	}

	c.JSON(http.StatusOK, gin.H{
		"status":           "initiated",
		"order_id":         order.OrderID,
		"gateway_order_id": result.GatewayOrderID,
		"key_id":           result.KeyID,
		"amount":           result.AmountPaise,
		"currency":         result.Currency,
		"callback_url":     "/v1/payments/callback",
	})
}
