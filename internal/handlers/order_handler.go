package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"github.com/florakart/florakart/internal/helpers"
	"github.com/florakart/florakart/internal/middleware"
	"github.com/florakart/florakart/internal/models"
	"github.com/florakart/florakart/internal/orders"
)

type CheckoutRequest struct {
	AddressID           uuid.UUID `json:"address_id" binding:"required"`
	DeliveryDate        string    `json:"delivery_date"`
	DeliveryTimeSlot    string    `json:"delivery_time_slot"`
	SpecialInstructions string    `json:"special_instructions"`
	IsGift              bool      `json:"is_gift"`
	GiftMessage         string    `json:"gift_message"`
	PaymentMethod       string    `json:"payment_method"`
}

func Checkout(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}
	userUUID := userID.(uuid.UUID)

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	settings, err := models.LoadShopSettings(gormDB)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to load shop settings.")
		return
	}
	if !settings.StoreOpen {
		helpers.RespondWithError(c, http.StatusServiceUnavailable, "The store is currently closed.")
		return
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = models.PaymentMethodRazorpay
	}
	if paymentMethod == models.PaymentMethodCOD && !settings.EnableCOD {
		helpers.RespondWithError(c, http.StatusBadRequest, "Cash on Delivery is currently not available.")
		return
	}

	store := middleware.GetCartStore(c)
	token := middleware.GetCartToken(c)

	cartState, err := store.Load(c.Request.Context(), token)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to load cart.")
		return
	}
	if cartState.IsEmpty() {
		helpers.RespondWithError(c, http.StatusBadRequest, "Your cart is empty!")
		return
	}

	var user models.User
	if err := gormDB.First(&user, userUUID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "User not found.")
		return
	}

	var address models.Address
	if err := gormDB.Where("id = ? AND user_id = ?", req.AddressID, userUUID).First(&address).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Address not found.")
		return
	}

	var deliveryDate *time.Time
	if req.DeliveryDate != "" {
		parsed, err := time.Parse("2006-01-02", req.DeliveryDate)
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid delivery date. Use YYYY-MM-DD.")
			return
		}
		deliveryDate = &parsed
	}

	coupon := appliedCoupon(c, gormDB)

	order, err := orders.PlaceOrder(gormDB, settings, orders.PlaceOrderInput{
		User:                user,
		Address:             address,
		Cart:                cartState,
		Coupon:              coupon,
		DeliveryDate:        deliveryDate,
		DeliveryTimeSlot:    req.DeliveryTimeSlot,
		SpecialInstructions: req.SpecialInstructions,
		IsGift:              req.IsGift,
		GiftMessage:         req.GiftMessage,
		PaymentMethod:       paymentMethod,
	})
	if err != nil {
		switch {
		case errors.Is(err, orders.ErrInsufficientStock):
			helpers.RespondWithError(c, http.StatusConflict, "One or more items in your cart are out of stock.")
		case errors.Is(err, models.ErrCouponUsageLimit):
			helpers.RespondWithError(c, http.StatusBadRequest, "This coupon has reached its usage limit.")
		case errors.Is(err, orders.ErrEmptyCart):
			helpers.RespondWithError(c, http.StatusBadRequest, "Your cart is empty!")
		default:
			helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to place order.")
		}
		return
	}

	// The cart and coupon are spent; the pending-order marker hands the
	// session over to the payment flow for gateway-paid orders. The order
	// is already durable, so session-store failures are logged rather
	// than surfaced; the retry endpoint recovers a lost marker.
	if err := store.ClearCart(c.Request.Context(), token); err != nil {
		log.Warn().Err(err).Str("order_id", order.OrderID).Msg("failed to clear cart after placement")
	}
	if err := store.ClearCoupon(c.Request.Context(), token); err != nil {
		log.Warn().Err(err).Str("order_id", order.OrderID).Msg("failed to clear coupon after placement")
	}
	paymentRequired := order.PaymentMethod != models.PaymentMethodCOD
	if paymentRequired {
		if err := store.SetPendingOrder(c.Request.Context(), token, order.ID); err != nil {
			log.Warn().Err(err).Str("order_id", order.OrderID).Msg("failed to set pending order marker")
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":          "Order placed successfully.",
		"order_id":         order.OrderID,
		"status":           order.Status,
		"total":            order.Total,
		"payment_required": paymentRequired,
	})
}

func findUserOrder(c *gin.Context, gormDB *gorm.DB) *models.Order {
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return nil
	}

	var order models.Order
	if err := gormDB.Where("order_id = ? AND user_id = ?", c.Param("orderId"), userID.(uuid.UUID)).First(&order).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Order not found.")
		return nil
	}
	return &order
}

func ListOrders(c *gin.Context) {
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

	var userOrders []models.Order
	if err := gormDB.Preload("Items").Where("user_id = ?", userID.(uuid.UUID)).
		Order("created_at DESC").Find(&userOrders).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to list orders.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": userOrders})
}

func GetOrder(c *gin.Context) {
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
	if err := gormDB.Preload("Items").Preload("Payments").First(order, order.ID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to load order.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

func TrackOrder(c *gin.Context) {
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

	var tracking []models.OrderTracking
	if err := gormDB.Where("order_ref = ?", order.ID).Order("created_at DESC").Find(&tracking).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to load tracking history.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id": order.OrderID,
		"status":   order.Status,
		"tracking": tracking,
	})
}

func CancelOrder(c *gin.Context) {
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

	if err := orders.Cancel(gormDB, order); err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			helpers.RespondWithError(c, http.StatusBadRequest, "This order cannot be cancelled.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to cancel order.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order cancelled successfully.",
		"status":  order.Status,
	})
}

func orderQRSignature(orderID string, userID uuid.UUID, secretKey string) string {
	data := fmt.Sprintf("%s:%s", orderID, userID.String())
	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// OrderQR renders a signed QR code that resolves to the order's tracking
// trail; the delivery partner scans it at handover.
func OrderQR(c *gin.Context) {
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

	signature := orderQRSignature(order.OrderID, order.UserID, os.Getenv("JWT_SECRET"))
	qrData := fmt.Sprintf("order:%s;status:%s;signature:%s", order.OrderID, order.Status, signature)

	qrImage, err := qrcode.Encode(qrData, qrcode.Medium, 256)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate QR code.")
		return
	}

	c.Data(http.StatusOK, "image/png", qrImage)
}

// CheckPincode reports delivery availability for a pincode.
func CheckPincode(c *gin.Context) {
	pincode := c.Query("pincode")

	if len(pincode) != 6 {
		c.JSON(http.StatusOK, gin.H{
			"available": false,
			"message":   "Please enter a valid 6-digit pincode.",
		})
		return
	}
	value, err := strconv.Atoi(pincode)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"available": false,
			"message":   "Please enter a valid 6-digit pincode.",
		})
		return
	}

	servicedPincodes := map[string]bool{
		"110001": true, "110002": true, "110003": true,
		"400001": true, "400002": true,
		"560001": true, "560002": true,
	}
	available := servicedPincodes[pincode] || value%2 == 0

	response := gin.H{"available": available}
	if available {
		response["message"] = "Delivery available!"
		response["delivery_days"] = "2-3 days"
	} else {
		response["message"] = "Sorry, delivery not available in this area."
	}
	c.JSON(http.StatusOK, response)
}
