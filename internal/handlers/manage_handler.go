package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/florakart/florakart/internal/helpers"
	"github.com/florakart/florakart/internal/models"
	"github.com/florakart/florakart/internal/orders"
)

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

type AddTrackingRequest struct {
	Status      string `json:"status" binding:"required"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

type UpdateSettingsRequest struct {
	EnableCOD              *bool            `json:"enable_cod"`
	FreeDeliveryThreshold  *decimal.Decimal `json:"free_delivery_threshold"`
	StandardDeliveryCharge *decimal.Decimal `json:"standard_delivery_charge"`
	StoreOpen              *bool            `json:"store_open"`
	ContactEmail           *string          `json:"contact_email"`
	ContactPhone           *string          `json:"contact_phone"`
}

type CreateCouponRequest struct {
	Code            string           `json:"code" binding:"required"`
	DiscountPercent int              `json:"discount_percent" binding:"required,min=1,max=100"`
	MinOrderValue   *decimal.Decimal `json:"min_order_value"`
	MaxDiscount     *decimal.Decimal `json:"max_discount"`
	ValidFrom       time.Time        `json:"valid_from" binding:"required"`
	ValidTo         time.Time        `json:"valid_to" binding:"required"`
	UsageLimit      int              `json:"usage_limit"`
}

func ListAllOrders(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	query := gormDB.Model(&models.Order{}).Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if payment := c.Query("payment"); payment != "" {
		query = query.Where("payment_status = ?", payment)
	}

	var allOrders []models.Order
	if err := query.Find(&allOrders).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to list orders.")
		return
	}

	counts := gin.H{}
	for _, status := range []string{
		models.OrderStatusPending, models.OrderStatusProcessing,
		models.OrderStatusOutForDelivery, models.OrderStatusDelivered,
	} {
		var count int64
		gormDB.Model(&models.Order{}).Where("status = ?", status).Count(&count)
		counts[status] = count
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": allOrders,
		"counts": counts,
	})
}

func GetOrderManage(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var order models.Order
	if err := gormDB.Preload("Items").Preload("Payments").
		Where("order_id = ?", c.Param("orderId")).First(&order).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Order not found.")
		return
	}

	var tracking []models.OrderTracking
	if err := gormDB.Where("order_ref = ?", order.ID).Order("created_at DESC").Find(&tracking).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to load tracking history.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order":    order,
		"tracking": tracking,
	})
}

func UpdateOrderStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Status is required.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var order models.Order
	if err := gormDB.Where("order_id = ?", c.Param("orderId")).First(&order).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Order not found.")
		return
	}

	if req.Status == order.Status {
		c.JSON(http.StatusOK, gin.H{"message": "No status change made."})
		return
	}

	if err := orders.UpdateStatus(gormDB, &order, req.Status, req.Notes); err != nil {
		if errors.Is(err, orders.ErrUnknownStatus) {
			helpers.RespondWithError(c, http.StatusBadRequest, "Unknown order status.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update order status.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order status updated to " + order.Status + "!",
		"status":  order.Status,
	})
}

func AddOrderTracking(c *gin.Context) {
	var req AddTrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Status is required.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var order models.Order
	if err := gormDB.Where("order_id = ?", c.Param("orderId")).First(&order).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Order not found.")
		return
	}

	if err := orders.AddTracking(gormDB, &order, req.Status, req.Description, req.Location); err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to add tracking entry.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Tracking entry added successfully!"})
}

func GetSettings(c *gin.Context) {
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

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
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

	if req.EnableCOD != nil {
		settings.EnableCOD = *req.EnableCOD
	}
	if req.FreeDeliveryThreshold != nil {
		settings.FreeDeliveryThreshold = *req.FreeDeliveryThreshold
	}
	if req.StandardDeliveryCharge != nil {
		settings.StandardDeliveryCharge = *req.StandardDeliveryCharge
	}
	if req.StoreOpen != nil {
		settings.StoreOpen = *req.StoreOpen
	}
	if req.ContactEmail != nil {
		settings.ContactEmail = *req.ContactEmail
	}
	if req.ContactPhone != nil {
		settings.ContactPhone = *req.ContactPhone
	}

	if err := gormDB.Save(&settings).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update settings.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Settings updated successfully!",
		"settings": settings,
	})
}

func CreateCoupon(c *gin.Context) {
	var req CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	if !req.ValidTo.After(req.ValidFrom) {
		helpers.RespondWithError(c, http.StatusBadRequest, "valid_to must be after valid_from.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	usageLimit := req.UsageLimit
	if usageLimit <= 0 {
		usageLimit = 100
	}
	minOrderValue := decimal.Zero
	if req.MinOrderValue != nil {
		minOrderValue = *req.MinOrderValue
	}

	coupon := models.Coupon{
		Code:            req.Code,
		DiscountPercent: req.DiscountPercent,
		MinOrderValue:   minOrderValue,
		MaxDiscount:     req.MaxDiscount,
		ValidFrom:       req.ValidFrom,
		ValidTo:         req.ValidTo,
		UsageLimit:      usageLimit,
		IsActive:        true,
	}

	if err := gormDB.Create(&coupon).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create coupon.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Coupon created successfully.",
		"coupon_id": coupon.ID,
	})
}
