package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/florakart/florakart/internal/helpers"
	"github.com/florakart/florakart/internal/middleware"
	"github.com/florakart/florakart/internal/models"
)

type AddCartItemRequest struct {
	Quantity int  `json:"quantity" binding:"required,min=1"`
	Update   bool `json:"update"`
}

type ApplyCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

// appliedCoupon loads the session's coupon, dropping it from the session
// when it is no longer valid for the current cart total.
func appliedCoupon(c *gin.Context, gormDB *gorm.DB) *models.Coupon {
	store := middleware.GetCartStore(c)
	token := middleware.GetCartToken(c)

	couponID, err := store.AppliedCoupon(c.Request.Context(), token)
	if err != nil || couponID == uuid.Nil {
		return nil
	}

	var coupon models.Coupon
	if err := gormDB.First(&coupon, couponID).Error; err != nil {
		store.ClearCoupon(c.Request.Context(), token)
		return nil
	}

	cartState, err := store.Load(c.Request.Context(), token)
	if err != nil {
		return nil
	}
	if err := coupon.ValidateFor(cartState.TotalPrice(), time.Now()); err != nil {
		store.ClearCoupon(c.Request.Context(), token)
		return nil
	}
	return &coupon
}

func CartDetail(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	store := middleware.GetCartStore(c)
	token := middleware.GetCartToken(c)

	cartState, err := store.Load(c.Request.Context(), token)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to load cart.")
		return
	}

	coupon := appliedCoupon(c, gormDB)
	total := cartState.TotalPrice()
	discount := cartState.DiscountFor(coupon)

	response := gin.H{
		"items":       cartState.Items,
		"item_count":  cartState.ItemCount(),
		"total":       total,
		"discount":    discount,
		"final_total": total.Sub(discount),
	}
	if coupon != nil {
		response["coupon"] = gin.H{
			"code":             coupon.Code,
			"discount_percent": coupon.DiscountPercent,
		}
	}
	c.JSON(http.StatusOK, response)
}

func AddCartItem(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid product ID.")
		return
	}

	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Quantity must be at least 1.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var product models.Product
	if err := gormDB.First(&product, productID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Product not found.")
		return
	}
	if !product.IsAvailable {
		helpers.RespondWithError(c, http.StatusBadRequest, "Product is not available.")
		return
	}

	store := middleware.GetCartStore(c)
	token := middleware.GetCartToken(c)

	cartState, err := store.Load(c.Request.Context(), token)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to load cart.")
		return
	}

	cartState.Add(&product, req.Quantity, req.Update)
	if err := store.Save(c.Request.Context(), token, cartState); err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to save cart.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    product.Name + " added to cart!",
		"cart_count": cartState.ItemCount(),
		"cart_total": cartState.TotalPrice(),
	})
}

func RemoveCartItem(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid product ID.")
		return
	}

	store := middleware.GetCartStore(c)
	token := middleware.GetCartToken(c)

	cartState, err := store.Load(c.Request.Context(), token)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to load cart.")
		return
	}

	cartState.Remove(productID)
	if err := store.Save(c.Request.Context(), token, cartState); err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to save cart.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Item removed from cart.",
		"cart_count": cartState.ItemCount(),
		"cart_total": cartState.TotalPrice(),
	})
}

func ClearCart(c *gin.Context) {
	store := middleware.GetCartStore(c)
	token := middleware.GetCartToken(c)

	if err := store.ClearCart(c.Request.Context(), token); err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to clear cart.")
		return
	}
	store.ClearCoupon(c.Request.Context(), token)

	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared successfully."})
}

func CartCount(c *gin.Context) {
	store := middleware.GetCartStore(c)
	token := middleware.GetCartToken(c)

	cartState, err := store.Load(c.Request.Context(), token)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to load cart.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count": cartState.ItemCount(),
		"total": cartState.TotalPrice(),
	})
}

func ApplyCoupon(c *gin.Context) {
	var req ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Coupon code is required.")
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

	cartState, err := store.Load(c.Request.Context(), token)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to load cart.")
		return
	}

	coupon, err := models.FindCouponByCode(gormDB, req.Code)
	if err != nil {
		if errors.Is(err, models.ErrCouponNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Invalid or expired coupon code.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving coupon.")
		return
	}

	if err := coupon.ValidateFor(cartState.TotalPrice(), time.Now()); err != nil {
		switch {
		case errors.Is(err, models.ErrCouponUsageLimit):
			helpers.RespondWithError(c, http.StatusBadRequest, "This coupon has reached its usage limit.")
		case errors.Is(err, models.ErrCouponBelowMinimum):
			helpers.RespondWithError(c, http.StatusBadRequest, "Minimum order value of ₹"+coupon.MinOrderValue.StringFixed(2)+" required for this coupon.")
		default:
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid or expired coupon code.")
		}
		return
	}

	if err := store.ApplyCoupon(c.Request.Context(), token, coupon.ID); err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to apply coupon.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Coupon \"" + coupon.Code + "\" applied successfully!",
		"discount": cartState.DiscountFor(coupon),
	})
}

func RemoveCoupon(c *gin.Context) {
	store := middleware.GetCartStore(c)
	token := middleware.GetCartToken(c)

	if err := store.ClearCoupon(c.Request.Context(), token); err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to remove coupon.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Coupon removed."})
}
