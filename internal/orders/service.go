package orders

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/florakart/florakart/internal/cart"
	"github.com/florakart/florakart/internal/models"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInsufficientStock = errors.New("insufficient stock for a product in the cart")
	ErrUnknownStatus     = errors.New("unknown order status")
)

type PlaceOrderInput struct {
	User                models.User
	Address             models.Address
	Cart                *cart.Cart
	Coupon              *models.Coupon
	DeliveryDate        *time.Time
	DeliveryTimeSlot    string
	SpecialInstructions string
	IsGift              bool
	GiftMessage         string
	PaymentMethod       string
}

// PlaceOrder turns a session cart into a durable order. Everything
// happens in a single transaction: the order row, item snapshots, stock
// reservation, coupon redemption and the first tracking event either all
// persist or none do. Stock is reserved with a guarded atomic decrement;
// any short line aborts the whole placement rather than partially
// reserving.
func PlaceOrder(db *gorm.DB, settings models.ShopSettings, in PlaceOrderInput) (*models.Order, error) {
	if in.Cart == nil || in.Cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	subtotal := in.Cart.TotalPrice()
	discount := in.Cart.DiscountFor(in.Coupon)
	deliveryCharge := settings.StandardDeliveryCharge
	if subtotal.GreaterThanOrEqual(settings.FreeDeliveryThreshold) {
		deliveryCharge = decimal.Zero
	}
	total := subtotal.Sub(discount).Add(deliveryCharge)

	order := &models.Order{
		UserID:              in.User.ID,
		FullName:            in.Address.FullName,
		Email:               in.User.Email,
		Phone:               in.Address.Phone,
		AddressLine1:        in.Address.AddressLine1,
		AddressLine2:        in.Address.AddressLine2,
		Landmark:            in.Address.Landmark,
		City:                in.Address.City,
		State:               in.Address.State,
		Pincode:             in.Address.Pincode,
		Subtotal:            subtotal,
		Discount:            discount,
		DeliveryCharge:      deliveryCharge,
		Total:               total,
		CouponDiscount:      discount,
		Status:              models.OrderStatusPending,
		PaymentStatus:       models.PaymentStatusPending,
		PaymentMethod:       in.PaymentMethod,
		DeliveryDate:        in.DeliveryDate,
		DeliveryTimeSlot:    in.DeliveryTimeSlot,
		SpecialInstructions: in.SpecialInstructions,
		IsGift:              in.IsGift,
		GiftMessage:         in.GiftMessage,
	}
	if in.Coupon != nil {
		order.CouponCode = in.Coupon.Code
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for _, entry := range in.Cart.Items {
			result := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", entry.ProductID, entry.Quantity).
				UpdateColumn("stock", gorm.Expr("stock - ?", entry.Quantity))
			if result.Error != nil {
				return fmt.Errorf("failed to reserve stock: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				return ErrInsufficientStock
			}

			productID := entry.ProductID
			item := models.OrderItem{
				OrderRef:    order.ID,
				ProductID:   &productID,
				ProductName: entry.ProductName,
				Price:       entry.UnitPrice,
				Quantity:    entry.Quantity,
			}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}
			order.Items = append(order.Items, item)
		}

		if in.Coupon != nil {
			// Guarded atomic increment: a coupon that filled up between
			// validation and placement fails the order instead of
			// overselling.
			result := tx.Model(&models.Coupon{}).
				Where("id = ? AND used_count < usage_limit", in.Coupon.ID).
				UpdateColumn("used_count", gorm.Expr("used_count + 1"))
			if result.Error != nil {
				return fmt.Errorf("failed to redeem coupon: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				return models.ErrCouponUsageLimit
			}
		}

		placed := models.OrderTracking{
			OrderRef:    order.ID,
			Status:      "Order Placed",
			Description: "Your order has been placed successfully.",
		}
		if err := tx.Create(&placed).Error; err != nil {
			return fmt.Errorf("failed to create tracking entry: %w", err)
		}

		if in.PaymentMethod == models.PaymentMethodCOD {
			order.Status = models.OrderStatusConfirmed
			if err := tx.Model(order).Update("status", models.OrderStatusConfirmed).Error; err != nil {
				return fmt.Errorf("failed to confirm order: %w", err)
			}
			confirmed := models.OrderTracking{
				OrderRef:    order.ID,
				Status:      "Order Confirmed",
				Description: "Your order has been confirmed. We will deliver it on the scheduled date.",
			}
			if err := tx.Create(&confirmed).Error; err != nil {
				return fmt.Errorf("failed to create tracking entry: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Cancel cancels an order that has not started processing, restoring the
// stock of every line item.
func Cancel(db *gorm.DB, order *models.Order) error {
	if !models.CanTransition(order.Status, models.OrderStatusCancelled) {
		return models.ErrInvalidTransition
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var items []models.OrderItem
		if err := tx.Where("order_ref = ?", order.ID).Find(&items).Error; err != nil {
			return fmt.Errorf("failed to load order items: %w", err)
		}

		for _, item := range items {
			if item.ProductID == nil {
				continue
			}
			result := tx.Model(&models.Product{}).
				Where("id = ?", *item.ProductID).
				UpdateColumn("stock", gorm.Expr("stock + ?", item.Quantity))
			if result.Error != nil {
				return fmt.Errorf("failed to restore stock: %w", result.Error)
			}
		}

		order.Status = models.OrderStatusCancelled
		if err := tx.Model(order).Update("status", models.OrderStatusCancelled).Error; err != nil {
			return fmt.Errorf("failed to cancel order: %w", err)
		}

		cancelled := models.OrderTracking{
			OrderRef:    order.ID,
			Status:      "Order Cancelled",
			Description: "Order has been cancelled by the customer.",
		}
		if err := tx.Create(&cancelled).Error; err != nil {
			return fmt.Errorf("failed to create tracking entry: %w", err)
		}
		return nil
	})
}

// UpdateStatus is the staff override: any known status is reachable from
// any other, matching how the management console has always behaved.
// DeliveredAt is stamped exactly once, on first entry into delivered. A
// tracking event with the canned description (or the supplied notes) is
// always appended.
func UpdateStatus(db *gorm.DB, order *models.Order, newStatus, notes string) error {
	if !models.IsKnownOrderStatus(newStatus) {
		return ErrUnknownStatus
	}
	if newStatus == order.Status {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"status": newStatus}
		if newStatus == models.OrderStatusDelivered && order.DeliveredAt == nil {
			now := time.Now()
			order.DeliveredAt = &now
			updates["delivered_at"] = now
		}
		if err := tx.Model(order).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		order.Status = newStatus

		title, description := models.TrackingMessage(newStatus)
		if notes != "" {
			description = notes
		}
		tracking := models.OrderTracking{
			OrderRef:    order.ID,
			Status:      title,
			Description: description,
		}
		if err := tx.Create(&tracking).Error; err != nil {
			return fmt.Errorf("failed to create tracking entry: %w", err)
		}
		return nil
	})
}

// AddTracking appends a custom staff-entered tracking event.
func AddTracking(db *gorm.DB, order *models.Order, status, description, location string) error {
	tracking := models.OrderTracking{
		OrderRef:    order.ID,
		Status:      status,
		Description: description,
		Location:    location,
	}
	if err := db.Create(&tracking).Error; err != nil {
		return fmt.Errorf("failed to create tracking entry: %w", err)
	}
	return nil
}
