package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	OrderStatusPending        = "pending"
	OrderStatusConfirmed      = "confirmed"
	OrderStatusProcessing     = "processing"
	OrderStatusOutForDelivery = "out_for_delivery"
	OrderStatusDelivered      = "delivered"
	OrderStatusCancelled      = "cancelled"
	OrderStatusRefunded       = "refunded"
)

const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

const (
	PaymentMethodCOD      = "cod"
	PaymentMethodRazorpay = "razorpay"
)

var ErrInvalidTransition = errors.New("invalid order status transition")

// orderTransitions is the customer-facing status graph: forward movement
// through the fulfilment chain, cancellation while the order has not
// started processing, refund once money has changed hands. Staff
// overrides via the management console bypass this table.
var orderTransitions = map[string][]string{
	OrderStatusPending:        {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:      {OrderStatusProcessing, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusProcessing:     {OrderStatusOutForDelivery, OrderStatusRefunded},
	OrderStatusOutForDelivery: {OrderStatusDelivered, OrderStatusRefunded},
	OrderStatusDelivered:      {OrderStatusRefunded},
}

func CanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsKnownOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusOutForDelivery, OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// TrackingMessage returns the canned tracking title and description shown
// to the customer when an order enters the given status.
func TrackingMessage(status string) (string, string) {
	switch status {
	case OrderStatusPending:
		return "Order Pending", "Order is waiting to be processed."
	case OrderStatusConfirmed:
		return "Order Confirmed", "Your order has been confirmed and is being processed."
	case OrderStatusProcessing:
		return "Order Processing", "Your beautiful arrangement is being prepared with care."
	case OrderStatusOutForDelivery:
		return "Out for Delivery", "Your flowers are on the way! Our delivery partner will reach you soon."
	case OrderStatusDelivered:
		return "Delivered", "Your order has been delivered successfully. Enjoy your flowers!"
	case OrderStatusCancelled:
		return "Order Cancelled", "Your order has been cancelled."
	case OrderStatusRefunded:
		return "Order Refunded", "Your payment has been refunded."
	}
	return "", ""
}

type Order struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderID string    `gorm:"unique;not null"`
	UserID  uuid.UUID `gorm:"type:uuid;not null;index"`
	User    *User     `gorm:"foreignKey:UserID"`

	// Delivery address copied at checkout so later address edits never
	// rewrite order history.
	FullName     string `gorm:"not null"`
	Email        string `gorm:"not null"`
	Phone        string `gorm:"not null"`
	AddressLine1 string `gorm:"not null"`
	AddressLine2 string
	Landmark     string
	City         string `gorm:"not null"`
	State        string `gorm:"not null"`
	Pincode      string `gorm:"not null"`

	Subtotal       decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Discount       decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0"`
	DeliveryCharge decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0"`
	Total          decimal.Decimal `gorm:"type:numeric(10,2);not null"`

	CouponCode     string
	CouponDiscount decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0"`

	Status        string `gorm:"not null;default:'pending'"`
	PaymentStatus string `gorm:"not null;default:'pending'"`
	PaymentMethod string `gorm:"not null;default:'razorpay'"`

	GatewayOrderID   string `gorm:"index"`
	GatewayPaymentID string
	GatewaySignature string

	DeliveryDate        *time.Time
	DeliveryTimeSlot    string
	SpecialInstructions string
	IsGift              bool `gorm:"not null;default:false"`
	GiftMessage         string

	Items    []OrderItem     `gorm:"foreignKey:OrderRef;constraint:OnDelete:CASCADE"`
	Tracking []OrderTracking `gorm:"foreignKey:OrderRef;constraint:OnDelete:CASCADE"`
	Payments []Payment       `gorm:"foreignKey:OrderRef;constraint:OnDelete:CASCADE"`

	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeliveredAt *time.Time
}

func (order *Order) BeforeCreate(tx *gorm.DB) (err error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.OrderID == "" {
		order.OrderID = NewOrderNumber()
	}
	return
}

// NewOrderNumber generates a customer-facing order number like FS3F2A91C4.
func NewOrderNumber() string {
	return fmt.Sprintf("FS%s", strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8]))
}

type OrderItem struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderRef uuid.UUID `gorm:"type:uuid;not null;index"`

	// ProductID is nullable: the catalog row may be deleted later while
	// the snapshot below keeps the order history intact.
	ProductID   *uuid.UUID      `gorm:"type:uuid"`
	Product     *Product        `gorm:"foreignKey:ProductID"`
	ProductName string          `gorm:"not null"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Quantity    int             `gorm:"not null;default:1"`
	CreatedAt   time.Time
}

func (item *OrderItem) BeforeCreate(tx *gorm.DB) (err error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return
}

func (item *OrderItem) LineTotal() decimal.Decimal {
	return item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// OrderTracking rows are append-only; they are never updated or deleted.
type OrderTracking struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderRef    uuid.UUID `gorm:"type:uuid;not null;index"`
	Status      string    `gorm:"not null"`
	Description string
	Location    string
	CreatedAt   time.Time
}

func (tracking *OrderTracking) BeforeCreate(tx *gorm.DB) (err error) {
	if tracking.ID == uuid.Nil {
		tracking.ID = uuid.New()
	}
	return
}
