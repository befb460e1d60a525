package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrCouponNotFound     = errors.New("coupon not found")
	ErrCouponOutOfWindow  = errors.New("coupon is not active or outside its validity window")
	ErrCouponUsageLimit   = errors.New("coupon has reached its usage limit")
	ErrCouponBelowMinimum = errors.New("cart total is below the coupon minimum order value")
)

type Coupon struct {
	ID              uuid.UUID        `gorm:"type:uuid;primary_key"`
	Code            string           `gorm:"unique;not null"`
	DiscountPercent int              `gorm:"not null"`
	MinOrderValue   decimal.Decimal  `gorm:"type:numeric(10,2);not null;default:0"`
	MaxDiscount     *decimal.Decimal `gorm:"type:numeric(10,2)"`
	ValidFrom       time.Time        `gorm:"not null"`
	ValidTo         time.Time        `gorm:"not null"`
	UsageLimit      int              `gorm:"not null;default:100"`
	UsedCount       int              `gorm:"not null;default:0"`
	IsActive        bool             `gorm:"not null;default:true"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (coupon *Coupon) BeforeCreate(tx *gorm.DB) (err error) {
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	return
}

// ValidateFor checks whether the coupon may be applied to a cart of the
// given total at the given instant. It never mutates the coupon;
// used_count is only incremented when an order is actually placed.
func (coupon *Coupon) ValidateFor(cartTotal decimal.Decimal, now time.Time) error {
	if !coupon.IsActive || now.Before(coupon.ValidFrom) || now.After(coupon.ValidTo) {
		return ErrCouponOutOfWindow
	}
	if coupon.UsedCount >= coupon.UsageLimit {
		return ErrCouponUsageLimit
	}
	if cartTotal.LessThan(coupon.MinOrderValue) {
		return ErrCouponBelowMinimum
	}
	return nil
}

// DiscountOn computes the discount amount for the given total, capped at
// MaxDiscount when one is set.
func (coupon *Coupon) DiscountOn(total decimal.Decimal) decimal.Decimal {
	discount := total.Mul(decimal.NewFromInt(int64(coupon.DiscountPercent))).Div(decimal.NewFromInt(100))
	if coupon.MaxDiscount != nil && discount.GreaterThan(*coupon.MaxDiscount) {
		discount = *coupon.MaxDiscount
	}
	return discount
}

// FindCouponByCode looks a coupon up case-insensitively.
func FindCouponByCode(db *gorm.DB, code string) (*Coupon, error) {
	var coupon Coupon
	if err := db.Where("LOWER(code) = LOWER(?)", code).First(&coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}
	return &coupon, nil
}
