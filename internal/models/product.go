package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Category struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	Name        string    `gorm:"not null"`
	Slug        string    `gorm:"unique;not null"`
	Occasion    string    `gorm:"not null;default:'everyday'"`
	Description string
	IsActive    bool `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (category *Category) BeforeCreate(tx *gorm.DB) (err error) {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	return
}

type Product struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key"`
	CategoryID       uuid.UUID `gorm:"type:uuid;not null;index"`
	Category         Category
	Name             string `gorm:"not null"`
	Slug             string `gorm:"unique;not null"`
	Description      string
	Price            decimal.Decimal  `gorm:"type:numeric(10,2);not null"`
	DiscountPrice    *decimal.Decimal `gorm:"type:numeric(10,2)"`
	Size             string           `gorm:"not null;default:'medium'"`
	Stock            int              `gorm:"not null;default:10"`
	IsAvailable      bool             `gorm:"not null;default:true"`
	IsFeatured       bool             `gorm:"not null;default:false"`
	SameDayDelivery  bool             `gorm:"not null;default:true"`
	DeliveryTime     string           `gorm:"default:'2-4 hours'"`
	CareInstructions string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

func (product *Product) BeforeCreate(tx *gorm.DB) (err error) {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	return
}

// FinalPrice is the price the customer pays right now: the discounted
// price when one is set, the list price otherwise.
func (product *Product) FinalPrice() decimal.Decimal {
	if product.DiscountPrice != nil {
		return *product.DiscountPrice
	}
	return product.Price
}

func (product *Product) InStock() bool {
	return product.Stock > 0 && product.IsAvailable
}
