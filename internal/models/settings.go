package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ShopSettings is the single store-configuration row. It is loaded
// explicitly where needed and passed down as a value, never cached in a
// package-level singleton.
type ShopSettings struct {
	ID                     uint            `gorm:"primary_key"`
	EnableCOD              bool            `gorm:"not null;default:true"`
	FreeDeliveryThreshold  decimal.Decimal `gorm:"type:numeric(10,2);not null;default:500"`
	StandardDeliveryCharge decimal.Decimal `gorm:"type:numeric(10,2);not null;default:50"`
	StoreOpen              bool            `gorm:"not null;default:true"`
	ContactEmail           string
	ContactPhone           string
	UpdatedAt              time.Time
}

// LoadShopSettings fetches the settings row, creating it with defaults on
// first use.
func LoadShopSettings(db *gorm.DB) (ShopSettings, error) {
	settings := ShopSettings{
		ID:                     1,
		EnableCOD:              true,
		FreeDeliveryThreshold:  decimal.NewFromInt(500),
		StandardDeliveryCharge: decimal.NewFromInt(50),
		StoreOpen:              true,
	}
	err := db.Where(ShopSettings{ID: 1}).FirstOrCreate(&settings).Error
	return settings, err
}
