package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Address struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index"`
	User           *User     `gorm:"foreignKey:UserID"`
	AddressType    string    `gorm:"not null;default:'home'"`
	FullName       string    `gorm:"not null"`
	Phone          string    `gorm:"not null"`
	AlternatePhone string
	AddressLine1   string `gorm:"not null"`
	AddressLine2   string
	Landmark       string
	City           string `gorm:"not null"`
	State          string `gorm:"not null"`
	Pincode        string `gorm:"not null"`
	IsDefault      bool   `gorm:"not null;default:false"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (address *Address) BeforeCreate(tx *gorm.DB) (err error) {
	if address.ID == uuid.Nil {
		address.ID = uuid.New()
	}
	return
}
