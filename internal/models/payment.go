package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	PaymentRecordInitiated = "initiated"
	PaymentRecordPending   = "pending"
	PaymentRecordCompleted = "completed"
	PaymentRecordFailed    = "failed"
	PaymentRecordRefunded  = "refunded"
)

// Payment is one gateway attempt against an order. An order can carry
// several of these; failed attempts are kept for the audit trail.
type Payment struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderRef uuid.UUID `gorm:"type:uuid;not null;index"`
	Order    *Order    `gorm:"foreignKey:OrderRef"`

	Gateway       string          `gorm:"not null"`
	TransactionID string
	Amount        decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Currency      string          `gorm:"not null;default:'INR'"`
	Status        string          `gorm:"not null;default:'initiated'"`

	GatewayOrderID   string `gorm:"index"`
	GatewayPaymentID string
	GatewaySignature string

	ResponseData string
	ErrorMessage string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (payment *Payment) BeforeCreate(tx *gorm.DB) (err error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return
}
