package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tradepost/tradepost-backend/pkg/enums"
)

// Order tracks the escrow lifecycle of a single listing purchase.
type Order struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ListingID         uuid.UUID            `gorm:"column:listing_id;type:uuid;not null"`
	BuyerID           uuid.UUID            `gorm:"column:buyer_id;type:uuid;not null"`
	AmountCents       int64                `gorm:"column:amount_cents;not null"`
	Currency          enums.Currency       `gorm:"column:currency;type:text;not null;default:'usd'"`
	Status            enums.OrderStatus    `gorm:"column:status;type:order_status;not null;default:'pending'"`
	DeliveryStatus    enums.DeliveryStatus `gorm:"column:delivery_status;type:delivery_status;not null;default:'unshipped'"`
	CheckoutSessionID *string              `gorm:"column:checkout_session_id"`
	PaymentReference  *string              `gorm:"column:payment_reference"`
	ReleaseReference  *string              `gorm:"column:release_reference"`
	RefundedCents     int64                `gorm:"column:refunded_cents;not null;default:0"`
	RefundReason      *string              `gorm:"column:refund_reason"`
	PaidAt            *time.Time           `gorm:"column:paid_at"`
	ShippedAt         *time.Time           `gorm:"column:shipped_at"`
	DeliveredAt       *time.Time           `gorm:"column:delivered_at"`
	ConfirmedAt       *time.Time           `gorm:"column:confirmed_at"`
	ReleasedAt        *time.Time           `gorm:"column:released_at"`
	RefundedAt        *time.Time           `gorm:"column:refunded_at"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
