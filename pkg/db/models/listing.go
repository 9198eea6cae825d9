package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tradepost/tradepost-backend/pkg/enums"
)

// Listing is a seller's item offered for sale.
type Listing struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID   uuid.UUID           `gorm:"column:seller_id;type:uuid;not null"`
	Title      string              `gorm:"column:title;not null"`
	PriceCents int64               `gorm:"column:price_cents;not null"`
	Currency   enums.Currency      `gorm:"column:currency;type:text;not null;default:'usd'"`
	Status     enums.ListingStatus `gorm:"column:status;type:listing_status;not null;default:'active'"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
