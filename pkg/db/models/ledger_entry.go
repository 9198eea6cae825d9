package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/tradepost/tradepost-backend/pkg/enums"
)

// LedgerEntry records an immutable money movement tied to an order.
type LedgerEntry struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID             `gorm:"column:order_id;type:uuid;not null"`
	BuyerID     uuid.UUID             `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID    uuid.UUID             `gorm:"column:seller_id;type:uuid;not null"`
	ActorID     uuid.UUID             `gorm:"column:actor_id;type:uuid;not null"`
	Type        enums.LedgerEntryType `gorm:"column:type;type:ledger_entry_type;not null"`
	AmountCents int64                 `gorm:"column:amount_cents;not null"`
	FeeCents    int64                 `gorm:"column:fee_cents;not null;default:0"`
	Reference   *string               `gorm:"column:reference"`
	Metadata    json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
