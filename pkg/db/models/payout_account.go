package models

import (
	"time"

	"github.com/google/uuid"
)

// PayoutAccount links a seller to a gateway payout destination.
// DestinationID is empty until the seller finishes gateway onboarding.
type PayoutAccount struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID      uuid.UUID  `gorm:"column:seller_id;type:uuid;not null;uniqueIndex"`
	DestinationID string     `gorm:"column:destination_id;not null;default:''"`
	OnboardedAt   *time.Time `gorm:"column:onboarded_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// Onboarded reports whether the account can receive transfers.
func (p PayoutAccount) Onboarded() bool {
	return p.DestinationID != "" && p.OnboardedAt != nil
}
