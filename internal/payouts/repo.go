package payouts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradepost/tradepost-backend/pkg/db/models"
	pkgerrors "github.com/tradepost/tradepost-backend/pkg/errors"
)

// Repository looks up seller payout destinations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, account *models.PayoutAccount) (*models.PayoutAccount, error)
	FindBySeller(ctx context.Context, sellerID uuid.UUID) (*models.PayoutAccount, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payouts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Upsert(ctx context.Context, account *models.PayoutAccount) (*models.PayoutAccount, error) {
	existing, err := r.FindBySeller(ctx, account.SellerID)
	if err != nil && pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		return nil, err
	}
	if existing != nil {
		existing.DestinationID = account.DestinationID
		existing.OnboardedAt = account.OnboardedAt
		if err := r.db.WithContext(ctx).Save(existing).Error; err != nil {
			return nil, err
		}
		return existing, nil
	}
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		return nil, err
	}
	return account, nil
}

func (r *repository) FindBySeller(ctx context.Context, sellerID uuid.UUID) (*models.PayoutAccount, error) {
	var account models.PayoutAccount
	err := r.db.WithContext(ctx).Where("seller_id = ?", sellerID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout account not found")
		}
		return nil, err
	}
	return &account, nil
}
