package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradepost/tradepost-backend/pkg/db"
	"github.com/tradepost/tradepost-backend/pkg/db/models"
	"github.com/tradepost/tradepost-backend/pkg/enums"
	pkgerrors "github.com/tradepost/tradepost-backend/pkg/errors"
	"github.com/tradepost/tradepost-backend/pkg/pagination"
)

// ActiveListingConstraint is the partial unique index guaranteeing at most one
// order in the escrow pipeline per listing.
const ActiveListingConstraint = "uq_orders_active_listing"

// Repository persists orders. Every status transition is a conditional update
// keyed on the expected prior state; callers learn via the returned bool
// whether their write won.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByCheckoutSession(ctx context.Context, sessionID string) (*models.Order, error)
	FindByPaymentReference(ctx context.Context, reference string) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Order, string, error)

	SetCheckoutSession(ctx context.Context, id uuid.UUID, sessionID string) error

	// MarkHeld promotes pending -> held, recording the payment reference.
	MarkHeld(ctx context.Context, id uuid.UUID, paymentReference string, paidAt time.Time) (bool, error)
	// MarkPaid promotes held -> paid once the seller transfer succeeded.
	MarkPaid(ctx context.Context, id uuid.UUID, releaseReference string, releasedAt time.Time) (bool, error)
	// MarkRefunded moves held or paid -> refunded.
	MarkRefunded(ctx context.Context, id uuid.UUID, refundedCents int64, reason *string, refundedAt time.Time) (bool, error)
	// AdvanceDelivery moves the delivery axis one step, keyed on the expected
	// prior sub-state.
	AdvanceDelivery(ctx context.Context, id uuid.UUID, from, to enums.DeliveryStatus, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		if db.IsUniqueViolation(err, ActiveListingConstraint) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "listing already has an active order")
		}
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByCheckoutSession(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("checkout_session_id = ?", sessionID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByPaymentReference(ctx context.Context, reference string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("payment_reference = ?", reference).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	query := r.db.WithContext(ctx).Where("buyer_id = ?", buyerID)
	return r.paginate(query, params)
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	query := r.db.WithContext(ctx).
		Joins("JOIN listings ON listings.id = orders.listing_id").
		Where("listings.seller_id = ?", sellerID)
	return r.paginate(query, params)
}

func (r *repository) paginate(query *gorm.DB, params pagination.Params) ([]models.Order, string, error) {
	cursor, err := pagination.DecodeCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		query = query.Where(
			"(orders.created_at, orders.id) < (?, ?)",
			cursor.CreatedAt, cursor.ID,
		)
	}

	limit := pagination.ClampLimit(params.Limit)
	var rows []models.Order
	err = query.
		Order("orders.created_at DESC, orders.id DESC").
		Limit(pagination.FetchLimit(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, "", err
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	return rows, next, nil
}

func (r *repository) SetCheckoutSession(ctx context.Context, id uuid.UUID, sessionID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("checkout_session_id", sessionID).Error
}

func (r *repository) MarkHeld(ctx context.Context, id uuid.UUID, paymentReference string, paidAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPending).
		Updates(map[string]any{
			"status":            enums.OrderStatusHeld,
			"payment_reference": paymentReference,
			"paid_at":           paidAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID, releaseReference string, releasedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusHeld).
		Updates(map[string]any{
			"status":            enums.OrderStatusPaid,
			"release_reference": releaseReference,
			"released_at":       releasedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkRefunded(ctx context.Context, id uuid.UUID, refundedCents int64, reason *string, refundedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, []enums.OrderStatus{enums.OrderStatusHeld, enums.OrderStatusPaid}).
		Updates(map[string]any{
			"status":         enums.OrderStatusRefunded,
			"refunded_cents": refundedCents,
			"refund_reason":  reason,
			"refunded_at":    refundedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) AdvanceDelivery(ctx context.Context, id uuid.UUID, from, to enums.DeliveryStatus, at time.Time) (bool, error) {
	updates := map[string]any{"delivery_status": to}
	switch to {
	case enums.DeliveryStatusShipped:
		updates["shipped_at"] = at
	case enums.DeliveryStatusDelivered:
		updates["delivered_at"] = at
	case enums.DeliveryStatusConfirmed:
		updates["confirmed_at"] = at
	}

	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND delivery_status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
