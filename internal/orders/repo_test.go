package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tradepost/tradepost-backend/pkg/db/models"
	"github.com/tradepost/tradepost-backend/pkg/enums"
	pkgerrors "github.com/tradepost/tradepost-backend/pkg/errors"
	"github.com/tradepost/tradepost-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	listings := `
CREATE TABLE IF NOT EXISTS listings (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  title TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'usd',
  status TEXT NOT NULL DEFAULT 'active',
  created_at DATETIME,
  updated_at DATETIME
);`
	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  listing_id TEXT NOT NULL,
  buyer_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'usd',
  status TEXT NOT NULL DEFAULT 'pending',
  delivery_status TEXT NOT NULL DEFAULT 'unshipped',
  checkout_session_id TEXT,
  payment_reference TEXT,
  release_reference TEXT,
  refunded_cents INTEGER NOT NULL DEFAULT 0,
  refund_reason TEXT,
  paid_at DATETIME,
  shipped_at DATETIME,
  delivered_at DATETIME,
  confirmed_at DATETIME,
  released_at DATETIME,
  refunded_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	activeIndex := `
CREATE UNIQUE INDEX IF NOT EXISTS uq_orders_active_listing
  ON orders (listing_id)
  WHERE status IN ('pending', 'held', 'paid');`

	require.NoError(t, db.Exec(listings).Error)
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(activeIndex).Error)
	return db
}

func newListing(t *testing.T, db *gorm.DB, sellerID uuid.UUID) *models.Listing {
	t.Helper()

	listing := &models.Listing{
		ID:         uuid.New(),
		SellerID:   sellerID,
		Title:      "vintage synth",
		PriceCents: 125000,
		Currency:   enums.CurrencyUSD,
		Status:     enums.ListingStatusActive,
	}
	require.NoError(t, db.Create(listing).Error)
	return listing
}

func newOrder(t *testing.T, repo Repository, listing *models.Listing, buyerID uuid.UUID) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:          uuid.New(),
		ListingID:   listing.ID,
		BuyerID:     buyerID,
		AmountCents: listing.PriceCents,
		Currency:    listing.Currency,
		Status:      enums.OrderStatusPending,
	}
	created, err := repo.Create(context.Background(), order)
	require.NoError(t, err)
	return created
}

func TestRepositoryCreateAndFind(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	listing := newListing(t, db, uuid.New())
	order := newOrder(t, repo, listing, uuid.New())

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
	assert.Equal(t, enums.OrderStatusPending, found.Status)
	assert.Equal(t, enums.DeliveryStatusUnshipped, found.DeliveryStatus)

	_, err = repo.FindByID(ctx, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestRepositoryOneActiveOrderPerListing(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	listing := newListing(t, db, uuid.New())
	newOrder(t, repo, listing, uuid.New())

	_, err := repo.Create(ctx, &models.Order{
		ID:          uuid.New(),
		ListingID:   listing.ID,
		BuyerID:     uuid.New(),
		AmountCents: listing.PriceCents,
		Status:      enums.OrderStatusPending,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestRepositoryRefundedListingAcceptsNewOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	listing := newListing(t, db, uuid.New())
	first := newOrder(t, repo, listing, uuid.New())

	held, err := repo.MarkHeld(ctx, first.ID, "pi_1", time.Now())
	require.NoError(t, err)
	require.True(t, held)

	refunded, err := repo.MarkRefunded(ctx, first.ID, first.AmountCents, nil, time.Now())
	require.NoError(t, err)
	require.True(t, refunded)

	// The partial index only covers active rows, so the listing frees up.
	_, err = repo.Create(ctx, &models.Order{
		ID:          uuid.New(),
		ListingID:   listing.ID,
		BuyerID:     uuid.New(),
		AmountCents: listing.PriceCents,
		Status:      enums.OrderStatusPending,
	})
	require.NoError(t, err)
}

func TestRepositoryMarkHeldOnlyFromPending(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	listing := newListing(t, db, uuid.New())
	order := newOrder(t, repo, listing, uuid.New())
	paidAt := time.Now().UTC()

	moved, err := repo.MarkHeld(ctx, order.ID, "pi_abc", paidAt)
	require.NoError(t, err)
	assert.True(t, moved)

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusHeld, found.Status)
	require.NotNil(t, found.PaymentReference)
	assert.Equal(t, "pi_abc", *found.PaymentReference)
	assert.NotNil(t, found.PaidAt)

	// A duplicate webhook loses the conditional update.
	moved, err = repo.MarkHeld(ctx, order.ID, "pi_abc", paidAt)
	require.NoError(t, err)
	assert.False(t, moved)
}

func TestRepositoryMarkPaidOnlyFromHeld(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	listing := newListing(t, db, uuid.New())
	order := newOrder(t, repo, listing, uuid.New())

	moved, err := repo.MarkPaid(ctx, order.ID, "tr_1", time.Now())
	require.NoError(t, err)
	assert.False(t, moved, "pending order must not release")

	_, err = repo.MarkHeld(ctx, order.ID, "pi_abc", time.Now())
	require.NoError(t, err)

	moved, err = repo.MarkPaid(ctx, order.ID, "tr_1", time.Now())
	require.NoError(t, err)
	assert.True(t, moved)

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, found.Status)
	require.NotNil(t, found.ReleaseReference)
	assert.Equal(t, "tr_1", *found.ReleaseReference)

	moved, err = repo.MarkPaid(ctx, order.ID, "tr_2", time.Now())
	require.NoError(t, err)
	assert.False(t, moved, "release is not repeatable")
}

func TestRepositoryMarkRefundedFromHeldOrPaid(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	listing := newListing(t, db, uuid.New())
	order := newOrder(t, repo, listing, uuid.New())

	moved, err := repo.MarkRefunded(ctx, order.ID, order.AmountCents, nil, time.Now())
	require.NoError(t, err)
	assert.False(t, moved, "pending order has nothing to refund")

	_, err = repo.MarkHeld(ctx, order.ID, "pi_abc", time.Now())
	require.NoError(t, err)

	reason := "item not as described"
	moved, err = repo.MarkRefunded(ctx, order.ID, order.AmountCents, &reason, time.Now())
	require.NoError(t, err)
	assert.True(t, moved)

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusRefunded, found.Status)
	assert.Equal(t, order.AmountCents, found.RefundedCents)
	require.NotNil(t, found.RefundReason)
	assert.Equal(t, reason, *found.RefundReason)

	moved, err = repo.MarkRefunded(ctx, order.ID, order.AmountCents, &reason, time.Now())
	require.NoError(t, err)
	assert.False(t, moved, "refund is terminal")
}

func TestRepositoryAdvanceDelivery(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	listing := newListing(t, db, uuid.New())
	order := newOrder(t, repo, listing, uuid.New())

	// Skipping a step loses the conditional update.
	moved, err := repo.AdvanceDelivery(ctx, order.ID, enums.DeliveryStatusShipped, enums.DeliveryStatusDelivered, time.Now())
	require.NoError(t, err)
	assert.False(t, moved)

	steps := []struct {
		from enums.DeliveryStatus
		to   enums.DeliveryStatus
	}{
		{enums.DeliveryStatusUnshipped, enums.DeliveryStatusShipped},
		{enums.DeliveryStatusShipped, enums.DeliveryStatusDelivered},
		{enums.DeliveryStatusDelivered, enums.DeliveryStatusConfirmed},
	}
	for _, step := range steps {
		moved, err = repo.AdvanceDelivery(ctx, order.ID, step.from, step.to, time.Now())
		require.NoError(t, err)
		assert.True(t, moved, "step %s -> %s", step.from, step.to)
	}

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryStatusConfirmed, found.DeliveryStatus)
	assert.NotNil(t, found.ShippedAt)
	assert.NotNil(t, found.DeliveredAt)
	assert.NotNil(t, found.ConfirmedAt)
}

func TestRepositoryFindByCheckoutSessionAndPaymentReference(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	listing := newListing(t, db, uuid.New())
	order := newOrder(t, repo, listing, uuid.New())

	require.NoError(t, repo.SetCheckoutSession(ctx, order.ID, "cs_123"))

	bySession, err := repo.FindByCheckoutSession(ctx, "cs_123")
	require.NoError(t, err)
	assert.Equal(t, order.ID, bySession.ID)

	_, err = repo.MarkHeld(ctx, order.ID, "pi_456", time.Now())
	require.NoError(t, err)

	byRef, err := repo.FindByPaymentReference(ctx, "pi_456")
	require.NoError(t, err)
	assert.Equal(t, order.ID, byRef.ID)

	_, err = repo.FindByPaymentReference(ctx, "pi_missing")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestRepositoryListByBuyerPaginates(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	buyerID := uuid.New()
	sellerID := uuid.New()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		listing := newListing(t, db, sellerID)
		order := &models.Order{
			ID:          uuid.New(),
			ListingID:   listing.ID,
			BuyerID:     buyerID,
			AmountCents: listing.PriceCents,
			Status:      enums.OrderStatusPending,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		_, err := repo.Create(ctx, order)
		require.NoError(t, err)
	}

	page, next, err := repo.ListByBuyer(ctx, buyerID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotEmpty(t, next)
	assert.True(t, page[0].CreatedAt.After(page[1].CreatedAt))

	rest, next, err := repo.ListByBuyer(ctx, buyerID, pagination.Params{Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Empty(t, next)
}

func TestRepositoryListBySeller(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	sellerID := uuid.New()
	listing := newListing(t, db, sellerID)
	order := newOrder(t, repo, listing, uuid.New())

	otherListing := newListing(t, db, uuid.New())
	newOrder(t, repo, otherListing, uuid.New())

	sales, _, err := repo.ListBySeller(ctx, sellerID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, order.ID, sales[0].ID)
}
