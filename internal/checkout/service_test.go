package checkout

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradepost/tradepost-backend/internal/gateway"
	"github.com/tradepost/tradepost-backend/internal/listings"
	"github.com/tradepost/tradepost-backend/internal/orders"
	"github.com/tradepost/tradepost-backend/pkg/config"
	"github.com/tradepost/tradepost-backend/pkg/db/models"
	"github.com/tradepost/tradepost-backend/pkg/enums"
	pkgerrors "github.com/tradepost/tradepost-backend/pkg/errors"
	"github.com/tradepost/tradepost-backend/pkg/logger"
)

type fakeTxRunner struct{}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeOrderRepo struct {
	orders.Repository

	createFn     func(ctx context.Context, order *models.Order) (*models.Order, error)
	setSessionFn func(ctx context.Context, id uuid.UUID, sessionID string) error
}

func (f *fakeOrderRepo) WithTx(tx *gorm.DB) orders.Repository { return f }

func (f *fakeOrderRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if f.createFn != nil {
		return f.createFn(ctx, order)
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return order, nil
}

func (f *fakeOrderRepo) SetCheckoutSession(ctx context.Context, id uuid.UUID, sessionID string) error {
	if f.setSessionFn != nil {
		return f.setSessionFn(ctx, id, sessionID)
	}
	return nil
}

type fakeListingRepo struct {
	listings.Repository

	listing *models.Listing
	findErr error
}

func (f *fakeListingRepo) WithTx(tx *gorm.DB) listings.Repository { return f }

func (f *fakeListingRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.listing, nil
}

type fakeGateway struct {
	openFn func(ctx context.Context, input gateway.HoldSessionInput) (*gateway.HoldSession, error)
}

func (f *fakeGateway) OpenHoldSession(ctx context.Context, input gateway.HoldSessionInput) (*gateway.HoldSession, error) {
	if f.openFn != nil {
		return f.openFn(ctx, input)
	}
	return &gateway.HoldSession{ID: "cs_test_1", URL: "https://pay.example/cs_test_1"}, nil
}

func (f *fakeGateway) Transfer(ctx context.Context, input gateway.TransferInput) (*gateway.Transfer, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeGateway) Reverse(ctx context.Context, input gateway.ReverseInput) (*gateway.Reversal, error) {
	return nil, errors.New("not implemented")
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard})
}

func testCheckoutConfig() config.CheckoutConfig {
	return config.CheckoutConfig{
		SuccessURL: "https://tradepost.example/checkout/success",
		CancelURL:  "https://tradepost.example/checkout/cancel",
		Currency:   "usd",
	}
}

func availableListing(sellerID uuid.UUID) *models.Listing {
	return &models.Listing{
		ID:         uuid.New(),
		SellerID:   sellerID,
		Title:      "vintage synth",
		PriceCents: 125000,
		Currency:   enums.CurrencyUSD,
		Status:     enums.ListingStatusActive,
	}
}

func newTestService(t *testing.T, orderRepo orders.Repository, listingRepo listings.Repository, gw gateway.PaymentGateway) Service {
	t.Helper()
	svc, err := NewService(orderRepo, listingRepo, gw, &fakeTxRunner{}, testCheckoutConfig(), 800, testLogger())
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	return svc
}

func TestStartCheckout(t *testing.T) {
	sellerID := uuid.New()
	buyerID := uuid.New()
	listing := availableListing(sellerID)

	var capturedHold gateway.HoldSessionInput
	var persistedSession string
	orderRepo := &fakeOrderRepo{
		setSessionFn: func(ctx context.Context, id uuid.UUID, sessionID string) error {
			persistedSession = sessionID
			return nil
		},
	}
	gw := &fakeGateway{
		openFn: func(ctx context.Context, input gateway.HoldSessionInput) (*gateway.HoldSession, error) {
			capturedHold = input
			return &gateway.HoldSession{ID: "cs_test_1", URL: "https://pay.example/cs_test_1"}, nil
		},
	}
	svc := newTestService(t, orderRepo, &fakeListingRepo{listing: listing}, gw)

	result, err := svc.StartCheckout(context.Background(), StartCheckoutInput{
		ListingID: listing.ID,
		BuyerID:   buyerID,
	})
	if err != nil {
		t.Fatalf("StartCheckout error: %v", err)
	}

	if result.Order.Status != enums.OrderStatusPending {
		t.Fatalf("expected pending order, got %s", result.Order.Status)
	}
	if result.Order.AmountCents != listing.PriceCents {
		t.Fatalf("amount must copy the listing price, got %d", result.Order.AmountCents)
	}
	if result.SessionID != "cs_test_1" || result.SessionURL == "" {
		t.Fatalf("unexpected session handle: %+v", result)
	}
	if persistedSession != "cs_test_1" {
		t.Fatalf("session id not persisted on the order, got %q", persistedSession)
	}
	if capturedHold.AmountCents != 125000 {
		t.Fatalf("hold amount mismatch: %d", capturedHold.AmountCents)
	}
	if capturedHold.PlatformFeeCents != 10000 {
		t.Fatalf("fee metadata mismatch: %d", capturedHold.PlatformFeeCents)
	}
	if capturedHold.OrderID != result.Order.ID {
		t.Fatal("hold session must carry the order id")
	}
}

func TestStartCheckoutListingNotFound(t *testing.T) {
	listingRepo := &fakeListingRepo{findErr: pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")}
	svc := newTestService(t, &fakeOrderRepo{}, listingRepo, &fakeGateway{})

	_, err := svc.StartCheckout(context.Background(), StartCheckoutInput{
		ListingID: uuid.New(),
		BuyerID:   uuid.New(),
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStartCheckoutListingUnavailable(t *testing.T) {
	listing := availableListing(uuid.New())
	listing.Status = enums.ListingStatusReserved
	svc := newTestService(t, &fakeOrderRepo{}, &fakeListingRepo{listing: listing}, &fakeGateway{})

	_, err := svc.StartCheckout(context.Background(), StartCheckoutInput{
		ListingID: listing.ID,
		BuyerID:   uuid.New(),
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestStartCheckoutSelfPurchaseForbidden(t *testing.T) {
	sellerID := uuid.New()
	listing := availableListing(sellerID)
	svc := newTestService(t, &fakeOrderRepo{}, &fakeListingRepo{listing: listing}, &fakeGateway{})

	_, err := svc.StartCheckout(context.Background(), StartCheckoutInput{
		ListingID: listing.ID,
		BuyerID:   sellerID,
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStartCheckoutAlreadyReserved(t *testing.T) {
	listing := availableListing(uuid.New())
	orderRepo := &fakeOrderRepo{
		createFn: func(ctx context.Context, order *models.Order) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "listing already has an active order")
		},
	}
	svc := newTestService(t, orderRepo, &fakeListingRepo{listing: listing}, &fakeGateway{})

	_, err := svc.StartCheckout(context.Background(), StartCheckoutInput{
		ListingID: listing.ID,
		BuyerID:   uuid.New(),
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestStartCheckoutGatewayFailureRollsBack(t *testing.T) {
	listing := availableListing(uuid.New())
	sessionPersisted := false
	orderRepo := &fakeOrderRepo{
		setSessionFn: func(ctx context.Context, id uuid.UUID, sessionID string) error {
			sessionPersisted = true
			return nil
		},
	}
	gatewayErr := pkgerrors.New(pkgerrors.CodeDependency, "open hold session")
	gw := &fakeGateway{
		openFn: func(ctx context.Context, input gateway.HoldSessionInput) (*gateway.HoldSession, error) {
			return nil, gatewayErr
		},
	}
	svc := newTestService(t, orderRepo, &fakeListingRepo{listing: listing}, gw)

	_, err := svc.StartCheckout(context.Background(), StartCheckoutInput{
		ListingID: listing.ID,
		BuyerID:   uuid.New(),
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if sessionPersisted {
		t.Fatal("session must not be persisted after gateway failure")
	}
}

func TestStartCheckoutValidatesInput(t *testing.T) {
	svc := newTestService(t, &fakeOrderRepo{}, &fakeListingRepo{}, &fakeGateway{})

	if _, err := svc.StartCheckout(context.Background(), StartCheckoutInput{BuyerID: uuid.New()}); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for missing listing id, got %v", err)
	}
	if _, err := svc.StartCheckout(context.Background(), StartCheckoutInput{ListingID: uuid.New()}); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for missing buyer id, got %v", err)
	}
}
