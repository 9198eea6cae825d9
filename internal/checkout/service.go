package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradepost/tradepost-backend/internal/fees"
	"github.com/tradepost/tradepost-backend/internal/gateway"
	"github.com/tradepost/tradepost-backend/internal/listings"
	"github.com/tradepost/tradepost-backend/internal/orders"
	"github.com/tradepost/tradepost-backend/pkg/config"
	"github.com/tradepost/tradepost-backend/pkg/db/models"
	"github.com/tradepost/tradepost-backend/pkg/enums"
	pkgerrors "github.com/tradepost/tradepost-backend/pkg/errors"
	"github.com/tradepost/tradepost-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// StartCheckoutInput identifies the listing a buyer wants to purchase.
type StartCheckoutInput struct {
	ListingID uuid.UUID
	BuyerID   uuid.UUID
}

// StartCheckoutResult returns the pending order plus the hosted payment page
// the buyer is redirected to.
type StartCheckoutResult struct {
	Order      models.Order `json:"order"`
	SessionID  string       `json:"session_id"`
	SessionURL string       `json:"session_url"`
}

// Service opens escrow checkout sessions.
type Service interface {
	StartCheckout(ctx context.Context, input StartCheckoutInput) (*StartCheckoutResult, error)
}

type service struct {
	orders   orders.Repository
	listings listings.Repository
	gateway  gateway.PaymentGateway
	tx       txRunner
	cfg      config.CheckoutConfig
	feeBPS   int
	logg     *logger.Logger
}

// NewService wires the checkout session initiator.
func NewService(
	orderRepo orders.Repository,
	listingRepo listings.Repository,
	gw gateway.PaymentGateway,
	tx txRunner,
	cfg config.CheckoutConfig,
	feeBasisPoints int,
	logg *logger.Logger,
) (Service, error) {
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if listingRepo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if gw == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		orders:   orderRepo,
		listings: listingRepo,
		gateway:  gw,
		tx:       tx,
		cfg:      cfg,
		feeBPS:   feeBasisPoints,
		logg:     logg,
	}, nil
}

// StartCheckout creates a pending order for the listing and opens a gateway
// hold session. The order row and the session id commit together; a gateway
// failure rolls the order back so no pending orphan blocks the listing.
func (s *service) StartCheckout(ctx context.Context, input StartCheckoutInput) (*StartCheckoutResult, error) {
	if input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}

	var result StartCheckoutResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		listingRepo := s.listings.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)

		listing, err := listingRepo.FindByID(ctx, input.ListingID)
		if err != nil {
			return err
		}
		if !listing.Status.IsAvailable() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "listing is not available for purchase")
		}
		if listing.SellerID == input.BuyerID {
			return pkgerrors.New(pkgerrors.CodeValidation, "cannot purchase your own listing")
		}

		order, err := orderRepo.Create(ctx, &models.Order{
			ListingID:   listing.ID,
			BuyerID:     input.BuyerID,
			AmountCents: listing.PriceCents,
			Currency:    listing.Currency,
			Status:      enums.OrderStatusPending,
		})
		if err != nil {
			return err
		}

		breakdown, err := fees.Compute(order.AmountCents, s.feeBPS)
		if err != nil {
			return err
		}

		session, err := s.gateway.OpenHoldSession(ctx, gateway.HoldSessionInput{
			OrderID:          order.ID,
			ListingTitle:     listing.Title,
			AmountCents:      order.AmountCents,
			PlatformFeeCents: breakdown.FeeCents,
			Currency:         order.Currency,
			SuccessURL:       s.cfg.SuccessURL,
			CancelURL:        s.cfg.CancelURL,
		})
		if err != nil {
			return err
		}

		if err := orderRepo.SetCheckoutSession(ctx, order.ID, session.ID); err != nil {
			return err
		}
		sessionID := session.ID
		order.CheckoutSessionID = &sessionID

		result = StartCheckoutResult{
			Order:      *order,
			SessionID:  session.ID,
			SessionURL: session.URL,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, result.Order.ID.String())
	s.logg.Info(ctx, "checkout session opened")
	return &result, nil
}
