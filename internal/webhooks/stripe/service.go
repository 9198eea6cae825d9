package stripewebhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/tradepost/tradepost-backend/internal/ledger"
	"github.com/tradepost/tradepost-backend/internal/listings"
	"github.com/tradepost/tradepost-backend/internal/orders"
	"github.com/tradepost/tradepost-backend/pkg/db/models"
	"github.com/tradepost/tradepost-backend/pkg/enums"
	pkgerrors "github.com/tradepost/tradepost-backend/pkg/errors"
	"github.com/tradepost/tradepost-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the webhook processor's dependencies.
type ServiceParams struct {
	OrderRepo         orders.Repository
	ListingRepo       listings.Repository
	Ledger            ledger.Service
	TransactionRunner txRunner
	Logger            *logger.Logger
}

// Service applies gateway payment events to orders. Transitions are
// conditional updates keyed on the expected prior status, so duplicate and
// out-of-order deliveries collapse into no-ops.
type Service struct {
	orderRepo   orders.Repository
	listingRepo listings.Repository
	ledger      ledger.Service
	txRunner    txRunner
	logg        *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.OrderRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order repo required")
	}
	if params.ListingRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "listing repo required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger service required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		orderRepo:   params.OrderRepo,
		listingRepo: params.ListingRepo,
		ledger:      params.Ledger,
		txRunner:    params.TransactionRunner,
		logg:        params.Logger,
	}, nil
}

// HandleEvent routes supported event types. A nil return acknowledges the
// event; gateways redeliver on error, so only genuinely retryable failures
// propagate.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
		}
		reference := sess.ID
		if sess.PaymentIntent != nil && sess.PaymentIntent.ID != "" {
			reference = sess.PaymentIntent.ID
		}
		return s.applyPaymentConfirmed(ctx, sess.Metadata["order_id"], reference)

	case stripe.EventTypePaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment intent event")
		}
		return s.applyPaymentConfirmed(ctx, intent.Metadata["order_id"], intent.ID)

	default:
		return nil
	}
}

// applyPaymentConfirmed promotes the correlated order pending -> held. Either
// confirmation event may arrive first; the losing duplicate observes the order
// already past pending and acknowledges. Unmatched events are logged and
// acknowledged, never retried.
func (s *Service) applyPaymentConfirmed(ctx context.Context, rawOrderID, paymentReference string) error {
	if rawOrderID == "" {
		s.logg.Warn(ctx, "payment event without order correlation, acknowledging")
		return nil
	}
	orderID, err := uuid.Parse(rawOrderID)
	if err != nil {
		ctx = s.logg.WithField(ctx, "raw_order_id", rawOrderID)
		s.logg.Warn(ctx, "payment event with malformed order id, acknowledging")
		return nil
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	var order *models.Order
	var promoted bool
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)

		order, err = repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}

		promoted, err = repo.MarkHeld(ctx, orderID, paymentReference, time.Now().UTC())
		if err != nil {
			return err
		}
		if !promoted {
			return nil
		}

		listing, err := s.listingRepo.WithTx(tx).FindByID(ctx, order.ListingID)
		if err != nil {
			return err
		}
		_, err = s.ledger.Record(ctx, tx, ledger.RecordEntryInput{
			OrderID:     order.ID,
			BuyerID:     order.BuyerID,
			SellerID:    listing.SellerID,
			ActorID:     order.BuyerID,
			Type:        enums.LedgerEntryHoldCaptured,
			AmountCents: order.AmountCents,
			Reference:   &paymentReference,
		})
		return err
	})
	if err != nil {
		if pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound {
			s.logg.Warn(ctx, "payment event matched no order, acknowledging")
			return nil
		}
		return err
	}

	if !promoted {
		s.logg.Info(ctx, "payment confirmation already applied")
		return nil
	}

	// Money state is durable at this point. The listing flip is a secondary
	// effect: failure is logged for reconciliation, never rolled back into
	// the order transition.
	flipped, err := s.listingRepo.UpdateStatusIf(ctx, order.ListingID, enums.ListingStatusActive, enums.ListingStatusReserved)
	if err != nil {
		s.logg.Error(ctx, "failed to mark listing reserved after hold", err)
	} else if !flipped {
		s.logg.Warn(ctx, "listing was not active when hold confirmed")
	}

	s.logg.Info(ctx, "order funds held")
	return nil
}
