package escrow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradepost/tradepost-backend/internal/authz"
	"github.com/tradepost/tradepost-backend/internal/fees"
	"github.com/tradepost/tradepost-backend/internal/gateway"
	"github.com/tradepost/tradepost-backend/internal/ledger"
	"github.com/tradepost/tradepost-backend/internal/listings"
	"github.com/tradepost/tradepost-backend/internal/orders"
	"github.com/tradepost/tradepost-backend/internal/payouts"
	"github.com/tradepost/tradepost-backend/pkg/db/models"
	"github.com/tradepost/tradepost-backend/pkg/enums"
	pkgerrors "github.com/tradepost/tradepost-backend/pkg/errors"
	"github.com/tradepost/tradepost-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ReleaseResult reports the transfer that settled an order.
type ReleaseResult struct {
	Order      models.Order   `json:"order"`
	Fees       fees.Breakdown `json:"fees"`
	TransferID string         `json:"transfer_id"`
}

// RefundInput identifies the order and the optional partial amount to reverse.
type RefundInput struct {
	OrderID     uuid.UUID
	Actor       authz.Actor
	AmountCents *int64
	Reason      *string
}

// RefundResult reports the reversal applied to an order.
type RefundResult struct {
	Order         models.Order `json:"order"`
	RefundedCents int64        `json:"refunded_cents"`
	ReversalID    string       `json:"reversal_id"`
}

// Service settles escrowed funds: release to the seller or reversal to the buyer.
type Service interface {
	ReleaseFunds(ctx context.Context, orderID uuid.UUID, actor authz.Actor) (*ReleaseResult, error)
	Refund(ctx context.Context, input RefundInput) (*RefundResult, error)
}

// ServiceParams wires the escrow settlement dependencies.
type ServiceParams struct {
	OrderRepo         orders.Repository
	ListingRepo       listings.Repository
	PayoutRepo        payouts.Repository
	Gateway           gateway.PaymentGateway
	Ledger            ledger.Service
	Policy            authz.Policy
	TransactionRunner txRunner
	FeeBasisPoints    int
	Logger            *logger.Logger
}

type service struct {
	orders   orders.Repository
	listings listings.Repository
	payouts  payouts.Repository
	gateway  gateway.PaymentGateway
	ledger   ledger.Service
	policy   authz.Policy
	tx       txRunner
	feeBPS   int
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.OrderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.ListingRepo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if params.PayoutRepo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Policy == nil {
		return nil, fmt.Errorf("authz policy required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		orders:   params.OrderRepo,
		listings: params.ListingRepo,
		payouts:  params.PayoutRepo,
		gateway:  params.Gateway,
		ledger:   params.Ledger,
		policy:   params.Policy,
		tx:       params.TransactionRunner,
		feeBPS:   params.FeeBasisPoints,
		logg:     params.Logger,
	}, nil
}

// ReleaseFunds transfers the seller's net for a held order. The fee is
// recomputed at the currently configured rate, not the rate at checkout time.
// A gateway failure leaves the order held so the caller can retry.
func (s *service) ReleaseFunds(ctx context.Context, orderID uuid.UUID, actor authz.Actor) (*ReleaseResult, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	order, listing, err := s.loadParties(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !s.policy.Can(actor, authz.ActionReleaseFunds, authz.OrderParties{BuyerID: order.BuyerID, SellerID: listing.SellerID}) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to release funds")
	}
	if order.Status != enums.OrderStatusHeld {
		return nil, statusConflict(order.Status, "release")
	}

	account, err := s.payouts.FindBySeller(ctx, listing.SellerID)
	if err != nil {
		if pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "seller has no payout destination")
		}
		return nil, err
	}
	if !account.Onboarded() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "seller has no payout destination")
	}

	breakdown, err := fees.Compute(order.AmountCents, s.feeBPS)
	if err != nil {
		return nil, err
	}

	tr, err := s.gateway.Transfer(ctx, gateway.TransferInput{
		OrderID:       order.ID,
		AmountCents:   breakdown.SellerNetCents,
		Currency:      order.Currency,
		DestinationID: account.DestinationID,
	})
	if err != nil {
		return nil, err
	}

	releasedAt := time.Now().UTC()
	var moved bool
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		moved, err = repo.MarkPaid(ctx, order.ID, tr.ID, releasedAt)
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		_, err = s.ledger.Record(ctx, tx, ledger.RecordEntryInput{
			OrderID:     order.ID,
			BuyerID:     order.BuyerID,
			SellerID:    listing.SellerID,
			ActorID:     actor.UserID,
			Type:        enums.LedgerEntryFundsReleased,
			AmountCents: breakdown.SellerNetCents,
			FeeCents:    breakdown.FeeCents,
			Reference:   &tr.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if !moved {
		// The transfer went through but another writer moved the order first.
		// Surface the conflict; reconciliation owns the duplicate transfer.
		s.logg.Error(ctx, "transfer completed but order left held state concurrently", nil)
		return nil, statusConflict(enums.OrderStatusPaid, "release")
	}

	if flipped, flipErr := s.listings.UpdateStatusIf(ctx, listing.ID, enums.ListingStatusReserved, enums.ListingStatusSold); flipErr != nil {
		s.logg.Error(ctx, "failed to mark listing sold after release", flipErr)
	} else if !flipped {
		s.logg.Warn(ctx, "listing was not reserved when funds released")
	}

	order.Status = enums.OrderStatusPaid
	order.ReleaseReference = &tr.ID
	order.ReleasedAt = &releasedAt

	s.logg.Info(ctx, "escrow funds released to seller")
	return &ReleaseResult{Order: *order, Fees: breakdown, TransferID: tr.ID}, nil
}

// Refund reverses a captured payment. Partial amounts are allowed but any
// confirmed reversal is terminal: the order collapses to refunded.
func (s *service) Refund(ctx context.Context, input RefundInput) (*RefundResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	ctx = s.logg.WithOrderID(ctx, input.OrderID.String())

	order, listing, err := s.loadParties(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if !s.policy.Can(input.Actor, authz.ActionRefund, authz.OrderParties{BuyerID: order.BuyerID, SellerID: listing.SellerID}) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to refund")
	}
	if order.PaymentReference == nil || *order.PaymentReference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no captured payment to refund")
	}
	if order.Status != enums.OrderStatusHeld && order.Status != enums.OrderStatusPaid {
		return nil, statusConflict(order.Status, "refund")
	}

	amount := order.AmountCents
	if input.AmountCents != nil {
		if *input.AmountCents <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
		}
		amount = min(*input.AmountCents, order.AmountCents)
	}

	reason := ""
	if input.Reason != nil {
		reason = *input.Reason
	}
	reversal, err := s.gateway.Reverse(ctx, gateway.ReverseInput{
		PaymentReference: *order.PaymentReference,
		AmountCents:      amount,
		Reason:           reason,
	})
	if err != nil {
		return nil, err
	}

	refundedAt := time.Now().UTC()
	wasHeld := order.Status == enums.OrderStatusHeld
	var moved bool
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		moved, err = repo.MarkRefunded(ctx, order.ID, amount, input.Reason, refundedAt)
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		_, err = s.ledger.Record(ctx, tx, ledger.RecordEntryInput{
			OrderID:     order.ID,
			BuyerID:     order.BuyerID,
			SellerID:    listing.SellerID,
			ActorID:     input.Actor.UserID,
			Type:        enums.LedgerEntryRefundIssued,
			AmountCents: amount,
			Reference:   &reversal.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if !moved {
		s.logg.Error(ctx, "reversal completed but order left refundable state concurrently", nil)
		return nil, statusConflict(enums.OrderStatusRefunded, "refund")
	}

	// Undo the hold's own side effect: a never-delivered sale frees the
	// listing. A refund after release leaves the listing sold.
	if wasHeld {
		if flipped, flipErr := s.listings.UpdateStatusIf(ctx, listing.ID, enums.ListingStatusReserved, enums.ListingStatusActive); flipErr != nil {
			s.logg.Error(ctx, "failed to re-list after refund", flipErr)
		} else if !flipped {
			s.logg.Warn(ctx, "listing was not reserved when refund confirmed")
		}
	}

	order.Status = enums.OrderStatusRefunded
	order.RefundedCents = amount
	order.RefundReason = input.Reason
	order.RefundedAt = &refundedAt

	s.logg.Info(ctx, "escrow payment reversed")
	return &RefundResult{Order: *order, RefundedCents: amount, ReversalID: reversal.ID}, nil
}

func (s *service) loadParties(ctx context.Context, orderID uuid.UUID) (*models.Order, *models.Listing, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	listing, err := s.listings.FindByID(ctx, order.ListingID)
	if err != nil {
		return nil, nil, err
	}
	return order, listing, nil
}

// statusConflict distinguishes "already in a later state" from "never happened"
// for the caller.
func statusConflict(current enums.OrderStatus, op string) error {
	err := pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot %s order in status %s", op, current))
	return err.WithDetails(map[string]string{"current_status": current.String()})
}
