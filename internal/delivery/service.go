package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tradepost/tradepost-backend/internal/authz"
	"github.com/tradepost/tradepost-backend/internal/listings"
	"github.com/tradepost/tradepost-backend/internal/orders"
	"github.com/tradepost/tradepost-backend/pkg/db/models"
	"github.com/tradepost/tradepost-backend/pkg/enums"
	pkgerrors "github.com/tradepost/tradepost-backend/pkg/errors"
	"github.com/tradepost/tradepost-backend/pkg/logger"
)

// Service advances an order's fulfillment axis. Each step is gated on the
// caller's role and on the money axis holding captured funds.
type Service interface {
	MarkShipped(ctx context.Context, orderID uuid.UUID, actor authz.Actor) (*models.Order, error)
	MarkDelivered(ctx context.Context, orderID uuid.UUID, actor authz.Actor) (*models.Order, error)
	ConfirmDelivery(ctx context.Context, orderID uuid.UUID, actor authz.Actor) (*models.Order, error)
}

type service struct {
	orders   orders.Repository
	listings listings.Repository
	policy   authz.Policy
	logg     *logger.Logger
}

func NewService(orderRepo orders.Repository, listingRepo listings.Repository, policy authz.Policy, logg *logger.Logger) (Service, error) {
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if listingRepo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if policy == nil {
		return nil, fmt.Errorf("authz policy required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{orders: orderRepo, listings: listingRepo, policy: policy, logg: logg}, nil
}

func (s *service) MarkShipped(ctx context.Context, orderID uuid.UUID, actor authz.Actor) (*models.Order, error) {
	return s.advance(ctx, orderID, actor, authz.ActionShip, enums.DeliveryStatusShipped)
}

func (s *service) MarkDelivered(ctx context.Context, orderID uuid.UUID, actor authz.Actor) (*models.Order, error) {
	return s.advance(ctx, orderID, actor, authz.ActionMarkDelivered, enums.DeliveryStatusDelivered)
}

func (s *service) ConfirmDelivery(ctx context.Context, orderID uuid.UUID, actor authz.Actor) (*models.Order, error) {
	return s.advance(ctx, orderID, actor, authz.ActionConfirmDelivery, enums.DeliveryStatusConfirmed)
}

func (s *service) advance(ctx context.Context, orderID uuid.UUID, actor authz.Actor, action authz.Action, target enums.DeliveryStatus) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	listing, err := s.listings.FindByID(ctx, order.ListingID)
	if err != nil {
		return nil, err
	}
	if !s.policy.Can(actor, action, authz.OrderParties{BuyerID: order.BuyerID, SellerID: listing.SellerID}) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to update fulfillment")
	}

	// Nothing ships until the money is captured, and a refunded order has
	// nothing left to fulfill.
	if order.Status != enums.OrderStatusHeld && order.Status != enums.OrderStatusPaid {
		err := pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot update fulfillment for order in status %s", order.Status))
		return nil, err.WithDetails(map[string]string{"current_status": order.Status.String()})
	}

	from := target.Prev()
	if order.DeliveryStatus != from {
		err := pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move delivery from %s to %s", order.DeliveryStatus, target))
		return nil, err.WithDetails(map[string]string{
			"current_delivery_status": order.DeliveryStatus.String(),
			"requested":               target.String(),
		})
	}

	at := time.Now().UTC()
	moved, err := s.orders.AdvanceDelivery(ctx, order.ID, from, target, at)
	if err != nil {
		return nil, err
	}
	if !moved {
		err := pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("delivery already moved past %s", from))
		return nil, err.WithDetails(map[string]string{"requested": target.String()})
	}

	order.DeliveryStatus = target
	switch target {
	case enums.DeliveryStatusShipped:
		order.ShippedAt = &at
	case enums.DeliveryStatusDelivered:
		order.DeliveredAt = &at
	case enums.DeliveryStatusConfirmed:
		order.ConfirmedAt = &at
	}

	s.logg.Info(ctx, fmt.Sprintf("order fulfillment moved to %s", target))
	return order, nil
}
