package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tradepost/tradepost-backend/internal/authz"
	"github.com/tradepost/tradepost-backend/internal/listings"
	"github.com/tradepost/tradepost-backend/pkg/db/models"
	pkgerrors "github.com/tradepost/tradepost-backend/pkg/errors"
	"github.com/tradepost/tradepost-backend/pkg/pagination"
)

// OrderView pairs an order with the listing it was placed against.
type OrderView struct {
	Order   models.Order   `json:"order"`
	Listing models.Listing `json:"listing"`
}

// Service exposes order reads with party-level visibility.
type Service interface {
	Get(ctx context.Context, orderID uuid.UUID, actor authz.Actor) (*OrderView, error)
	ListForBuyer(ctx context.Context, actor authz.Actor, params pagination.Params) ([]models.Order, string, error)
	ListForSeller(ctx context.Context, actor authz.Actor, params pagination.Params) ([]models.Order, string, error)
}

type service struct {
	repo     Repository
	listings listings.Repository
	policy   authz.Policy
}

// NewService builds the order read service.
func NewService(repo Repository, listingRepo listings.Repository, policy authz.Policy) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if listingRepo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if policy == nil {
		return nil, fmt.Errorf("authz policy required")
	}
	return &service{repo: repo, listings: listingRepo, policy: policy}, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, actor authz.Actor) (*OrderView, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	listing, err := s.listings.FindByID(ctx, order.ListingID)
	if err != nil {
		return nil, err
	}

	if !s.policy.Can(actor, authz.ActionViewOrder, authz.OrderParties{
		BuyerID:  order.BuyerID,
		SellerID: listing.SellerID,
	}) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this order")
	}

	return &OrderView{Order: *order, Listing: *listing}, nil
}

func (s *service) ListForBuyer(ctx context.Context, actor authz.Actor, params pagination.Params) ([]models.Order, string, error) {
	if actor.UserID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "actor is required")
	}
	return s.repo.ListByBuyer(ctx, actor.UserID, params)
}

func (s *service) ListForSeller(ctx context.Context, actor authz.Actor, params pagination.Params) ([]models.Order, string, error) {
	if actor.UserID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "actor is required")
	}
	return s.repo.ListBySeller(ctx, actor.UserID, params)
}
