package orders

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/tradepost/tradepost-backend/api/middleware"
	"github.com/tradepost/tradepost-backend/api/responses"
	"github.com/tradepost/tradepost-backend/api/validators"
	"github.com/tradepost/tradepost-backend/internal/authz"
	"github.com/tradepost/tradepost-backend/internal/delivery"
	"github.com/tradepost/tradepost-backend/internal/escrow"
	"github.com/tradepost/tradepost-backend/internal/ledger"
	ordersvc "github.com/tradepost/tradepost-backend/internal/orders"
	"github.com/tradepost/tradepost-backend/pkg/db/models"
	pkgerrors "github.com/tradepost/tradepost-backend/pkg/errors"
	"github.com/tradepost/tradepost-backend/pkg/logger"
)

type listResponse struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

type refundRequest struct {
	AmountCents *int64  `json:"amount_cents,omitempty" validate:"omitempty,gt=0"`
	Reason      *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

func requireActor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (authz.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
	}
	return actor, ok
}

func orderIDParam(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	id, err := validators.ParsePathUUID(r, "orderId")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return uuid.Nil, false
	}
	return id, true
}

// Detail returns an order with its listing, visible to the parties and admins.
func Detail(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		orderID, ok := orderIDParam(w, r, logg)
		if !ok {
			return
		}

		view, err := svc.Get(ctx, orderID, actor)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// Purchases lists the caller's orders as a buyer, newest first.
func Purchases(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rows, next, err := svc.ListForBuyer(ctx, actor, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, listResponse{Orders: rows, NextCursor: next})
	}
}

// Sales lists orders against the caller's listings, newest first.
func Sales(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rows, next, err := svc.ListForSeller(ctx, actor, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, listResponse{Orders: rows, NextCursor: next})
	}
}

// Ledger returns the financial entries recorded against an order. Visibility
// follows the same policy as viewing the order itself.
func Ledger(orderSvc ordersvc.Service, ledgerSvc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		orderID, ok := orderIDParam(w, r, logg)
		if !ok {
			return
		}

		if _, err := orderSvc.Get(ctx, orderID, actor); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		entries, err := ledgerSvc.ListByOrder(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"entries": entries})
	}
}

// Release pays the seller their net for a held order.
func Release(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		orderID, ok := orderIDParam(w, r, logg)
		if !ok {
			return
		}

		result, err := svc.ReleaseFunds(ctx, orderID, actor)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Refund reverses a captured payment, fully or partially.
func Refund(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		orderID, ok := orderIDParam(w, r, logg)
		if !ok {
			return
		}

		var req refundRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Refund(ctx, escrow.RefundInput{
			OrderID:     orderID,
			Actor:       actor,
			AmountCents: req.AmountCents,
			Reason:      req.Reason,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Ship marks the order shipped by the seller.
func Ship(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return deliveryStep(svc.MarkShipped, logg)
}

// Deliver marks the order delivered.
func Deliver(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return deliveryStep(svc.MarkDelivered, logg)
}

// Confirm records the buyer's receipt confirmation.
func Confirm(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return deliveryStep(svc.ConfirmDelivery, logg)
}

func deliveryStep(step func(ctx context.Context, orderID uuid.UUID, actor authz.Actor) (*models.Order, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		orderID, ok := orderIDParam(w, r, logg)
		if !ok {
			return
		}

		order, err := step(ctx, orderID, actor)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
