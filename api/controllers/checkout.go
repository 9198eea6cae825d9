package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tradepost/tradepost-backend/api/middleware"
	"github.com/tradepost/tradepost-backend/api/responses"
	"github.com/tradepost/tradepost-backend/api/validators"
	"github.com/tradepost/tradepost-backend/internal/checkout"
	pkgerrors "github.com/tradepost/tradepost-backend/pkg/errors"
	"github.com/tradepost/tradepost-backend/pkg/logger"
)

type checkoutRequest struct {
	ListingID string `json:"listing_id" validate:"required,uuid"`
}

// Checkout opens a payment session that places a buyer's funds in escrow.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actor, ok := middleware.ActorFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		listingID, err := uuid.Parse(req.ListingID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "listing_id must be a uuid"))
			return
		}

		result, err := svc.StartCheckout(ctx, checkout.StartCheckoutInput{
			ListingID: listingID,
			BuyerID:   actor.UserID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
