package gateway

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/refund"
	"github.com/stripe/stripe-go/v84/transfer"

	pkgerrors "github.com/tradepost/tradepost-backend/pkg/errors"
	pkgstripe "github.com/tradepost/tradepost-backend/pkg/stripe"
)

type stripeGateway struct{}

// NewStripeGateway adapts the shared Stripe client to the PaymentGateway surface.
func NewStripeGateway(api *pkgstripe.Client) (PaymentGateway, error) {
	if api == nil {
		return nil, errors.New("stripe client required")
	}
	return &stripeGateway{}, nil
}

// TransferGroup tags every gateway object belonging to one order so charges,
// transfers and refunds reconcile in the Stripe dashboard.
func TransferGroup(orderID uuid.UUID) string {
	return "order_" + orderID.String()
}

func (g *stripeGateway) OpenHoldSession(ctx context.Context, input HoldSessionInput) (*HoldSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(input.SuccessURL),
		CancelURL:  stripe.String(input.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(input.Currency.String()),
					UnitAmount: stripe.Int64(input.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(input.ListingTitle),
					},
				},
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			TransferGroup: stripe.String(TransferGroup(input.OrderID)),
			Metadata: map[string]string{
				"order_id": input.OrderID.String(),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("order_id", input.OrderID.String())
	params.AddMetadata("platform_fee_cents", strconv.FormatInt(input.PlatformFeeCents, 10))

	sess, err := session.New(params)
	if err != nil {
		return nil, wrapStripeErr(err, "open hold session")
	}
	return &HoldSession{ID: sess.ID, URL: sess.URL}, nil
}

func (g *stripeGateway) Transfer(ctx context.Context, input TransferInput) (*Transfer, error) {
	params := &stripe.TransferParams{
		Amount:        stripe.Int64(input.AmountCents),
		Currency:      stripe.String(input.Currency.String()),
		Destination:   stripe.String(input.DestinationID),
		TransferGroup: stripe.String(TransferGroup(input.OrderID)),
	}
	params.Context = ctx
	params.AddMetadata("order_id", input.OrderID.String())

	tr, err := transfer.New(params)
	if err != nil {
		return nil, wrapStripeErr(err, "transfer seller net")
	}
	return &Transfer{ID: tr.ID}, nil
}

func (g *stripeGateway) Reverse(ctx context.Context, input ReverseInput) (*Reversal, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(input.PaymentReference),
	}
	if input.AmountCents > 0 {
		params.Amount = stripe.Int64(input.AmountCents)
	}
	if input.Reason != "" {
		params.AddMetadata("reason", input.Reason)
	}
	params.Context = ctx

	rf, err := refund.New(params)
	if err != nil {
		return nil, wrapStripeErr(err, "reverse payment")
	}
	return &Reversal{ID: rf.ID}, nil
}

func wrapStripeErr(err error, op string) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeInvalidRequest {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, op)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
