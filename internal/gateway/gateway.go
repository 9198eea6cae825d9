package gateway

import (
	"context"

	"github.com/google/uuid"

	"github.com/tradepost/tradepost-backend/pkg/enums"
)

// HoldSessionInput carries everything needed to open a hosted payment page
// that captures the buyer's funds into the platform account.
type HoldSessionInput struct {
	OrderID          uuid.UUID
	ListingTitle     string
	AmountCents      int64
	PlatformFeeCents int64
	Currency         enums.Currency
	SuccessURL       string
	CancelURL        string
}

// HoldSession identifies the gateway-side session the buyer completes.
type HoldSession struct {
	ID  string
	URL string
}

// TransferInput moves a seller's net out of the platform balance.
type TransferInput struct {
	OrderID       uuid.UUID
	AmountCents   int64
	Currency      enums.Currency
	DestinationID string
}

// Transfer is the gateway's record of a completed payout transfer.
type Transfer struct {
	ID string
}

// ReverseInput returns captured funds to the buyer. A zero AmountCents
// reverses the full remaining amount.
type ReverseInput struct {
	PaymentReference string
	AmountCents      int64
	Reason           string
}

// Reversal is the gateway's record of a refund.
type Reversal struct {
	ID string
}

// PaymentGateway is the escrow-side payment surface. Implementations must be
// safe for concurrent use.
type PaymentGateway interface {
	OpenHoldSession(ctx context.Context, input HoldSessionInput) (*HoldSession, error)
	Transfer(ctx context.Context, input TransferInput) (*Transfer, error)
	Reverse(ctx context.Context, input ReverseInput) (*Reversal, error)
}
