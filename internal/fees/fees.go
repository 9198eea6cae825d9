package fees

import (
	"fmt"

	pkgerrors "github.com/tradepost/tradepost-backend/pkg/errors"
)

// BasisPointDenominator converts basis points into a fraction of the amount.
const BasisPointDenominator = 10000

// Breakdown splits an order amount into the platform fee and the seller's net.
type Breakdown struct {
	AmountCents    int64
	BasisPoints    int
	FeeCents       int64
	SellerNetCents int64
}

// Compute derives the platform fee from the order amount, rounding the fee
// down so the seller keeps every remainder cent. FeeCents plus SellerNetCents
// always equals AmountCents.
func Compute(amountCents int64, basisPoints int) (Breakdown, error) {
	if amountCents <= 0 {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("amount must be positive, got %d", amountCents))
	}
	if basisPoints < 0 || basisPoints > BasisPointDenominator {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("fee basis points must be between 0 and %d, got %d", BasisPointDenominator, basisPoints))
	}

	fee := amountCents * int64(basisPoints) / BasisPointDenominator
	return Breakdown{
		AmountCents:    amountCents,
		BasisPoints:    basisPoints,
		FeeCents:       fee,
		SellerNetCents: amountCents - fee,
	}, nil
}
