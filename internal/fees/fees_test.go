package fees

import (
	"testing"

	pkgerrors "github.com/tradepost/tradepost-backend/pkg/errors"
)

func TestCompute(t *testing.T) {
	cases := []struct {
		name        string
		amountCents int64
		basisPoints int
		wantFee     int64
		wantNet     int64
	}{
		{name: "standard eight percent", amountCents: 125000, basisPoints: 800, wantFee: 10000, wantNet: 115000},
		{name: "fee rounds down", amountCents: 999, basisPoints: 250, wantFee: 24, wantNet: 975},
		{name: "one cent order", amountCents: 1, basisPoints: 800, wantFee: 0, wantNet: 1},
		{name: "zero basis points", amountCents: 5000, basisPoints: 0, wantFee: 0, wantNet: 5000},
		{name: "full fee", amountCents: 5000, basisPoints: 10000, wantFee: 5000, wantNet: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Compute(tc.amountCents, tc.basisPoints)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.FeeCents != tc.wantFee {
				t.Fatalf("fee: expected %d got %d", tc.wantFee, got.FeeCents)
			}
			if got.SellerNetCents != tc.wantNet {
				t.Fatalf("net: expected %d got %d", tc.wantNet, got.SellerNetCents)
			}
			if got.FeeCents+got.SellerNetCents != tc.amountCents {
				t.Fatalf("fee %d + net %d must equal amount %d", got.FeeCents, got.SellerNetCents, tc.amountCents)
			}
		})
	}
}

func TestComputeRejectsInvalidInputs(t *testing.T) {
	if _, err := Compute(0, 800); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for zero amount, got %v", err)
	}
	if _, err := Compute(-100, 800); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for negative amount, got %v", err)
	}
	if _, err := Compute(5000, -1); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for negative basis points, got %v", err)
	}
	if _, err := Compute(5000, 10001); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for basis points above maximum, got %v", err)
	}
}
