package enums

import "fmt"

// LedgerEntryType classifies money movement recorded against an order.
type LedgerEntryType string

const (
	LedgerEntryHoldCaptured  LedgerEntryType = "hold_captured"
	LedgerEntryFundsReleased LedgerEntryType = "funds_released"
	LedgerEntryRefundIssued  LedgerEntryType = "refund_issued"
)

var validLedgerEntryTypes = []LedgerEntryType{
	LedgerEntryHoldCaptured,
	LedgerEntryFundsReleased,
	LedgerEntryRefundIssued,
}

// String implements fmt.Stringer.
func (t LedgerEntryType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known LedgerEntryType.
func (t LedgerEntryType) IsValid() bool {
	for _, candidate := range validLedgerEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLedgerEntryType converts raw input into a LedgerEntryType.
func ParseLedgerEntryType(value string) (LedgerEntryType, error) {
	for _, candidate := range validLedgerEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger entry type %q", value)
}
