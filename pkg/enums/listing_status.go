package enums

import "fmt"

// ListingStatus tracks marketplace availability of a listing.
type ListingStatus string

const (
	ListingStatusActive    ListingStatus = "active"
	ListingStatusReserved  ListingStatus = "reserved"
	ListingStatusSold      ListingStatus = "sold"
	ListingStatusWithdrawn ListingStatus = "withdrawn"
)

var validListingStatuses = []ListingStatus{
	ListingStatusActive,
	ListingStatusReserved,
	ListingStatusSold,
	ListingStatusWithdrawn,
}

// String implements fmt.Stringer.
func (l ListingStatus) String() string {
	return string(l)
}

// IsValid reports whether the value is a known ListingStatus.
func (l ListingStatus) IsValid() bool {
	for _, candidate := range validListingStatuses {
		if candidate == l {
			return true
		}
	}
	return false
}

// IsAvailable reports whether a buyer may start checkout against the listing.
func (l ListingStatus) IsAvailable() bool {
	return l == ListingStatusActive
}

// ParseListingStatus converts raw input into a ListingStatus.
func ParseListingStatus(value string) (ListingStatus, error) {
	for _, candidate := range validListingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing status %q", value)
}
