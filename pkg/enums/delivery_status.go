package enums

import "fmt"

// DeliveryStatus tracks physical fulfillment, independent of the money axis.
type DeliveryStatus string

const (
	DeliveryStatusUnshipped DeliveryStatus = "unshipped"
	DeliveryStatusShipped   DeliveryStatus = "shipped"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusConfirmed DeliveryStatus = "confirmed"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusUnshipped,
	DeliveryStatusShipped,
	DeliveryStatusDelivered,
	DeliveryStatusConfirmed,
}

// String implements fmt.Stringer.
func (d DeliveryStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryStatus.
func (d DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// Next returns the only status reachable from the current one, or "" for the
// terminal confirmed state. Delivery is strictly sequential.
func (d DeliveryStatus) Next() DeliveryStatus {
	switch d {
	case DeliveryStatusUnshipped:
		return DeliveryStatusShipped
	case DeliveryStatusShipped:
		return DeliveryStatusDelivered
	case DeliveryStatusDelivered:
		return DeliveryStatusConfirmed
	default:
		return ""
	}
}

// Prev returns the only status the current one is reachable from, or "" for
// the initial unshipped state.
func (d DeliveryStatus) Prev() DeliveryStatus {
	switch d {
	case DeliveryStatusShipped:
		return DeliveryStatusUnshipped
	case DeliveryStatusDelivered:
		return DeliveryStatusShipped
	case DeliveryStatusConfirmed:
		return DeliveryStatusDelivered
	default:
		return ""
	}
}

// ParseDeliveryStatus converts raw input into a DeliveryStatus.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	for _, candidate := range validDeliveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery status %q", value)
}
