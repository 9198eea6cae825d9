package enums

import "fmt"

// OrderStatus tracks the money lifecycle of an order. Forward-only except the
// refund escape hatch from held or paid.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusHeld     OrderStatus = "held"
	OrderStatusPaid     OrderStatus = "paid"
	OrderStatusRefunded OrderStatus = "refunded"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusHeld,
	OrderStatusPaid,
	OrderStatusRefunded,
}

// ActiveOrderStatuses are the statuses that reserve a listing. At most one
// order per listing may sit in any of them.
var ActiveOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusHeld,
	OrderStatusPaid,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsActive reports whether the status reserves the listing.
func (o OrderStatus) IsActive() bool {
	for _, candidate := range ActiveOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further money transition is allowed.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusRefunded
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
