package authz

import (
	"github.com/google/uuid"

	"github.com/tradepost/tradepost-backend/pkg/enums"
)

// Actor is the authenticated party attempting an operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.ActorRole
}

// Action names a capability checked against the policy.
type Action string

const (
	ActionViewOrder       Action = "order:view"
	ActionReleaseFunds    Action = "order:release_funds"
	ActionRefund          Action = "order:refund"
	ActionShip            Action = "order:ship"
	ActionMarkDelivered   Action = "order:mark_delivered"
	ActionConfirmDelivery Action = "order:confirm_delivery"
)

// OrderParties identifies the two sides of an order for ownership checks.
type OrderParties struct {
	BuyerID  uuid.UUID
	SellerID uuid.UUID
}

// Policy answers whether an actor may perform an action on an order.
type Policy interface {
	Can(actor Actor, action Action, parties OrderParties) bool
}

type policy struct{}

// NewPolicy returns the standard marketplace policy: admins operate the money
// axis, sellers drive shipment, buyers confirm receipt, and both parties can
// read their own orders.
func NewPolicy() Policy {
	return policy{}
}

func (policy) Can(actor Actor, action Action, parties OrderParties) bool {
	if actor.UserID == uuid.Nil || !actor.Role.IsValid() {
		return false
	}
	if actor.Role == enums.RoleAdmin {
		return true
	}

	switch action {
	case ActionViewOrder:
		return actor.UserID == parties.BuyerID || actor.UserID == parties.SellerID
	case ActionReleaseFunds, ActionRefund:
		return false
	case ActionShip, ActionMarkDelivered:
		return actor.UserID == parties.SellerID
	case ActionConfirmDelivery:
		return actor.UserID == parties.BuyerID
	default:
		return false
	}
}
