package orders

import "fmt"

// Status is the lifecycle state of an order. Transitions are monotonic along
// the edge table below; skipping states is not allowed.
type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// ParseStatus validates a raw status string from a request payload.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusPending, StatusConfirmed, StatusPreparing,
		StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return Status(raw), nil
	}
	return "", fmt.Errorf("unknown order status %q", raw)
}

// Role identifies which kind of actor is driving a transition.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// Actor is the caller attempting a transition, as resolved by the auth layer.
// Sellers carry the shop they manage; buyers act only on their own orders.
type Actor struct {
	UserID int64
	ShopID int64
	Role   Role
}

// forward is the single-step happy-path graph. delivered and cancelled are
// terminal and deliberately absent as keys.
var forward = map[Status]Status{
	StatusPending:        StatusConfirmed,
	StatusConfirmed:      StatusPreparing,
	StatusPreparing:      StatusOutForDelivery,
	StatusOutForDelivery: StatusDelivered,
}

type edge struct {
	from, to Status
}

// permitted is the single source of truth for who may trigger which edge.
// Buyers get exactly one edge: self-service cancellation of a still-pending
// order. Sellers and admins drive the forward chain and the same reject edge.
var permitted = map[edge][]Role{
	{StatusPending, StatusConfirmed}:        {RoleSeller, RoleAdmin},
	{StatusConfirmed, StatusPreparing}:      {RoleSeller, RoleAdmin},
	{StatusPreparing, StatusOutForDelivery}: {RoleSeller, RoleAdmin},
	{StatusOutForDelivery, StatusDelivered}: {RoleSeller, RoleAdmin},
	{StatusPending, StatusCancelled}:        {RoleBuyer, RoleSeller, RoleAdmin},
}

// Next returns the single legal forward successor of from, if any. UIs use
// this to offer only the next state instead of the whole status set.
func Next(from Status) (Status, bool) {
	to, ok := forward[from]
	return to, ok
}

// Terminal reports whether no transition leaves the state.
func Terminal(s Status) bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether role may move an order from one status to
// another. Both the edge and the role annotation must match.
func CanTransition(role Role, from, to Status) bool {
	for _, r := range permitted[edge{from, to}] {
		if r == role {
			return true
		}
	}
	return false
}

// IllegalTransitionError is returned before any mutation when a requested
// edge does not exist, is not allowed for the role, or the actor does not
// own the order in question.
type IllegalTransitionError struct {
	OrderID int64
	From    Status
	To      Status
	Role    Role
	Reason  string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition for order %d: %s -> %s as %s: %s",
		e.OrderID, e.From, e.To, e.Role, e.Reason)
}
