package orders

import (
	"context"
	"time"
)

// Service enforces the status state machine on top of the record store.
// Every status mutation in the system goes through Transition.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Transition moves one order to target on behalf of actor. It rejects the
// request before any mutation when the edge does not exist in the status
// graph, the actor's role is not annotated on the edge, or the actor does
// not own the order (buyers: their orders; sellers: their shop's orders).
func (s *Service) Transition(ctx context.Context, orderID int64, target Status, actor Actor) (*Order, error) {
	o, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	illegal := func(reason string) error {
		return &IllegalTransitionError{
			OrderID: orderID,
			From:    o.Status,
			To:      target,
			Role:    actor.Role,
			Reason:  reason,
		}
	}

	switch actor.Role {
	case RoleBuyer:
		if o.BuyerID != actor.UserID {
			return nil, illegal("order belongs to a different buyer")
		}
	case RoleSeller:
		if o.ShopID != actor.ShopID {
			return nil, illegal("order belongs to a different shop")
		}
	case RoleAdmin:
		// admins operate on any order
	default:
		return nil, illegal("unknown role")
	}

	if Terminal(o.Status) {
		return nil, illegal("status is terminal")
	}
	if !CanTransition(actor.Role, o.Status, target) {
		return nil, illegal("edge not permitted")
	}

	if err := s.store.UpdateStatus(ctx, orderID, o.Status, target); err != nil {
		return nil, err
	}

	o.Status = target
	o.UpdatedAt = time.Now()
	return o, nil
}
