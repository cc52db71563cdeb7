package order

import "fmt"

type Status string

const (
	StatusConfirmed      Status = "confirmed"
	StatusProcessing     Status = "processing"
	StatusShipped        Status = "shipped"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// validTransitions defines allowed state transitions
var validTransitions = map[Status][]Status{
	StatusConfirmed:      {StatusProcessing, StatusCancelled},
	StatusProcessing:     {StatusShipped, StatusCancelled},
	StatusShipped:        {StatusOutForDelivery},
	StatusOutForDelivery: {StatusDelivered},
	StatusDelivered:      {}, // terminal state
	StatusCancelled:      {}, // terminal state
}

func (s Status) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

func (s Status) Terminal() bool {
	next, ok := validTransitions[s]
	return ok && len(next) == 0
}

// CanTransition reports whether an order in from may move to to
func CanTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func transitionError(from, to Status) error {
	switch {
	case !to.Valid():
		return fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	case from.Terminal():
		return fmt.Errorf("%w: %w: status is %s", ErrInvalidTransition, ErrOrderClosed, from)
	default:
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, from, to)
	}
}
