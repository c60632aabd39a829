package order

import (
	"fmt"

	"github.com/example/bistro/pkg/apperr"
	"github.com/example/bistro/pkg/models"
)

// Transitions decides which status changes an order may take. Moving to
// the status an order already has is always allowed.
type Transitions struct {
	name string
	next map[models.OrderStatus][]models.OrderStatus
}

// Permissive allows any status to follow any other.
func Permissive() Transitions {
	next := make(map[models.OrderStatus][]models.OrderStatus, len(models.OrderStatuses))
	for _, from := range models.OrderStatuses {
		next[from] = models.OrderStatuses
	}
	return Transitions{name: "permissive", next: next}
}

// ForwardOnly walks pending through completed one step at a time. Any
// non-terminal order may be cancelled. Terminal orders do not move.
func ForwardOnly() Transitions {
	return Transitions{
		name: "forward",
		next: map[models.OrderStatus][]models.OrderStatus{
			models.StatusPending:   {models.StatusConfirmed, models.StatusCancelled},
			models.StatusConfirmed: {models.StatusPreparing, models.StatusCancelled},
			models.StatusPreparing: {models.StatusReady, models.StatusCancelled},
			models.StatusReady:     {models.StatusCompleted, models.StatusCancelled},
		},
	}
}

func (t Transitions) Name() string {
	return t.name
}

func (t Transitions) Allowed(from, to models.OrderStatus) bool {
	if from == to {
		return true
	}
	for _, s := range t.next[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Check returns a validation error when from→to is not allowed.
func (t Transitions) Check(from, to models.OrderStatus) error {
	if !to.Valid() {
		return apperr.Invalid("status", fmt.Sprintf("unknown status %q", to))
	}
	if !t.Allowed(from, to) {
		return apperr.Invalid("status", fmt.Sprintf("cannot move order from %s to %s", from, to))
	}
	return nil
}
