package events

import (
	"context"

	"masterannonce/internal/models"
)

// Notifier receives activity after a successful state change.
type Notifier interface {
	Notify(ctx context.Context, a models.Activity)
}

// Multi delivers each activity to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, a models.Activity) {
	for _, n := range m {
		n.Notify(ctx, a)
	}
}
