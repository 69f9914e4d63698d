package notifier

import (
	"context"
)

// NoOpNotifier discards every message.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new NoOpNotifier instance.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// Notify does nothing and returns nil.
func (n *NoOpNotifier) Notify(ctx context.Context, msg Message) error {
	return nil
}
