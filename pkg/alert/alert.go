package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/siftlabs/sift/pkg/post"
	"github.com/siftlabs/sift/pkg/score"
)

// Notification is the data sent when a batch produces green posts worth an
// engagement response.
type Notification struct {
	Project string `json:"project"`
	RunID   string `json:"run_id"`
	Greens  []Hit  `json:"greens"`
}

// Hit pairs a green result with the post that earned it.
type Hit struct {
	Post   post.Post    `json:"post"`
	Result score.Result `json:"result"`
}

// Notifier delivers notifications to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Manager broadcasts notifications to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new alert manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return len(m.notifiers) > 0
}

// Broadcast sends a notification to all registered notifiers.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}
