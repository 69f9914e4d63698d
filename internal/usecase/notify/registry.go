package notify

import (
	"context"
	"fmt"
	"log/slog"

	"notice-dispatch/internal/domain/entity"
	"notice-dispatch/internal/infra/mailer"
	"notice-dispatch/internal/infra/notifier"
	"notice-dispatch/internal/resilience/circuitbreaker"
	"notice-dispatch/internal/usecase/notice"

	"github.com/sony/gobreaker"
)

// BackendEntry is one configured backend: a stable label, the factory
// reference that builds it and an optional spam sensitivity.
type BackendEntry struct {
	Label           string `yaml:"label"`
	Backend         string `yaml:"backend"`
	SpamSensitivity *int   `yaml:"spam_sensitivity,omitempty"`
}

// BackendDeps are the collaborators factories may use.
type BackendDeps struct {
	Settings *notice.Settings
	Renderer Renderer
	Mailer   mailer.Sender
	Slack    notifier.Notifier
	Logger   *slog.Logger
	Site     Site
}

// Factory builds a backend for the given medium.
type Factory func(medium Medium, deps BackendDeps) (Backend, error)

// DefaultFactories returns the built-in backend references.
func DefaultFactories() map[string]Factory {
	return map[string]Factory{
		"email": NewEmailBackend,
		"slack": NewSlackBackend,
		"log":   NewLogBackend,
	}
}

// Registry is the ordered list of backends built at startup. It is
// read-only after construction.
type Registry struct {
	backends []Backend
}

// NewRegistry wraps already built backends, in order.
func NewRegistry(backends ...Backend) *Registry {
	return &Registry{backends: append([]Backend(nil), backends...)}
}

// LoadBackends builds the registry from configuration. Medium IDs are the
// entry positions. Every backend's Deliver is guarded by a circuit breaker.
func LoadBackends(entries []BackendEntry, factories map[string]Factory, deps BackendDeps) (*Registry, error) {
	seen := make(map[string]bool, len(entries))
	backends := make([]Backend, 0, len(entries))

	for i, e := range entries {
		if e.Label == "" {
			return nil, &ConfigurationError{Msg: fmt.Sprintf("backend #%d has no label", i)}
		}
		if err := entity.ValidateLabel(e.Label); err != nil {
			return nil, &ConfigurationError{Msg: fmt.Sprintf("backend #%d: %v", i, err)}
		}
		if seen[e.Label] {
			return nil, &ConfigurationError{Msg: fmt.Sprintf("duplicate backend label %q", e.Label)}
		}
		seen[e.Label] = true

		factory, ok := factories[e.Backend]
		if !ok {
			return nil, &ConfigurationError{Msg: fmt.Sprintf("backend %q: unknown reference %q", e.Label, e.Backend)}
		}

		sensitivity := entity.DefaultSpamSensitivity
		if e.SpamSensitivity != nil {
			sensitivity = *e.SpamSensitivity
		}
		medium := Medium{ID: i, Label: e.Label, SpamSensitivity: sensitivity}

		b, err := factory(medium, deps)
		if err != nil {
			return nil, fmt.Errorf("build backend %q: %w", e.Label, err)
		}
		backends = append(backends, Guard(b))

		slog.Info("loaded delivery backend",
			slog.String("label", e.Label),
			slog.String("backend", e.Backend),
			slog.Int("spam_sensitivity", sensitivity))
	}

	SetBackendsConfigured(len(backends))
	return NewRegistry(backends...), nil
}

// Backends returns the backends in registry order.
func (r *Registry) Backends() []Backend {
	return r.backends
}

// Len returns the number of backends.
func (r *Registry) Len() int {
	return len(r.backends)
}

// guardedBackend runs Deliver through a per-medium circuit breaker.
type guardedBackend struct {
	Backend
	cb *circuitbreaker.CircuitBreaker
}

// Guard wraps b so repeated transport failures open a breaker and later
// deliveries on that medium fail fast.
func Guard(b Backend) Backend {
	label := b.Medium().Label
	cb := circuitbreaker.New(circuitbreaker.DeliveryConfig(label), func(name string, from, to gobreaker.State) {
		if to == gobreaker.StateOpen {
			RecordCircuitBreakerOpen(label)
		}
	})
	return &guardedBackend{Backend: b, cb: cb}
}

func (g *guardedBackend) Deliver(ctx context.Context, d Delivery) error {
	err := g.cb.Run(func() error {
		return g.Backend.Deliver(ctx, d)
	})
	if circuitbreaker.IsRejection(err) {
		RecordSkipped(g.Medium().Label, "circuit_open")
	}
	return err
}

// BackendStatus describes one configured backend for health reporting.
type BackendStatus struct {
	Label       string `json:"label"`
	CircuitOpen bool   `json:"circuit_breaker_open"`
}

// Health reports the breaker state of every configured backend in order.
func (r *Registry) Health() []BackendStatus {
	out := make([]BackendStatus, 0, len(r.backends))
	for _, b := range r.backends {
		st := BackendStatus{Label: b.Medium().Label}
		if g, ok := b.(*guardedBackend); ok {
			st.CircuitOpen = g.cb.IsOpen()
		}
		out = append(out, st)
	}
	return out
}
