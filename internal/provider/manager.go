package provider

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	waypost "github.com/skyefallon/waypost"
	"github.com/skyefallon/waypost/internal/eventbus"
)

// Factory builds a provider from its declaration. Construction performs no
// I/O; the manager drives the connect.
type Factory func(name string, cfg Config) waypost.ToolProvider

// Manager owns the full lifecycle of external tool providers: it connects
// them in declaration order, tracks the connected set, and tears them down
// in reverse order.
type Manager struct {
	registry *Registry
	factory  Factory
	eventBus eventbus.EventBus

	connectTimeout time.Duration
	maxRefresh     int

	capMutex     sync.RWMutex
	capabilities map[string][]waypost.Capability
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithFactory overrides the provider construction function.
func WithFactory(factory Factory) ManagerOption {
	return func(m *Manager) {
		m.factory = factory
	}
}

// WithEventBus attaches an event bus for lifecycle events.
func WithEventBus(eventBus eventbus.EventBus) ManagerOption {
	return func(m *Manager) {
		m.eventBus = eventBus
	}
}

// WithConnectTimeout bounds each individual connect attempt.
// Zero disables the per-provider deadline.
func WithConnectTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.connectTimeout = timeout
	}
}

// WithMaxConcurrentRefresh bounds the number of concurrent capability
// refresh calls.
func WithMaxConcurrentRefresh(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.maxRefresh = n
		}
	}
}

// NewManager creates a provider lifecycle manager.
func NewManager(options ...ManagerOption) *Manager {
	m := &Manager{
		registry:     NewRegistry(),
		factory:      NewStdio,
		maxRefresh:   4,
		capabilities: make(map[string][]waypost.Capability),
	}

	for _, option := range options {
		option(m)
	}

	return m
}

// Registry returns the set of connected providers in connection order.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// StartAll connects every declared provider, strictly in declaration order.
// Disabled providers and providers without a command are skipped. A failed
// connect is logged and does not affect the remaining declarations. The
// only error returned is context cancellation.
func (m *Manager) StartAll(ctx context.Context, decls []Declaration) error {
	for _, decl := range decls {
		if err := ctx.Err(); err != nil {
			return waypost.NewCancelledError("provider_start", err)
		}

		if !decl.Config.EnabledOrDefault() {
			log.Printf("Skipping disabled tool provider '%s'", decl.Name)
			m.publish(ctx, eventbus.EventProviderSkipped, decl.Name, map[string]interface{}{
				"reason": "disabled",
			})
			continue
		}

		if decl.Config.Command == "" {
			log.Printf("Skipping tool provider '%s': no command configured", decl.Name)
			m.publish(ctx, eventbus.EventProviderSkipped, decl.Name, map[string]interface{}{
				"reason": "no_command",
			})
			continue
		}

		m.publish(ctx, eventbus.EventProviderConnectStarted, decl.Name, nil)

		p := m.factory(decl.Name, decl.Config)

		if err := m.connect(ctx, p); err != nil {
			log.Printf("Failed to connect tool provider '%s': %v", decl.Name, err)
			m.publish(ctx, eventbus.EventProviderConnectFailure, decl.Name, map[string]interface{}{
				"error": err.Error(),
			})
			continue
		}

		m.registry.Add(decl.Name, p)
		log.Printf("Connected tool provider '%s'", decl.Name)
		m.publish(ctx, eventbus.EventProviderConnectSuccess, decl.Name, nil)
	}

	return nil
}

// connect runs one provider's handshake under the configured deadline.
func (m *Manager) connect(ctx context.Context, p waypost.ToolProvider) error {
	if m.connectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.connectTimeout)
		defer cancel()
	}

	if err := p.Connect(ctx); err != nil {
		return waypost.NewProviderConnectError(p.Name(), err)
	}
	return nil
}

// CloseAll tears down every connected provider in the reverse of connection
// order. A failed close is logged and does not stop the remaining closes;
// individual failures never surface to the caller. With no connected
// providers this is a no-op. Providers exposing Close are closed through
// it; Disconnect is the fallback. Every entry leaves the registry whether
// its close succeeded or not, so a repeated call finds nothing to do.
func (m *Manager) CloseAll(ctx context.Context) {
	names := m.registry.Names()

	for i := len(names) - 1; i >= 0; i-- {
		name := names[i]
		p, exists := m.registry.Get(name)
		if !exists {
			continue
		}
		m.registry.Remove(name)

		if err := m.close(ctx, p); err != nil {
			log.Printf("Failed to close tool provider '%s': %v", name, err)
			m.publish(ctx, eventbus.EventProviderCloseFailure, name, map[string]interface{}{
				"error": err.Error(),
			})
			continue
		}

		log.Printf("Closed tool provider '%s'", name)
		m.publish(ctx, eventbus.EventProviderClosed, name, nil)
	}
}

// close shuts one provider down, preferring Close over Disconnect.
func (m *Manager) close(ctx context.Context, p waypost.ToolProvider) error {
	if closer, ok := p.(io.Closer); ok {
		return closer.Close()
	}
	if disconnector, ok := p.(waypost.Disconnector); ok {
		return disconnector.Disconnect(ctx)
	}
	return nil
}

// RefreshCapabilities queries every connected provider for its current
// capabilities, bounded by the configured concurrency. Results replace the
// cached capability set per provider; a provider that fails to answer keeps
// its previous entry.
func (m *Manager) RefreshCapabilities(ctx context.Context) map[string][]waypost.Capability {
	names := m.registry.Names()

	refreshPool := pool.New().WithMaxGoroutines(m.maxRefresh)

	for _, name := range names {
		name := name
		refreshPool.Go(func() {
			p, exists := m.registry.Get(name)
			if !exists {
				return
			}

			caps, err := p.Capabilities(ctx)
			if err != nil {
				log.Printf("Capability refresh failed for provider '%s': %v", name, err)
				return
			}

			m.capMutex.Lock()
			m.capabilities[name] = caps
			m.capMutex.Unlock()
		})
	}

	refreshPool.Wait()

	m.capMutex.RLock()
	defer m.capMutex.RUnlock()

	snapshot := make(map[string][]waypost.Capability, len(m.capabilities))
	for name, caps := range m.capabilities {
		snapshot[name] = caps
	}
	return snapshot
}

func (m *Manager) publish(ctx context.Context, eventType eventbus.EventType, name string, metadata map[string]interface{}) {
	if m.eventBus == nil {
		return
	}

	event := eventbus.NewEvent(eventType, name, "provider.Manager", metadata)
	if err := m.eventBus.Publish(ctx, event); err != nil {
		log.Printf("Failed to publish %s event for provider '%s': %v", eventType, name, err)
	}
}
