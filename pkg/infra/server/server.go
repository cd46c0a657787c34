// Package server runs the HTTP server and background components under one
// lifecycle.
package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/kart-io/logger"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// Lifecycle defines the lifecycle interface for servers.
type Lifecycle interface {
	// Start starts the component. It must not block.
	Start(ctx context.Context) error
	// Stop stops the component gracefully.
	Stop(ctx context.Context) error
}

// Runnable represents a component that can be started and stopped.
type Runnable interface {
	Lifecycle
	// Name returns the component name for identification.
	Name() string
}

// Manager starts runnables in order and stops them in reverse order.
type Manager struct {
	mu      sync.Mutex
	servers []Runnable
	started []Runnable
}

// NewManager creates a new manager.
func NewManager(servers ...Runnable) *Manager {
	return &Manager{servers: servers}
}

// Add appends a runnable. It has no effect once Start has run.
func (m *Manager) Add(r Runnable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.servers = append(m.servers, r)
}

// Start starts all runnables. On failure the ones already started are stopped.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started != nil {
		return fmt.Errorf("server manager already started")
	}
	m.started = make([]Runnable, 0, len(m.servers))

	for _, s := range m.servers {
		if err := s.Start(ctx); err != nil {
			for i := len(m.started) - 1; i >= 0; i-- {
				_ = m.started[i].Stop(ctx)
			}
			return fmt.Errorf("failed to start %s: %w", s.Name(), err)
		}
		m.started = append(m.started, s)
		logger.Infow("component started", "name", s.Name())
	}
	return nil
}

// Stop stops all started runnables in reverse order.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for i := len(m.started) - 1; i >= 0; i-- {
		s := m.started[i]
		if err := s.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", s.Name(), err))
			continue
		}
		logger.Infow("component stopped", "name", s.Name())
	}
	m.started = m.started[:0]
	return utilerrors.NewAggregate(errs)
}
