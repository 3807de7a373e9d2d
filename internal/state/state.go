// Package state tracks the shared session: the one driver handle and the id
// of the generation currently allowed to emit output.
package state

import (
	"sync"
	"sync/atomic"

	"intenserp-api/internal/driver"
)

// Manager owns the driver handle and the response id counter. A new request
// claims a fresh id; any loop still holding an older id is superseded and
// must stop at its next check, never mid conversion.
type Manager struct {
	mu         sync.RWMutex
	driver     driver.Driver
	responseID atomic.Int64
	bus        *Bus
}

func NewManager(bus *Bus) *Manager {
	return &Manager{bus: bus}
}

// SetDriver installs (or replaces) the active browser session.
func (m *Manager) SetDriver(d driver.Driver) {
	m.mu.Lock()
	m.driver = d
	m.mu.Unlock()

	if d != nil {
		m.publish(Event{Type: EventDriverStarted})
	} else {
		m.publish(Event{Type: EventDriverStopped})
	}
}

// ClearDriver drops the session, interrupting any loop that checks for it.
func (m *Manager) ClearDriver() {
	m.SetDriver(nil)
}

func (m *Manager) Driver() driver.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.driver
}

// BeginGeneration claims the next response id. Claiming supersedes every
// in-flight generation with a lower id.
func (m *Manager) BeginGeneration(model string) int64 {
	id := m.responseID.Add(1)
	m.publish(Event{Type: EventGenerationStarted, ResponseID: id, Model: model})
	return id
}

// FinishGeneration records how a generation ended.
func (m *Manager) FinishGeneration(id int64, outcome string) {
	m.publish(Event{Type: EventGenerationFinished, ResponseID: id, Outcome: outcome})
}

func (m *Manager) CurrentResponseID() int64 {
	return m.responseID.Load()
}

// Superseded reports whether a newer generation has claimed the session.
func (m *Manager) Superseded(id int64) bool {
	return m.responseID.Load() != id
}

func (m *Manager) publish(e Event) {
	if m.bus != nil {
		m.bus.Publish(e)
	}
}
