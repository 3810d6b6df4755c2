package wizard

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"payreq/internal/bankdir"
	"payreq/internal/domain"
	"payreq/internal/submission"
	"payreq/pkg/errors"
	"payreq/pkg/logger"
)

// Manager hands out wizard sessions and enforces that each draft is owned
// by exactly one wizard. Re-opening after completion or cancellation always
// means a brand new session; terminated wizards never leak state forward.
type Manager struct {
	directory *bankdir.Service
	submitter submission.Client
	policy    Policy
	logger    logger.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Wizard
}

// NewManager constructs a session manager.
func NewManager(directory *bankdir.Service, submitter submission.Client, policy Policy, log logger.Logger) *Manager {
	if policy.DomesticCurrencies == nil {
		policy.DomesticCurrencies = make(map[domain.Currency]bool)
	}
	return &Manager{
		directory: directory,
		submitter: submitter,
		policy:    policy,
		logger:    log,
		sessions:  make(map[uuid.UUID]*Wizard),
	}
}

// Create opens a fresh wizard session in the Drafting state.
func (m *Manager) Create() *Wizard {
	w := New(uuid.New(), m.directory, m.submitter, m.policy, m.logger)

	m.mu.Lock()
	m.sessions[w.ID()] = w
	m.mu.Unlock()

	m.logger.Info("Wizard session opened", map[string]interface{}{
		"session_id": w.ID().String(),
	})
	return w
}

// Get returns the wizard for a session id.
func (m *Manager) Get(id uuid.UUID) (*Wizard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.sessions[id]
	if !ok {
		return nil, errors.ErrSessionNotFound
	}
	return w, nil
}

// Remove drops a session from the registry.
func (m *Manager) Remove(id uuid.UUID) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Cleanup removes terminated sessions and abandoned ones older than ttl.
// Returns how many were dropped.
func (m *Manager) Cleanup(ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-ttl)
	for id, w := range m.sessions {
		if w.State().Terminal() || w.CreatedAt().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
