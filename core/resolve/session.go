package resolve

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/memberpulse/memberpulse/model"
)

// SessionState is the per-conversation carry-over between turns: the last
// successfully resolved intent plus bookkeeping. It never stores raw
// question text or retrieved data, only the resolved intent.
type SessionState struct {
	ID        uuid.UUID             `json:"id"`
	Prior     *model.ResolvedIntent `json:"prior,omitempty"`
	Turns     int                   `json:"turns"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// SessionManager keeps session state in memory, keyed by session id.
// All methods are safe for concurrent use.
type SessionManager struct {
	mutex    sync.RWMutex
	sessions map[uuid.UUID]*SessionState
}

// NewSessionManager creates an empty session store
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: map[uuid.UUID]*SessionState{},
	}
}

// Prior returns a copy of the last committed intent for the session, or nil
// for a new or reset session. The copy never shares memory with the stored
// intent, so callers cannot mutate session state from the outside.
func (m *SessionManager) Prior(sessionID uuid.UUID) *model.ResolvedIntent {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	return session.Prior.Clone()
}

// Commit stores the resolved intent of a successful turn as the new prior.
// A failed turn must not be committed: the session keeps the intent of the
// last turn that actually produced a grounding payload.
func (m *SessionManager) Commit(sessionID uuid.UUID, intent *model.ResolvedIntent) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		session = &SessionState{ID: sessionID}
		m.sessions[sessionID] = session
	}

	session.Prior = intent.Clone()
	session.Turns++
	session.UpdatedAt = time.Now()
}

// Turns returns how many turns have been committed for the session
func (m *SessionManager) Turns(sessionID uuid.UUID) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if session, ok := m.sessions[sessionID]; ok {
		return session.Turns
	}
	return 0
}

// Reset drops all state for a session, returning it to the fresh condition
func (m *SessionManager) Reset(sessionID uuid.UUID) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.sessions, sessionID)
}

// Len returns the number of tracked sessions
func (m *SessionManager) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return len(m.sessions)
}
