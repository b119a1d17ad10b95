package state

import "sync"

type memoryManager struct {
	mu       sync.Mutex
	sessions map[int64]Session
}

// NewMemoryManager constructs an in-memory Manager. Continuations do not
// survive a restart.
func NewMemoryManager() Manager {
	return &memoryManager{sessions: make(map[int64]Session)}
}

func (m *memoryManager) Get(userID int64) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	return s, ok
}

func (m *memoryManager) Set(userID int64, s Session) {
	if s.State == StateIdle {
		m.Clear(userID)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = s
}

func (m *memoryManager) Take(userID int64) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
	}
	return s, ok
}

func (m *memoryManager) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

func (m *memoryManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
