package orchestrator

import (
	"sync"

	"github.com/google/uuid"

	"ledger-assistant/internal/entities"
)

const defaultHistoryWindow = 4

// SessionManager keeps the per-session conversation log. Turns accumulate
// for the session's lifetime; only the bounded recent window is handed out
// as NL context. Safe for concurrent turns on distinct sessions.
type SessionManager struct {
	mu       sync.Mutex
	window   int
	sessions map[string][]entities.Turn
}

func NewSessionManager(window int) *SessionManager {
	if window <= 0 {
		window = defaultHistoryWindow
	}
	return &SessionManager{
		window:   window,
		sessions: make(map[string][]entities.Turn),
	}
}

// Resolve returns a usable session id, minting one when the caller has none.
func (m *SessionManager) Resolve(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// History returns a copy of the session's recent turns, oldest first.
func (m *SessionManager) History(id string) []entities.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()

	turns := m.sessions[id]
	if len(turns) > m.window {
		turns = turns[len(turns)-m.window:]
	}
	out := make([]entities.Turn, len(turns))
	copy(out, turns)
	return out
}

// Append records a completed turn.
func (m *SessionManager) Append(id string, turn entities.Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = append(m.sessions[id], turn)
}

// Len reports how many turns a session holds, mainly for tests and the
// health endpoint.
func (m *SessionManager) Len(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions[id])
}
