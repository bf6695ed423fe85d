package clients

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client represents the control connection belonging to one logical client
type Client struct {
	Control *websocket.Conn
}

// Manager tracks multiple clients keyed by clientID
type Manager struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewManager() *Manager {
	return &Manager{clients: make(map[string]*Client)}
}

// NewClientID returns a fresh id for a client that did not name itself.
func NewClientID() string {
	return uuid.NewString()
}

// SetControl installs conn as the control connection for id and returns the
// connection it replaced, if any. The caller closes the old connection.
func (m *Manager) SetControl(id string, conn *websocket.Conn) (old *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		c = &Client{}
		m.clients[id] = c
	}
	if c.Control != nil && c.Control != conn {
		old = c.Control
	}
	c.Control = conn
	return
}

// RemoveControl forgets conn if it is still the control connection for id.
func (m *Manager) RemoveControl(id string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		return
	}
	if c.Control == conn {
		delete(m.clients, id)
	}
}

// Control returns the current control connection for id.
func (m *Manager) Control(id string) *websocket.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.clients[id]; ok {
		return c.Control
	}
	return nil
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// ForEachClient executes fn with a snapshot of client IDs.
func (m *Manager) ForEachClient(fn func(id string)) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.clients))
	for id := range m.clients {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	for _, id := range ids {
		fn(id)
	}
}

// CloseAll closes and forgets every control connection.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(m.clients))
	for id, c := range m.clients {
		if c.Control != nil {
			conns = append(conns, c.Control)
		}
		delete(m.clients, id)
	}
	m.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
}
