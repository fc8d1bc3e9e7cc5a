package collab

import (
	"log/slog"
	"slices"
	"sync"
)

// PresenceManager tracks the cursor and selection of every client in a room.
type PresenceManager struct {
	mu        sync.RWMutex
	presences map[string]*PresencePayload // clientID -> presence
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{
		presences: make(map[string]*PresencePayload),
	}
}

// Update edits a client's presence in place and returns a copy of the result.
func (pm *PresenceManager) Update(clientID string, fn func(p *PresencePayload)) PresencePayload {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	p, ok := pm.presences[clientID]
	if !ok {
		p = &PresencePayload{}
		pm.presences[clientID] = p
	}
	fn(p)
	return clonePresence(p)
}

func (pm *PresenceManager) Remove(clientID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.presences, clientID)
}

func (pm *PresenceManager) GetAll() map[string]*PresencePayload {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	result := make(map[string]*PresencePayload, len(pm.presences))
	for k, v := range pm.presences {
		c := clonePresence(v)
		result[k] = &c
	}
	return result
}

func (pm *PresenceManager) StateMessage() *Message {
	msg, err := newMessage(TypePresenceState, PresenceStatePayload{Presences: pm.GetAll()})
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return msg
}

func clonePresence(p *PresencePayload) PresencePayload {
	c := *p
	if p.Cursor != nil {
		cur := *p.Cursor
		c.Cursor = &cur
	}
	c.Selection = slices.Clone(p.Selection)
	return c
}
