package app

import (
	"sync"

	"trivia-room-service/internal/domain"
)

const mailboxSize = 32

// Hub fans events out to connections, grouped by room code. Publishing never
// blocks: a full mailbox loses its oldest pending event.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]chan domain.Event
	groups map[string]map[string]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		conns:  make(map[string]chan domain.Event),
		groups: make(map[string]map[string]struct{}),
	}
}

// Subscribe opens the mailbox for connectionID. The caller must invoke the
// returned cancel function to release it; cancel also leaves every group.
func (h *Hub) Subscribe(connectionID string) (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, mailboxSize)

	h.mu.Lock()
	if old, ok := h.conns[connectionID]; ok {
		close(old)
	}
	h.conns[connectionID] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if cur, ok := h.conns[connectionID]; ok && cur == ch {
			delete(h.conns, connectionID)
			close(ch)
		}
		for code, members := range h.groups {
			delete(members, connectionID)
			if len(members) == 0 {
				delete(h.groups, code)
			}
		}
	}
	return ch, cancel
}

// AddToGroup makes connectionID receive broadcasts for code.
func (h *Hub) AddToGroup(code, connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.groups[code]
	if !ok {
		members = make(map[string]struct{})
		h.groups[code] = members
	}
	members[connectionID] = struct{}{}
}

// RemoveFromGroup stops broadcasts for code reaching connectionID.
func (h *Hub) RemoveFromGroup(code, connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.groups[code]
	if !ok {
		return
	}
	delete(members, connectionID)
	if len(members) == 0 {
		delete(h.groups, code)
	}
}

// DropGroup forgets every member of code.
func (h *Hub) DropGroup(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.groups, code)
}

// GroupSize returns how many connections receive broadcasts for code.
func (h *Hub) GroupSize(code string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[code])
}

// Send delivers ev to a single connection.
func (h *Hub) Send(connectionID string, ev domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if ch, ok := h.conns[connectionID]; ok {
		deliver(ch, ev)
	}
}

// Broadcast delivers ev to every member of code.
func (h *Hub) Broadcast(code string, ev domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id := range h.groups[code] {
		if ch, ok := h.conns[id]; ok {
			deliver(ch, ev)
		}
	}
}

func deliver(ch chan domain.Event, ev domain.Event) {
	select {
	case ch <- ev:
	default:
		// mailbox full: drop the oldest pending event
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}
