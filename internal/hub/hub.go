// Package hub is the WebSocket transport behind the signaling service:
// it tracks live connections and their broadcast groups.
package hub

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/immxrtalbeast/axenix_signal/internal/domain"
	"github.com/immxrtalbeast/axenix_signal/lib/logger/sl"
)

var ErrConnectionNotFound = errors.New("connection not found")

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	groups  map[string]map[string]*Client
	log     *slog.Logger
}

func New(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		clients: make(map[string]*Client),
		groups:  make(map[string]map[string]*Client),
		log:     log,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Debug("client registered", slog.String("connection_id", c.id), slog.Int("total", total))
}

// Unregister drops the connection from every group and closes its send queue.
func (h *Hub) Unregister(connectionID string) {
	h.mu.Lock()
	c, ok := h.clients[connectionID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, connectionID)
	for group := range c.groups {
		h.leaveLocked(connectionID, group)
	}
	total := len(h.clients)
	h.mu.Unlock()

	c.Close()
	h.log.Debug("client unregistered", slog.String("connection_id", connectionID), slog.Int("total", total))
}

func (h *Hub) JoinGroup(connectionID, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[connectionID]
	if !ok {
		return
	}
	members, ok := h.groups[group]
	if !ok {
		members = make(map[string]*Client)
		h.groups[group] = members
	}
	members[connectionID] = c
	c.groups[group] = struct{}{}
}

func (h *Hub) LeaveGroup(connectionID, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(connectionID, group)
}

func (h *Hub) SendTo(connectionID string, event domain.EventType, payload any) error {
	frame, err := encode(event, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	c, ok := h.clients[connectionID]
	h.mu.RUnlock()
	if !ok {
		return ErrConnectionNotFound
	}

	return c.TrySend(frame)
}

// BroadcastToGroup enqueues the event for every group member except
// excludeConnectionID and returns how many members accepted it.
func (h *Hub) BroadcastToGroup(group string, event domain.EventType, payload any, excludeConnectionID string) int {
	frame, err := encode(event, payload)
	if err != nil {
		h.log.Error("failed to encode broadcast", slog.String("type", string(event)), sl.Err(err))
		return 0
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.groups[group]))
	for id, c := range h.groups[group] {
		if id == excludeConnectionID {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if err := c.TrySend(frame); err != nil {
			h.log.Debug("dropping broadcast event",
				slog.String("connection_id", c.id),
				slog.String("type", string(event)),
				sl.Err(err),
			)
			continue
		}
		sent++
	}
	return sent
}

func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) leaveLocked(connectionID, group string) {
	members, ok := h.groups[group]
	if !ok {
		return
	}
	if c, ok := members[connectionID]; ok {
		delete(c.groups, group)
	}
	delete(members, connectionID)
	if len(members) == 0 {
		delete(h.groups, group)
	}
}

func encode(event domain.EventType, payload any) ([]byte, error) {
	env, err := domain.NewEnvelope(event, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}
