package service

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/immxrtalbeast/axenix_signal/internal/domain"
	"github.com/stretchr/testify/require"
)

var errUnknownConnection = errors.New("unknown connection")

type sentEvent struct {
	To      string
	Event   domain.EventType
	Payload json.RawMessage
}

// recordingTransport is an in-memory Transport that records every delivered event.
type recordingTransport struct {
	mu     sync.Mutex
	conns  map[string]bool
	groups map[string]map[string]bool
	sent   []sentEvent
}

func newRecordingTransport(connectionIDs ...string) *recordingTransport {
	tr := &recordingTransport{
		conns:  make(map[string]bool),
		groups: make(map[string]map[string]bool),
	}
	for _, id := range connectionIDs {
		tr.conns[id] = true
	}
	return tr
}

func (tr *recordingTransport) drop(connectionID string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	delete(tr.conns, connectionID)
	for _, members := range tr.groups {
		delete(members, connectionID)
	}
}

func (tr *recordingTransport) JoinGroup(connectionID, group string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.groups[group] == nil {
		tr.groups[group] = make(map[string]bool)
	}
	tr.groups[group][connectionID] = true
}

func (tr *recordingTransport) LeaveGroup(connectionID, group string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	delete(tr.groups[group], connectionID)
}

func (tr *recordingTransport) SendTo(connectionID string, event domain.EventType, payload any) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if !tr.conns[connectionID] {
		return errUnknownConnection
	}
	tr.recordLocked(connectionID, event, payload)
	return nil
}

func (tr *recordingTransport) BroadcastToGroup(group string, event domain.EventType, payload any, excludeConnectionID string) int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	n := 0
	for id := range tr.groups[group] {
		if id == excludeConnectionID || !tr.conns[id] {
			continue
		}
		tr.recordLocked(id, event, payload)
		n++
	}
	return n
}

func (tr *recordingTransport) recordLocked(to string, event domain.EventType, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	tr.sent = append(tr.sent, sentEvent{To: to, Event: event, Payload: raw})
}

func (tr *recordingTransport) eventsFor(connectionID string, event domain.EventType) []sentEvent {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	var out []sentEvent
	for _, e := range tr.sent {
		if e.To == connectionID && e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (tr *recordingTransport) eventsOf(event domain.EventType) []sentEvent {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	var out []sentEvent
	for _, e := range tr.sent {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (tr *recordingTransport) inGroup(group, connectionID string) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.groups[group][connectionID]
}

func (tr *recordingTransport) reset() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.sent = nil
}

func decodeSent[T any](t *testing.T, e sentEvent) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(e.Payload, &v))
	return v
}

// requireConsistent checks that the connection index and the rooms describe the same participants.
func requireConsistent(t *testing.T, r *RoomRegistry) {
	t.Helper()
	r.mu.RLock()
	defer r.mu.RUnlock()

	for connID, ref := range r.connections {
		p, ok := r.rooms[ref.meetingID][ref.peerID]
		require.Truef(t, ok, "connection %s indexes missing participant %s/%s", connID, ref.meetingID, ref.peerID)
		require.Equal(t, connID, p.ConnectionID)
	}
	total := 0
	for meetingID, room := range r.rooms {
		require.NotEmptyf(t, room, "empty room %s must not be stored", meetingID)
		for peerID, p := range room {
			require.Equal(t, peerID, p.PeerID)
			ref, ok := r.connections[p.ConnectionID]
			require.Truef(t, ok, "participant %s/%s is not indexed", meetingID, peerID)
			require.Equal(t, connectionRef{meetingID, peerID}, ref)
			total++
		}
	}
	require.Equal(t, total, len(r.connections))
}
