package service

import (
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/immxrtalbeast/axenix_signal/internal/domain"
)

const DefaultRoomCapacity = 10

var ErrRoomFull = errors.New("room is full")

type JoinRequest struct {
	MeetingID    string
	PeerID       string
	ConnectionID string
	UserID       string
	DisplayName  string
}

type JoinResult struct {
	// Participant is the record that was inserted.
	Participant domain.Participant
	// Existing is the roster the joiner found in the room, excluding itself.
	Existing []domain.Participant
	// Replaced is the stale entry that carried the same peer id, if any.
	Replaced *domain.Participant
	// Displaced is the membership the joining connection backed before this join.
	Displaced *LeaveResult
}

type LeaveResult struct {
	Removed     bool
	MeetingID   string
	Participant domain.Participant
	Remaining   []domain.Participant
	RoomClosed  bool
}

type RoomSnapshot struct {
	MeetingID    string               `json:"meetingId"`
	Participants []domain.Participant `json:"participants"`
}

type RegistryStats struct {
	Rooms        int `json:"rooms"`
	Participants int `json:"participants"`
	Connections  int `json:"connections"`
}

type connectionRef struct {
	meetingID string
	peerID    string
}

// RoomRegistry owns room membership and the connection index.
// Both maps change together under mu; a room with no participants is never stored.
type RoomRegistry struct {
	mu          sync.RWMutex
	capacity    int
	rooms       map[string]map[string]domain.Participant
	connections map[string]connectionRef
	log         *slog.Logger
}

func NewRoomRegistry(capacity int, log *slog.Logger) *RoomRegistry {
	if capacity <= 0 {
		capacity = DefaultRoomCapacity
	}
	if log == nil {
		log = slog.Default()
	}
	return &RoomRegistry{
		capacity:    capacity,
		rooms:       make(map[string]map[string]domain.Participant),
		connections: make(map[string]connectionRef),
		log:         log,
	}
}

func (r *RoomRegistry) Capacity() int {
	return r.capacity
}

func (r *RoomRegistry) Join(req JoinRequest) (*JoinResult, error) {
	const op = "service.registry.join"
	log := r.log.With(
		slog.String("op", op),
		slog.String("meeting_id", req.MeetingID),
		slog.String("peer_id", req.PeerID),
		slog.String("connection_id", req.ConnectionID),
	)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.occupancyLocked(req) >= r.capacity {
		log.Info("room is full", slog.Int("capacity", r.capacity))
		return nil, ErrRoomFull
	}

	result := &JoinResult{}

	if ref, ok := r.connections[req.ConnectionID]; ok && ref != (connectionRef{req.MeetingID, req.PeerID}) {
		if prev, removed := r.removeLocked(ref.meetingID, ref.peerID); removed {
			displaced := r.leaveResultLocked(ref.meetingID, prev)
			result.Displaced = &displaced
			log.Info("connection moved to another peer",
				slog.String("previous_meeting_id", ref.meetingID),
				slog.String("previous_peer_id", ref.peerID),
			)
		}
	}

	if stale, removed := r.removeLocked(req.MeetingID, req.PeerID); removed {
		result.Replaced = &stale
		log.Info("replacing stale participant", slog.String("stale_connection_id", stale.ConnectionID))
	}

	room, ok := r.rooms[req.MeetingID]
	if !ok {
		room = make(map[string]domain.Participant)
		r.rooms[req.MeetingID] = room
		log.Debug("room created")
	}

	result.Existing = snapshot(room)

	participant := domain.NewParticipant(req.PeerID, req.ConnectionID, req.UserID, req.DisplayName)
	room[participant.PeerID] = participant
	r.connections[req.ConnectionID] = connectionRef{meetingID: req.MeetingID, peerID: req.PeerID}
	result.Participant = participant

	log.Info("participant joined",
		slog.String("display_name", participant.DisplayName),
		slog.Int("participants", len(room)),
	)
	return result, nil
}

// Leave removes the peer when the given connection still owns it.
// A connection that has been superseded by a rejoin cannot evict the new entry.
func (r *RoomRegistry) Leave(meetingID, peerID, connectionID string) LeaveResult {
	const op = "service.registry.leave"

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.rooms[meetingID][peerID]
	if !ok || (connectionID != "" && p.ConnectionID != connectionID) {
		r.log.Debug("leave ignored",
			slog.String("op", op),
			slog.String("meeting_id", meetingID),
			slog.String("peer_id", peerID),
			slog.String("connection_id", connectionID),
		)
		return LeaveResult{MeetingID: meetingID}
	}

	r.removeLocked(meetingID, peerID)
	res := r.leaveResultLocked(meetingID, p)

	r.log.Info("participant left",
		slog.String("op", op),
		slog.String("meeting_id", meetingID),
		slog.String("peer_id", peerID),
		slog.Int("remaining", len(res.Remaining)),
	)
	return res
}

// Disconnect evicts whatever participant the connection backs.
// The second return value is false when the connection is not indexed.
func (r *RoomRegistry) Disconnect(connectionID string) (LeaveResult, bool) {
	const op = "service.registry.disconnect"

	r.mu.Lock()
	defer r.mu.Unlock()

	ref, ok := r.connections[connectionID]
	if !ok {
		return LeaveResult{}, false
	}

	p, removed := r.removeLocked(ref.meetingID, ref.peerID)
	if !removed {
		delete(r.connections, connectionID)
		r.log.Warn("dangling connection index entry",
			slog.String("op", op),
			slog.String("connection_id", connectionID),
		)
		return LeaveResult{MeetingID: ref.meetingID}, false
	}

	res := r.leaveResultLocked(ref.meetingID, p)
	r.log.Info("participant disconnected",
		slog.String("op", op),
		slog.String("meeting_id", ref.meetingID),
		slog.String("peer_id", ref.peerID),
		slog.String("connection_id", connectionID),
		slog.Bool("room_closed", res.RoomClosed),
	)
	return res, true
}

func (r *RoomRegistry) Roster(meetingID string) []domain.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.rooms[meetingID])
}

// Lookup resolves a connection to the meeting and participant it backs.
func (r *RoomRegistry) Lookup(connectionID string) (string, domain.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ref, ok := r.connections[connectionID]
	if !ok {
		return "", domain.Participant{}, false
	}
	p, ok := r.rooms[ref.meetingID][ref.peerID]
	return ref.meetingID, p, ok
}

func (r *RoomRegistry) Rooms() []RoomSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]RoomSnapshot, 0, len(r.rooms))
	for id, room := range r.rooms {
		out = append(out, RoomSnapshot{MeetingID: id, Participants: snapshot(room)})
	}
	slices.SortFunc(out, func(a, b RoomSnapshot) int {
		return strings.Compare(a.MeetingID, b.MeetingID)
	})
	return out
}

func (r *RoomRegistry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := RegistryStats{Rooms: len(r.rooms), Connections: len(r.connections)}
	for _, room := range r.rooms {
		stats.Participants += len(room)
	}
	return stats
}

// occupancyLocked is the room size the join competes against: entries the
// join itself would replace or displace from the same room are not counted.
func (r *RoomRegistry) occupancyLocked(req JoinRequest) int {
	room := r.rooms[req.MeetingID]
	size := len(room)
	if _, ok := room[req.PeerID]; ok {
		size--
	}
	if ref, ok := r.connections[req.ConnectionID]; ok && ref.meetingID == req.MeetingID && ref.peerID != req.PeerID {
		size--
	}
	return size
}

func (r *RoomRegistry) removeLocked(meetingID, peerID string) (domain.Participant, bool) {
	room, ok := r.rooms[meetingID]
	if !ok {
		return domain.Participant{}, false
	}
	p, ok := room[peerID]
	if !ok {
		return domain.Participant{}, false
	}

	delete(room, peerID)
	if ref, ok := r.connections[p.ConnectionID]; ok && ref == (connectionRef{meetingID, peerID}) {
		delete(r.connections, p.ConnectionID)
	}
	if len(room) == 0 {
		delete(r.rooms, meetingID)
	}
	return p, true
}

func (r *RoomRegistry) leaveResultLocked(meetingID string, p domain.Participant) LeaveResult {
	room, ok := r.rooms[meetingID]
	return LeaveResult{
		Removed:     true,
		MeetingID:   meetingID,
		Participant: p,
		Remaining:   snapshot(room),
		RoomClosed:  !ok,
	}
}

func snapshot(room map[string]domain.Participant) []domain.Participant {
	out := make([]domain.Participant, 0, len(room))
	for _, p := range room {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b domain.Participant) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		return strings.Compare(a.PeerID, b.PeerID)
	})
	return out
}
