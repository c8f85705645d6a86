package service

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/immxrtalbeast/axenix_signal/internal/domain"
	"github.com/immxrtalbeast/axenix_signal/lib/logger/handlers/slogdiscard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *RoomRegistry {
	return NewRoomRegistry(DefaultRoomCapacity, slogdiscard.NewDiscardLogger())
}

func peerIDs(roster []domain.Participant) []string {
	out := make([]string, 0, len(roster))
	for _, p := range roster {
		out = append(out, p.PeerID)
	}
	return out
}

func TestRegistryJoinCreatesRoom(t *testing.T) {
	r := newTestRegistry()

	res, err := r.Join(JoinRequest{MeetingID: "m1", PeerID: "p1", ConnectionID: "c1", UserID: "user-0042"})
	require.NoError(t, err)

	assert.Empty(t, res.Existing)
	assert.Nil(t, res.Replaced)
	assert.Nil(t, res.Displaced)
	assert.Equal(t, "Participant 0042", res.Participant.DisplayName)
	assert.Equal(t, []string{"p1"}, peerIDs(r.Roster("m1")))
	assert.Equal(t, RegistryStats{Rooms: 1, Participants: 1, Connections: 1}, r.Stats())
	requireConsistent(t, r)
}

func TestRegistryDefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultRoomCapacity, NewRoomRegistry(0, nil).Capacity())
	assert.Equal(t, 3, NewRoomRegistry(3, nil).Capacity())
}

func TestRegistryRoomFull(t *testing.T) {
	r := newTestRegistry()
	for i := 0; i < DefaultRoomCapacity; i++ {
		_, err := r.Join(JoinRequest{MeetingID: "m1", PeerID: fmt.Sprintf("p%d", i), ConnectionID: fmt.Sprintf("c%d", i)})
		require.NoError(t, err)
	}
	before := r.Roster("m1")

	_, err := r.Join(JoinRequest{MeetingID: "m1", PeerID: "late", ConnectionID: "c-late"})
	assert.ErrorIs(t, err, ErrRoomFull)

	assert.Equal(t, before, r.Roster("m1"))
	_, _, ok := r.Lookup("c-late")
	assert.False(t, ok)
	requireConsistent(t, r)
}

func TestRegistryFullRoomAdmitsExistingMembers(t *testing.T) {
	r := newTestRegistry()
	for i := 0; i < DefaultRoomCapacity; i++ {
		_, err := r.Join(JoinRequest{MeetingID: "m1", PeerID: fmt.Sprintf("p%d", i), ConnectionID: fmt.Sprintf("c%d", i)})
		require.NoError(t, err)
	}

	// reconnect on a new connection
	res, err := r.Join(JoinRequest{MeetingID: "m1", PeerID: "p0", ConnectionID: "c-reconnect"})
	require.NoError(t, err)
	require.NotNil(t, res.Replaced)
	assert.Equal(t, "c0", res.Replaced.ConnectionID)

	// retry from the same connection
	res, err = r.Join(JoinRequest{MeetingID: "m1", PeerID: "p3", ConnectionID: "c3"})
	require.NoError(t, err)
	assert.Len(t, res.Existing, DefaultRoomCapacity-1)

	// same connection switching to another peer id in the room
	res, err = r.Join(JoinRequest{MeetingID: "m1", PeerID: "p-renamed", ConnectionID: "c5"})
	require.NoError(t, err)
	require.NotNil(t, res.Displaced)
	assert.Equal(t, "p5", res.Displaced.Participant.PeerID)

	assert.Len(t, r.Roster("m1"), DefaultRoomCapacity)
	_, err = r.Join(JoinRequest{MeetingID: "m1", PeerID: "late", ConnectionID: "c-late"})
	assert.ErrorIs(t, err, ErrRoomFull)
	requireConsistent(t, r)
}

func TestRegistryRoomFullKeepsPreviousMembership(t *testing.T) {
	r := NewRoomRegistry(1, slogdiscard.NewDiscardLogger())
	_, err := r.Join(JoinRequest{MeetingID: "m1", PeerID: "p1", ConnectionID: "c1"})
	require.NoError(t, err)
	_, err = r.Join(JoinRequest{MeetingID: "m2", PeerID: "p2", ConnectionID: "c2"})
	require.NoError(t, err)

	_, err = r.Join(JoinRequest{MeetingID: "m1", PeerID: "p2", ConnectionID: "c2"})
	require.ErrorIs(t, err, ErrRoomFull)

	meetingID, p, ok := r.Lookup("c2")
	require.True(t, ok)
	assert.Equal(t, "m2", meetingID)
	assert.Equal(t, "p2", p.PeerID)
	requireConsistent(t, r)
}

func TestRegistryRejoinReplacesStaleEntry(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Join(JoinRequest{MeetingID: "m1", PeerID: "p1", ConnectionID: "c1", DisplayName: "Old"})
	require.NoError(t, err)
	_, err = r.Join(JoinRequest{MeetingID: "m1", PeerID: "p2", ConnectionID: "c2"})
	require.NoError(t, err)

	res, err := r.Join(JoinRequest{MeetingID: "m1", PeerID: "p1", ConnectionID: "c3", DisplayName: "New"})
	require.NoError(t, err)

	require.NotNil(t, res.Replaced)
	assert.Equal(t, "c1", res.Replaced.ConnectionID)
	assert.Equal(t, []string{"p2"}, peerIDs(res.Existing))

	roster := r.Roster("m1")
	require.Len(t, roster, 2)
	for _, p := range roster {
		if p.PeerID == "p1" {
			assert.Equal(t, "c3", p.ConnectionID)
			assert.Equal(t, "New", p.DisplayName)
		}
	}

	_, _, ok := r.Lookup("c1")
	assert.False(t, ok, "stale connection must be unindexed")
	requireConsistent(t, r)

	// The late close of the replaced connection must not evict the new entry.
	_, found := r.Disconnect("c1")
	assert.False(t, found)
	assert.False(t, r.Leave("m1", "p1", "c1").Removed)
	assert.Len(t, r.Roster("m1"), 2)
	requireConsistent(t, r)
}

func TestRegistryRejoinFromSameConnection(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Join(JoinRequest{MeetingID: "m1", PeerID: "p1", ConnectionID: "c1"})
	require.NoError(t, err)

	res, err := r.Join(JoinRequest{MeetingID: "m1", PeerID: "p1", ConnectionID: "c1"})
	require.NoError(t, err)
	assert.NotNil(t, res.Replaced)
	assert.Nil(t, res.Displaced)
	assert.Empty(t, res.Existing)
	assert.Len(t, r.Roster("m1"), 1)
	requireConsistent(t, r)
}

func TestRegistryConnectionMovesToAnotherRoom(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Join(JoinRequest{MeetingID: "m1", PeerID: "p1", ConnectionID: "c1"})
	require.NoError(t, err)

	res, err := r.Join(JoinRequest{MeetingID: "m2", PeerID: "p9", ConnectionID: "c1"})
	require.NoError(t, err)

	require.NotNil(t, res.Displaced)
	assert.Equal(t, "m1", res.Displaced.MeetingID)
	assert.Equal(t, "p1", res.Displaced.Participant.PeerID)
	assert.True(t, res.Displaced.RoomClosed)
	assert.Empty(t, r.Roster("m1"))
	assert.Len(t, r.Rooms(), 1)
	requireConsistent(t, r)
}

func TestRegistryLeaveIsIdempotent(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Join(JoinRequest{MeetingID: "m1", PeerID: "p1", ConnectionID: "c1"})
	require.NoError(t, err)
	_, err = r.Join(JoinRequest{MeetingID: "m1", PeerID: "p2", ConnectionID: "c2"})
	require.NoError(t, err)

	res := r.Leave("m1", "p1", "c1")
	assert.True(t, res.Removed)
	assert.False(t, res.RoomClosed)
	assert.Equal(t, []string{"p2"}, peerIDs(res.Remaining))

	assert.False(t, r.Leave("m1", "p1", "c1").Removed)
	assert.False(t, r.Leave("nope", "p1", "c1").Removed)
	assert.False(t, r.Leave("m1", "p2", "c1").Removed, "foreign connection must not evict")
	requireConsistent(t, r)
}

func TestRegistryDisconnectUnknownConnection(t *testing.T) {
	r := newTestRegistry()
	res, found := r.Disconnect("ghost")
	assert.False(t, found)
	assert.False(t, res.Removed)
}

func TestRegistryScenario(t *testing.T) {
	r := newTestRegistry()

	first, err := r.Join(JoinRequest{MeetingID: "m1", PeerID: "p1", ConnectionID: "c1", UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, first.Existing)

	second, err := r.Join(JoinRequest{MeetingID: "m1", PeerID: "p2", ConnectionID: "c2", UserID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, peerIDs(second.Existing))

	res, found := r.Disconnect("c1")
	require.True(t, found)
	assert.Equal(t, "p1", res.Participant.PeerID)
	assert.False(t, res.RoomClosed)
	assert.Equal(t, []string{"p2"}, peerIDs(r.Roster("m1")))
	require.Len(t, r.Rooms(), 1)

	res, found = r.Disconnect("c2")
	require.True(t, found)
	assert.True(t, res.RoomClosed)
	assert.Empty(t, r.Rooms())
	assert.Equal(t, RegistryStats{}, r.Stats())

	_, found = r.Disconnect("c2")
	assert.False(t, found)
	requireConsistent(t, r)
}

func TestRegistryRandomSequencesStayConsistent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	r := NewRoomRegistry(4, slogdiscard.NewDiscardLogger())

	meetings := []string{"m1", "m2", "m3"}
	for i := 0; i < 5000; i++ {
		meetingID := meetings[rng.Intn(len(meetings))]
		peerID := fmt.Sprintf("p%d", rng.Intn(8))
		connID := fmt.Sprintf("c%d", rng.Intn(12))

		switch rng.Intn(3) {
		case 0:
			_, err := r.Join(JoinRequest{MeetingID: meetingID, PeerID: peerID, ConnectionID: connID})
			if err != nil {
				require.ErrorIs(t, err, ErrRoomFull)
			}
		case 1:
			r.Leave(meetingID, peerID, connID)
		case 2:
			r.Disconnect(connID)
		}

		requireConsistent(t, r)
		for _, room := range r.Rooms() {
			require.LessOrEqual(t, len(room.Participants), r.Capacity())
			require.NotEmpty(t, room.Participants)
		}
	}
}

func TestRegistryConcurrentJoinsRespectCapacity(t *testing.T) {
	r := newTestRegistry()

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.Join(JoinRequest{MeetingID: "m1", PeerID: fmt.Sprintf("p%d", i), ConnectionID: fmt.Sprintf("c%d", i)})
			if err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, DefaultRoomCapacity, admitted)
	assert.Len(t, r.Roster("m1"), DefaultRoomCapacity)
	requireConsistent(t, r)
}
