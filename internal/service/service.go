package service

import (
	"context"

	"github.com/immxrtalbeast/axenix_signal/internal/domain"
)

// Transport is the room-capable messaging channel the signaling core drives.
// Sends never block; a send to an unknown connection returns an error.
type Transport interface {
	JoinGroup(connectionID, group string)
	LeaveGroup(connectionID, group string)
	SendTo(connectionID string, event domain.EventType, payload any) error
	BroadcastToGroup(group string, event domain.EventType, payload any, excludeConnectionID string) int
}

type SignalingHandler interface {
	Connect(connectionID string)
	HandleMessage(ctx context.Context, connectionID string, data []byte)
	Disconnect(connectionID string)
}

type MeetingInteractor interface {
	CreateMeeting(ctx context.Context, name string, hostID string) (*domain.Meeting, error)
	GetMeeting(ctx context.Context, id string) (*domain.Meeting, error)
	EndMeeting(ctx context.Context, id string) (*domain.Meeting, error)
	ListMeetings(ctx context.Context) ([]*domain.Meeting, error)
}

type RoomInspector interface {
	Rooms() []RoomSnapshot
	Roster(meetingID string) []domain.Participant
	Stats() RegistryStats
}
