package domain

import (
	"time"

	"github.com/google/uuid"
)

type MeetingStatus string

const (
	MeetingStatusActive MeetingStatus = "active"
	MeetingStatusEnded  MeetingStatus = "ended"
)

// Meeting is the stored record that decides whether a room may be joined.
type Meeting struct {
	ID        string
	Name      string
	HostID    string
	Status    MeetingStatus
	CreatedAt time.Time
	EndedAt   time.Time
}

func NewMeeting(name, hostID string) *Meeting {
	return &Meeting{
		ID:        uuid.New().String(),
		Name:      name,
		HostID:    hostID,
		Status:    MeetingStatusActive,
		CreatedAt: time.Now().UTC(),
	}
}

// IsActive reports whether participants may join the meeting's room.
func (m *Meeting) IsActive() bool {
	return m != nil && m.Status == MeetingStatusActive
}

func (m *Meeting) End() {
	m.Status = MeetingStatusEnded
	m.EndedAt = time.Now().UTC()
}
