package converter

import (
	"time"

	"github.com/immxrtalbeast/axenix_signal/internal/domain"
)

type MeetingResponse struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	HostID       string                `json:"host_id,omitempty"`
	Status       domain.MeetingStatus  `json:"status"`
	CreatedAt    time.Time             `json:"created_at"`
	EndedAt      *time.Time            `json:"ended_at,omitempty"`
	Participants []ParticipantResponse `json:"participants"`
}

type ParticipantResponse struct {
	PeerID       string    `json:"peer_id"`
	ConnectionID string    `json:"connection_id"`
	UserID       string    `json:"user_id,omitempty"`
	DisplayName  string    `json:"display_name"`
	JoinedAt     time.Time `json:"joined_at"`
}

// MeetingToApi renders a meeting together with the live roster of its room.
func MeetingToApi(m *domain.Meeting, roster []domain.Participant) *MeetingResponse {
	resp := &MeetingResponse{
		ID:           m.ID,
		Name:         m.Name,
		HostID:       m.HostID,
		Status:       m.Status,
		CreatedAt:    m.CreatedAt,
		Participants: ParticipantsToApi(roster),
	}
	if !m.EndedAt.IsZero() {
		endedAt := m.EndedAt
		resp.EndedAt = &endedAt
	}
	return resp
}

func ParticipantsToApi(roster []domain.Participant) []ParticipantResponse {
	out := make([]ParticipantResponse, 0, len(roster))
	for _, p := range roster {
		out = append(out, ParticipantResponse{
			PeerID:       p.PeerID,
			ConnectionID: p.ConnectionID,
			UserID:       p.UserID,
			DisplayName:  p.DisplayName,
			JoinedAt:     p.JoinedAt,
		})
	}
	return out
}
