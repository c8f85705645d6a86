package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/immxrtalbeast/axenix_signal/internal/domain"
	"github.com/immxrtalbeast/axenix_signal/internal/repository"
	"github.com/immxrtalbeast/axenix_signal/lib/logger/sl"
)

const meetingLookupTimeout = 5 * time.Second

var (
	ErrMeetingUnavailable = errors.New("meeting is unavailable")
	ErrUnsupportedEvent   = fmt.Errorf("%w: unsupported event type", domain.ErrInvalidMessage)
)

// SignalingService binds transport events to the room registry and the relay.
type SignalingService struct {
	meetings  repository.MeetingRepository
	registry  *RoomRegistry
	relay     *Relay
	transport Transport
	log       *slog.Logger

	// mu orders membership changes together with their group updates and
	// notifications, so a roster and the joined/left events never disagree.
	mu sync.Mutex
}

func NewSignalingService(
	meetings repository.MeetingRepository,
	registry *RoomRegistry,
	relay *Relay,
	transport Transport,
	log *slog.Logger,
) *SignalingService {
	if log == nil {
		log = slog.Default()
	}
	return &SignalingService{
		meetings:  meetings,
		registry:  registry,
		relay:     relay,
		transport: transport,
		log:       log,
	}
}

func (s *SignalingService) Connect(connectionID string) {
	s.log.Debug("connection established", slog.String("connection_id", connectionID))
	s.send(connectionID, domain.EventConnected, domain.ConnectedEvent{ConnectionID: connectionID})
}

func (s *SignalingService) HandleMessage(ctx context.Context, connectionID string, data []byte) {
	const op = "service.signaling.handle"
	log := s.log.With(slog.String("op", op), slog.String("connection_id", connectionID))

	env, err := domain.DecodeEnvelope(data)
	if err != nil {
		log.Debug("bad envelope", sl.Err(err))
		s.reportError(connectionID, err)
		return
	}

	switch env.Type {
	case domain.EventJoinRoom:
		var msg domain.JoinRoomMessage
		if err := env.DecodePayload(&msg); err != nil {
			s.reportError(connectionID, err)
			return
		}
		_ = s.Join(ctx, connectionID, msg)
	case domain.EventLeaveRoom:
		var msg domain.LeaveRoomMessage
		if err := env.DecodePayload(&msg); err != nil {
			s.reportError(connectionID, err)
			return
		}
		s.Leave(connectionID, msg)
	case domain.EventMediaStateChange:
		var msg domain.MediaStateMessage
		if err := env.DecodePayload(&msg); err != nil {
			s.reportError(connectionID, err)
			return
		}
		s.MediaStateChange(connectionID, msg)
	case domain.EventOffer, domain.EventAnswer, domain.EventICECandidate:
		var msg domain.SignalMessage
		if err := env.DecodePayload(&msg); err != nil {
			s.reportError(connectionID, err)
			return
		}
		s.relay.Forward(env.Type, connectionID, msg)
	default:
		log.Debug("unsupported event", slog.String("type", string(env.Type)))
		s.reportError(connectionID, ErrUnsupportedEvent)
	}
}

// Join admits the connection into the meeting's room. Errors are also
// reported to the connection as error events.
func (s *SignalingService) Join(ctx context.Context, connectionID string, msg domain.JoinRoomMessage) error {
	const op = "service.signaling.join"
	log := s.log.With(
		slog.String("op", op),
		slog.String("connection_id", connectionID),
		slog.String("meeting_id", msg.MeetingID),
		slog.String("peer_id", msg.PeerID),
	)

	if err := s.ensureMeetingActive(ctx, msg.MeetingID); err != nil {
		log.Info("join rejected", sl.Err(err))
		s.reportError(connectionID, err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.registry.Join(JoinRequest{
		MeetingID:    msg.MeetingID,
		PeerID:       msg.PeerID,
		ConnectionID: connectionID,
		UserID:       msg.UserID,
		DisplayName:  msg.DisplayName,
	})
	if err != nil {
		log.Info("join rejected", sl.Err(err))
		s.reportError(connectionID, err)
		return err
	}

	if d := res.Displaced; d != nil {
		s.notifyLeft(connectionID, *d, d.MeetingID != msg.MeetingID)
	}
	if stale := res.Replaced; stale != nil && stale.ConnectionID != connectionID {
		s.transport.LeaveGroup(stale.ConnectionID, msg.MeetingID)
	}

	s.transport.JoinGroup(connectionID, msg.MeetingID)

	s.send(connectionID, domain.EventRoomJoined, domain.RoomJoinedEvent{
		MeetingID:    msg.MeetingID,
		Self:         res.Participant,
		Participants: res.Existing,
	})
	notified := s.transport.BroadcastToGroup(msg.MeetingID, domain.EventParticipantJoined, res.Participant, connectionID)

	log.Info("joined room",
		slog.Int("existing", len(res.Existing)),
		slog.Int("notified", notified),
		slog.Bool("replaced", res.Replaced != nil),
	)
	return nil
}

func (s *SignalingService) Leave(connectionID string, msg domain.LeaveRoomMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.registry.Leave(msg.MeetingID, msg.PeerID, connectionID)
	if !res.Removed {
		return
	}
	s.notifyLeft(connectionID, res, true)
}

// Disconnect cleans up after a closed connection. Safe to call repeatedly.
func (s *SignalingService) Disconnect(connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.registry.Disconnect(connectionID)
	if !ok {
		s.log.Debug("disconnect without membership", slog.String("connection_id", connectionID))
		return
	}
	s.notifyLeft(connectionID, res, true)
}

// MediaStateChange relays presentation flags to the rest of the room.
// It never changes membership.
func (s *SignalingService) MediaStateChange(connectionID string, msg domain.MediaStateMessage) {
	meetingID, sender, ok := s.registry.Lookup(connectionID)
	if !ok || meetingID != msg.MeetingID {
		s.log.Debug("media state from non-member dropped",
			slog.String("connection_id", connectionID),
			slog.String("meeting_id", msg.MeetingID),
		)
		return
	}

	s.transport.BroadcastToGroup(msg.MeetingID, domain.EventMediaStateChanged, domain.MediaStateChangedEvent{
		MeetingID:          msg.MeetingID,
		SenderConnectionID: connectionID,
		SenderPeerID:       sender.PeerID,
		Flags:              msg.Flags,
	}, connectionID)
}

func (s *SignalingService) notifyLeft(connectionID string, res LeaveResult, unsubscribe bool) {
	if unsubscribe {
		s.transport.LeaveGroup(connectionID, res.MeetingID)
	}
	if res.RoomClosed {
		s.log.Info("room closed", slog.String("meeting_id", res.MeetingID))
		return
	}
	s.transport.BroadcastToGroup(res.MeetingID, domain.EventParticipantLeft, domain.ParticipantLeftEvent{
		MeetingID:    res.MeetingID,
		PeerID:       res.Participant.PeerID,
		Participants: res.Remaining,
	}, connectionID)
}

func (s *SignalingService) ensureMeetingActive(ctx context.Context, meetingID string) error {
	const op = "service.signaling.ensureMeetingActive"

	ctx, cancel := context.WithTimeout(ctx, meetingLookupTimeout)
	defer cancel()

	meeting, err := s.meetings.GetByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, repository.ErrMeetingNotFound) {
			return ErrMeetingUnavailable
		}
		s.log.Error("meeting lookup failed", slog.String("op", op), slog.String("meeting_id", meetingID), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if !meeting.IsActive() {
		return ErrMeetingUnavailable
	}
	return nil
}

func (s *SignalingService) reportError(connectionID string, err error) {
	event := domain.ErrorEvent{Code: errorCode(err)}
	switch event.Code {
	case domain.CodeInternalError:
		event.Message = "internal error"
	default:
		event.Message = err.Error()
	}
	s.send(connectionID, domain.EventError, event)
}

func (s *SignalingService) send(connectionID string, event domain.EventType, payload any) {
	if err := s.transport.SendTo(connectionID, event, payload); err != nil {
		s.log.Debug("send failed",
			slog.String("connection_id", connectionID),
			slog.String("type", string(event)),
			sl.Err(err),
		)
	}
}

func errorCode(err error) domain.ErrorCode {
	switch {
	case errors.Is(err, ErrMeetingUnavailable):
		return domain.CodeMeetingUnavailable
	case errors.Is(err, ErrRoomFull):
		return domain.CodeRoomFull
	case errors.Is(err, domain.ErrInvalidMessage):
		return domain.CodeInvalidMessage
	default:
		return domain.CodeInternalError
	}
}
