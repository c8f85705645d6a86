package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var ErrInvalidMessage = errors.New("invalid message")

const (
	maxIdentifierLength  = 128
	maxDisplayNameLength = 255
)

type EventType string

// Inbound events.
const (
	EventJoinRoom         EventType = "join-room"
	EventLeaveRoom        EventType = "leave-room"
	EventOffer            EventType = "offer"
	EventAnswer           EventType = "answer"
	EventICECandidate     EventType = "ice-candidate"
	EventMediaStateChange EventType = "media-state-change"
)

// Outbound events.
const (
	EventConnected         EventType = "connected"
	EventRoomJoined        EventType = "room-joined"
	EventParticipantJoined EventType = "participant-joined"
	EventParticipantLeft   EventType = "participant-left"
	EventMediaStateChanged EventType = "media-state-changed"
	EventError             EventType = "error"
)

// Envelope is the frame exchanged over the signaling channel in both directions.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals payload into a frame of the given type.
func NewEnvelope(event EventType, payload any) (*Envelope, error) {
	env := &Envelope{Type: event}
	if payload == nil {
		return env, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	env.Payload = raw
	return env, nil
}

func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMessage, err.Error())
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: type is required", ErrInvalidMessage)
	}
	return &env, nil
}

type validatable interface {
	Validate() error
}

// DecodePayload unmarshals the envelope payload into v and validates it.
func (e *Envelope) DecodePayload(v validatable) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%w: payload is required", ErrInvalidMessage)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidMessage, err.Error())
	}
	return v.Validate()
}

type JoinRoomMessage struct {
	MeetingID   string `json:"meetingId"`
	PeerID      string `json:"peerId"`
	UserID      string `json:"userId,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

func (m *JoinRoomMessage) Validate() error {
	m.MeetingID = strings.TrimSpace(m.MeetingID)
	m.PeerID = strings.TrimSpace(m.PeerID)
	if err := requireIdentifier("meetingId", m.MeetingID); err != nil {
		return err
	}
	if err := requireIdentifier("peerId", m.PeerID); err != nil {
		return err
	}
	if utf8.RuneCountInString(m.UserID) > maxIdentifierLength {
		return fmt.Errorf("%w: userId is too long", ErrInvalidMessage)
	}
	if utf8.RuneCountInString(strings.TrimSpace(m.DisplayName)) > maxDisplayNameLength {
		return fmt.Errorf("%w: displayName is too long", ErrInvalidMessage)
	}
	return nil
}

type LeaveRoomMessage struct {
	MeetingID string `json:"meetingId"`
	PeerID    string `json:"peerId"`
}

func (m *LeaveRoomMessage) Validate() error {
	m.MeetingID = strings.TrimSpace(m.MeetingID)
	m.PeerID = strings.TrimSpace(m.PeerID)
	if err := requireIdentifier("meetingId", m.MeetingID); err != nil {
		return err
	}
	return requireIdentifier("peerId", m.PeerID)
}

// SignalMessage carries an opaque SDP or ICE payload addressed to one connection.
type SignalMessage struct {
	TargetConnectionID string          `json:"targetConnectionId"`
	Payload            json.RawMessage `json:"payload"`
}

func (m *SignalMessage) Validate() error {
	if err := requireIdentifier("targetConnectionId", m.TargetConnectionID); err != nil {
		return err
	}
	if len(m.Payload) == 0 || string(m.Payload) == "null" {
		return fmt.Errorf("%w: payload is required", ErrInvalidMessage)
	}
	return nil
}

type MediaStateMessage struct {
	MeetingID string          `json:"meetingId"`
	Flags     map[string]bool `json:"flags"`
}

func (m *MediaStateMessage) Validate() error {
	m.MeetingID = strings.TrimSpace(m.MeetingID)
	if err := requireIdentifier("meetingId", m.MeetingID); err != nil {
		return err
	}
	if len(m.Flags) == 0 {
		return fmt.Errorf("%w: flags are required", ErrInvalidMessage)
	}
	return nil
}

type ConnectedEvent struct {
	ConnectionID string `json:"connectionId"`
}

type RoomJoinedEvent struct {
	MeetingID    string        `json:"meetingId"`
	Self         Participant   `json:"self"`
	Participants []Participant `json:"participants"`
}

type ParticipantLeftEvent struct {
	MeetingID    string        `json:"meetingId"`
	PeerID       string        `json:"peerId"`
	Participants []Participant `json:"participants"`
}

type RelayedSignal struct {
	SenderConnectionID string          `json:"senderConnectionId"`
	SenderPeerID       string          `json:"senderPeerId,omitempty"`
	Payload            json.RawMessage `json:"payload"`
}

type MediaStateChangedEvent struct {
	MeetingID          string          `json:"meetingId"`
	SenderConnectionID string          `json:"senderConnectionId"`
	SenderPeerID       string          `json:"senderPeerId"`
	Flags              map[string]bool `json:"flags"`
}

type ErrorEvent struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message,omitempty"`
}

func requireIdentifier(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidMessage, field)
	}
	if utf8.RuneCountInString(value) > maxIdentifierLength {
		return fmt.Errorf("%w: %s is too long", ErrInvalidMessage, field)
	}
	return nil
}
