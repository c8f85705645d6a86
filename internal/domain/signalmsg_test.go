package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"type":"join-room","payload":{"meetingId":"m1","peerId":"p1"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventJoinRoom, env.Type)

	var msg JoinRoomMessage
	require.NoError(t, env.DecodePayload(&msg))
	assert.Equal(t, "m1", msg.MeetingID)
	assert.Equal(t, "p1", msg.PeerID)
}

func TestDecodeEnvelopeRejectsMalformedInput(t *testing.T) {
	for _, raw := range []string{`not json`, `{"payload":{}}`, `[]`} {
		_, err := DecodeEnvelope([]byte(raw))
		assert.ErrorIs(t, err, ErrInvalidMessage, raw)
	}
}

func TestDecodePayloadValidation(t *testing.T) {
	tooLong := strings.Repeat("x", maxIdentifierLength+1)

	tests := []struct {
		name    string
		payload string
		target  validatable
		wantErr bool
	}{
		{name: "join ok", payload: `{"meetingId":" m1 ","peerId":"p1","displayName":"Ann"}`, target: &JoinRoomMessage{}},
		{name: "join missing meeting", payload: `{"peerId":"p1"}`, target: &JoinRoomMessage{}, wantErr: true},
		{name: "join blank peer", payload: `{"meetingId":"m1","peerId":"   "}`, target: &JoinRoomMessage{}, wantErr: true},
		{name: "join peer too long", payload: `{"meetingId":"m1","peerId":"` + tooLong + `"}`, target: &JoinRoomMessage{}, wantErr: true},
		{name: "join wrong field type", payload: `{"meetingId":1,"peerId":"p1"}`, target: &JoinRoomMessage{}, wantErr: true},
		{name: "leave ok", payload: `{"meetingId":"m1","peerId":"p1"}`, target: &LeaveRoomMessage{}},
		{name: "leave missing peer", payload: `{"meetingId":"m1"}`, target: &LeaveRoomMessage{}, wantErr: true},
		{name: "signal ok", payload: `{"targetConnectionId":"c2","payload":{"sdp":"v=0"}}`, target: &SignalMessage{}},
		{name: "signal null payload", payload: `{"targetConnectionId":"c2","payload":null}`, target: &SignalMessage{}, wantErr: true},
		{name: "signal missing target", payload: `{"payload":{"candidate":"a"}}`, target: &SignalMessage{}, wantErr: true},
		{name: "media ok", payload: `{"meetingId":"m1","flags":{"audio":false}}`, target: &MediaStateMessage{}},
		{name: "media without flags", payload: `{"meetingId":"m1","flags":{}}`, target: &MediaStateMessage{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := &Envelope{Type: "any", Payload: json.RawMessage(tt.payload)}
			err := env.DecodePayload(tt.target)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMessage)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDecodePayloadRequiresPayload(t *testing.T) {
	env := &Envelope{Type: EventLeaveRoom}
	assert.ErrorIs(t, env.DecodePayload(&LeaveRoomMessage{}), ErrInvalidMessage)
}

func TestSignalPayloadIsKeptVerbatim(t *testing.T) {
	raw := `{"type":"offer","sdp":"v=0\r\no=- 1 2 IN IP4 127.0.0.1"}`
	env := &Envelope{Type: EventOffer, Payload: json.RawMessage(`{"targetConnectionId":"c2","payload":` + raw + `}`)}

	var msg SignalMessage
	require.NoError(t, env.DecodePayload(&msg))
	assert.JSONEq(t, raw, string(msg.Payload))

	out, err := NewEnvelope(EventOffer, RelayedSignal{SenderConnectionID: "c1", Payload: msg.Payload})
	require.NoError(t, err)
	assert.JSONEq(t, `{"senderConnectionId":"c1","payload":`+raw+`}`, string(out.Payload))
}
