package service

import (
	"log/slog"

	"github.com/immxrtalbeast/axenix_signal/internal/domain"
	"github.com/immxrtalbeast/axenix_signal/lib/logger/sl"
)

type peerResolver interface {
	Lookup(connectionID string) (string, domain.Participant, bool)
}

// Relay forwards offers, answers and ICE candidates to exactly one connection.
type Relay struct {
	peers     peerResolver
	transport Transport
	log       *slog.Logger
}

func NewRelay(peers peerResolver, transport Transport, log *slog.Logger) *Relay {
	if log == nil {
		log = slog.Default()
	}
	return &Relay{peers: peers, transport: transport, log: log}
}

// Forward delivers msg.Payload unchanged to the target, annotated with the
// sender's identity. It reports whether the message was handed to the transport;
// undeliverable messages are dropped.
func (r *Relay) Forward(kind domain.EventType, senderConnectionID string, msg domain.SignalMessage) bool {
	const op = "service.relay.forward"

	out := domain.RelayedSignal{
		SenderConnectionID: senderConnectionID,
		Payload:            msg.Payload,
	}
	if _, sender, ok := r.peers.Lookup(senderConnectionID); ok {
		out.SenderPeerID = sender.PeerID
	}

	if err := r.transport.SendTo(msg.TargetConnectionID, kind, out); err != nil {
		r.log.Debug("signal dropped",
			slog.String("op", op),
			slog.String("type", string(kind)),
			slog.String("from", senderConnectionID),
			slog.String("to", msg.TargetConnectionID),
			sl.Err(err),
		)
		return false
	}

	r.log.Debug("signal relayed",
		slog.String("op", op),
		slog.String("type", string(kind)),
		slog.String("from", senderConnectionID),
		slog.String("to", msg.TargetConnectionID),
	)
	return true
}
