package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	displayNamePrefix      = "Participant"
	displayNameSuffixRunes = 4
)

// Participant is one joined peer inside a meeting room.
// PeerID is the media-transport identity and stays stable across reconnects,
// ConnectionID is the signaling channel currently backing the peer.
type Participant struct {
	PeerID       string    `json:"peerId"`
	ConnectionID string    `json:"connectionId"`
	UserID       string    `json:"userId"`
	DisplayName  string    `json:"displayName"`
	JoinedAt     time.Time `json:"joinedAt"`
}

func NewParticipant(peerID, connectionID, userID, displayName string) Participant {
	return Participant{
		PeerID:       peerID,
		ConnectionID: connectionID,
		UserID:       strings.TrimSpace(userID),
		DisplayName:  ResolveDisplayName(displayName, userID),
		JoinedAt:     time.Now().UTC(),
	}
}

// ResolveDisplayName returns the trimmed name when present, otherwise a
// deterministic fallback built from the last four characters of the user id.
func ResolveDisplayName(displayName, userID string) string {
	if name := strings.TrimSpace(displayName); name != "" {
		return name
	}

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return displayNamePrefix
	}

	suffix := userID
	if n := utf8.RuneCountInString(userID); n > displayNameSuffixRunes {
		runes := []rune(userID)
		suffix = string(runes[n-displayNameSuffixRunes:])
	}
	return displayNamePrefix + " " + strings.ToUpper(suffix)
}
