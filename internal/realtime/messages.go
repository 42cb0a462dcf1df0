package realtime

import (
	"encoding/json"

	"github.com/YaroslavWork/letter-game-cli/pkg/domain"
)

// Envelope is one inbound push message: a JSON object discriminated by its
// "type" field. Raw holds the full original payload for typed decoding.
type Envelope struct {
	Type string
	Raw  json.RawMessage
}

// Decode unmarshals the envelope's payload into v.
func (e Envelope) Decode(v any) error {
	return json.Unmarshal(e.Raw, v)
}

// parseEnvelope extracts the discriminating type from a raw frame.
// Frames without a type are malformed and dropped by the caller.
func parseEnvelope(data []byte) (Envelope, bool) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil || head.Type == "" {
		return Envelope{}, false
	}
	return Envelope{Type: head.Type, Raw: json.RawMessage(data)}, true
}

// Observed push kinds on the room channel.
const (
	KindRoomUpdate      = "room_update"
	KindGameStarted     = "game_started_notification"
	KindPlayerSubmitted = "player_submitted_notification"
	KindRoundAdvancing  = "round_advancing_notification"
	KindPlayerRemoved   = "player_removed_notification"
	KindRoomDeleted     = "room_deleted_notification"
)

// RoomUpdatePayload carries a full room snapshot.
type RoomUpdatePayload struct {
	Room domain.Room `json:"room"`
}

// GameStartedPayload carries the freshly started session.
type GameStartedPayload struct {
	GameSession domain.GameSession `json:"game_session"`
}

// PlayerSubmittedPayload announces one player's accepted submission.
type PlayerSubmittedPayload struct {
	PlayerID     string `json:"player_id"`
	GameName     string `json:"game_name"`
	AllSubmitted bool   `json:"all_submitted"`
}

// RoundAdvancingPayload carries the backend's authoritative countdown.
type RoundAdvancingPayload struct {
	SecondsLeft int `json:"seconds_left"`
}

// PlayerRemovedPayload announces a forced removal.
type PlayerRemovedPayload struct {
	PlayerID string `json:"player_id"`
	UserID   string `json:"user_id"`
}
