package handler

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/partycards/internal/model"
	redisrepo "github.com/freeeve/partycards/internal/repository/redis"
)

var _ redisrepo.Handler = (*Hub)(nil)

// Envelope is the only frame the server writes to sockets. Exactly one of
// Game or Chat is set.
type Envelope struct {
	Game json.RawMessage `json:"game,omitempty"`
	Chat json.RawMessage `json:"chat,omitempty"`
}

// HandleGame fans a published game projection out to local sockets.
func (h *Hub) HandleGame(data []byte) {
	var payload model.GamePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Error().Err(err).Msg("Discarding malformed game payload")
		return
	}
	frame, err := json.Marshal(Envelope{Game: data})
	if err != nil {
		log.Error().Err(err).Str("gameId", payload.ID).Msg("Failed to marshal game envelope")
		return
	}
	h.deliverGame(payload.ID, payload.MemberGUIDs(), frame)
}

// HandleChat fans a published chat message out to the game's sockets.
func (h *Hub) HandleChat(data []byte) {
	var payload model.ChatPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Error().Err(err).Msg("Discarding malformed chat payload")
		return
	}
	frame, err := json.Marshal(Envelope{Chat: data})
	if err != nil {
		log.Error().Err(err).Str("gameId", payload.GameID).Msg("Failed to marshal chat envelope")
		return
	}
	h.deliverChat(payload.GameID, frame)
}

// HandlePresence drops this process's idle kick for a player who
// reconnected, possibly through another process.
func (h *Hub) HandlePresence(data []byte) {
	var payload model.PresencePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Error().Err(err).Msg("Discarding malformed presence payload")
		return
	}
	if h.kicker == nil || payload.GameID == "" || payload.PlayerGUID == "" {
		return
	}
	h.kicker.CancelIdleKick(payload.GameID, payload.PlayerGUID)
}
