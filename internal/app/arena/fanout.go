package arena

import (
	"encoding/json"

	"dojo/internal/app/battle"
)

// encodeFrame marshals an outbound event frame.
func encodeFrame(t EventType, payload any) ([]byte, error) {
	return json.Marshal(Frame{Type: t, Payload: payload})
}

// broadcast sends an event to the session of every participant of room, except skip.
// The frame is encoded once and shared by all recipients.
func (h *Hub) broadcast(room *battle.Room, skip string, t EventType, payload any) {
	frame, err := encodeFrame(t, payload)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("room_code", room.Code).
			Str("event", string(t)).
			Msg("Failed to encode room event.")
		return
	}

	seen := make(map[string]struct{}, battle.MaxParticipants)
	for _, p := range room.Participants() {
		if p.SessionID == skip {
			continue
		}
		if _, dup := seen[p.SessionID]; dup {
			continue
		}
		seen[p.SessionID] = struct{}{}

		h.deliver(p.SessionID, frame)
	}
}

// broadcastAll sends an event to every connected session.
func (h *Hub) broadcastAll(t EventType, payload any) {
	frame, err := encodeFrame(t, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(t)).Msg("Failed to encode global event.")
		return
	}

	for sessionID := range h.sessions {
		h.deliver(sessionID, frame)
	}
}

// send delivers one event to a single session.
func (h *Hub) send(sessionID string, t EventType, payload any) bool {
	frame, err := encodeFrame(t, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(t)).Msg("Failed to encode direct event.")
		return false
	}

	return h.deliver(sessionID, frame)
}

// deliver queues frame on a session. A session whose queue is full is marked for eviction.
func (h *Hub) deliver(sessionID string, frame []byte) bool {
	sink, ok := h.sessions[sessionID]
	if !ok {
		return false
	}

	if _, slow := h.slow[sessionID]; slow {
		return false
	}

	if !sink.Deliver(frame) {
		h.logger.Warn().
			Str("session_id", sessionID).
			Msg("Session send queue full, dropping session.")
		h.slow[sessionID] = struct{}{}
		return false
	}

	return true
}

func (h *Hub) broadcastPresence() {
	h.broadcastAll(EventPresenceUpdate, h.presence.OnlineIDs())
}
