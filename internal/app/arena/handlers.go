package arena

import (
	"fmt"

	"dojo/internal/app/battle"
	"dojo/internal/pkg/errs"
	"dojo/internal/pkg/randx"
)

// room looks up a room by user-supplied code.
func (h *Hub) room(code string) *battle.Room {
	return h.store.Get(randx.NormalizeRoomCode(code))
}

func (h *Hub) presenceOnline(sessionID string, c PresenceOnline) {
	h.presence.Set(c.UserID, c.Username, sessionID)
	h.broadcastPresence()
}

func (h *Hub) presenceOffline(c PresenceOffline) {
	if h.presence.Remove(c.UserID) {
		h.broadcastPresence()
	}
}

func (h *Hub) createRoom(sessionID string, c CreateRoom) *Ack {
	settings := battle.Settings{
		Problem: battle.Problem{
			Slug:  c.ProblemSlug,
			Title: c.Title,
			URL:   c.ExternalSessionURL,
		},
		DurationMinutes: c.Duration,
		IsHardcore:      c.IsHardcore,
		EntryFee:        c.EntryFee,
	}
	if c.Difficulty != "" {
		settings.Problem.Difficulty = battle.ParseDifficulty(c.Difficulty)
	}

	host := battle.Identity{UserID: c.UserID, Username: c.Username, AvatarURL: c.AvatarURL}

	room, err := h.store.Create(host, sessionID, settings)
	if err != nil {
		return rejected(err)
	}

	state := room.State()
	return &Ack{Success: true, Room: &state}
}

func (h *Hub) joinRoom(sessionID string, c JoinRoom) *Ack {
	room := h.room(c.RoomCode)
	if room == nil {
		return rejected(errs.NewError(errs.ErrRoomNotFound))
	}

	id := battle.Identity{UserID: c.UserID, Username: c.Username, AvatarURL: c.AvatarURL}

	out, err := room.Join(id, sessionID)
	if err != nil {
		return rejected(err)
	}

	if !out.Rejoined {
		h.broadcast(room, sessionID, EventParticipantJoined, ParticipantJoinedPayload{
			UserID:    c.UserID,
			Username:  c.Username,
			AvatarURL: c.AvatarURL,
		})
		h.broadcast(room, "", EventChatMessage, out.Notice)

		h.logger.Info().
			Str("room_code", room.Code).
			Str("user_id", c.UserID).
			Int("participants", room.Size()).
			Msg("Participant joined.")
	}

	state := room.State()
	return &Ack{Success: true, Room: &state}
}

func (h *Hub) setReady(c SetReady) {
	room := h.room(c.RoomCode)
	if room == nil {
		return
	}

	if !room.SetReady(c.UserID, c.IsReady) {
		return
	}

	h.broadcast(room, "", EventParticipantUpdated, ParticipantUpdatedPayload{
		UserID:  c.UserID,
		IsReady: c.IsReady,
	})
}

func (h *Hub) startBattle(c StartBattle) *Ack {
	room := h.room(c.RoomCode)
	if room == nil {
		return rejected(errs.NewError(errs.ErrRoomNotFound))
	}

	if err := room.Start(c.HostID); err != nil {
		return rejected(err)
	}

	h.beginCountdown(room)

	h.logger.Info().
		Str("room_code", room.Code).
		Int("participants", room.Size()).
		Msg("Countdown started.")

	return accepted()
}

func (h *Hub) reportSolved(c ReportSolved) {
	room := h.room(c.RoomCode)
	if room == nil {
		return
	}

	out, ok := room.Solve(c.UserID, c.SolveTimeMs)
	if !ok {
		return
	}

	h.broadcast(room, "", EventParticipantSolved, ParticipantSolvedPayload{
		UserID:    out.Participant.UserID,
		Username:  out.Participant.Username,
		SolveTime: *out.Participant.SolveTime,
	})
	h.broadcast(room, "", EventFinished, FinishedPayload{
		Rankings: out.Rankings,
		WinnerID: out.WinnerID,
	})

	h.logger.Info().
		Str("room_code", room.Code).
		Str("winner_id", out.WinnerID).
		Int64("solve_time_ms", *out.Participant.SolveTime).
		Msg("Battle finished.")

	h.record(room)
}

func (h *Hub) sendChat(c SendChat) {
	room := h.room(c.RoomCode)
	if room == nil {
		return
	}

	msg, ok := room.Say(battle.Identity{UserID: c.UserID, Username: c.Username}, c.Text)
	if !ok {
		return
	}

	h.broadcast(room, "", EventChatMessage, msg)
}

func (h *Hub) suggestProblem(c SuggestProblem) *Ack {
	room := h.room(c.RoomCode)
	if room == nil {
		return rejected(errs.NewError(errs.ErrRoomNotFound))
	}

	view, err := room.Suggest(
		battle.Identity{UserID: c.UserID, Username: c.Username},
		battle.SuggestionInput{
			URL:        c.URL,
			Slug:       c.Slug,
			Title:      c.Title,
			Difficulty: battle.ParseDifficulty(c.Difficulty),
		},
	)
	if err != nil {
		return rejected(err)
	}

	h.broadcast(room, "", EventProblemSuggested, view)

	return &Ack{Success: true, Suggestion: &view}
}

func (h *Hub) voteProblem(c VoteProblem) *Ack {
	room := h.room(c.RoomCode)
	if room == nil {
		return rejected(errs.NewError(errs.ErrRoomNotFound))
	}

	view, err := room.Vote(c.UserID, c.SuggestionID)
	if err != nil {
		return rejected(err)
	}

	h.broadcast(room, "", EventVoteUpdated, VoteUpdatedPayload{
		SuggestionID: view.ID,
		Votes:        view.Votes,
		VoteCount:    view.VoteCount,
		VoterID:      c.UserID,
	})

	return accepted()
}

func (h *Hub) lockProblem(c LockProblem) *Ack {
	room := h.room(c.RoomCode)
	if room == nil {
		return rejected(errs.NewError(errs.ErrRoomNotFound))
	}

	winner, notice, err := room.Lock(c.HostID)
	if err != nil {
		return rejected(err)
	}

	h.broadcast(room, "", EventProblemLocked, ProblemLockedPayload{
		Problem:   room.Problem,
		VoteCount: winner.VoteCount,
	})
	h.broadcast(room, "", EventChatMessage, notice)

	h.logger.Info().
		Str("room_code", room.Code).
		Str("problem", room.Problem.Slug).
		Int("votes", winner.VoteCount).
		Msg("Problem locked.")

	return &Ack{
		Success: true,
		Problem: &LockedProblem{Slug: room.Problem.Slug, Title: room.Problem.Title},
	}
}

func (h *Hub) leaveRoom(c LeaveRoom) {
	room := h.room(c.RoomCode)
	if room == nil {
		return
	}

	h.depart(room, c.UserID)
}

// depart removes a participant, then deletes the emptied room or announces a new host.
func (h *Hub) depart(room *battle.Room, userID string) {
	out, ok := room.Leave(userID)
	if !ok {
		return
	}

	h.broadcast(room, "", EventChatMessage, out.Notice)
	h.broadcast(room, "", EventParticipantLeft, ParticipantLeftPayload{UserID: userID})

	if out.Empty {
		h.cancelCountdown(room.Code)
		h.store.Delete(room.Code)
		return
	}

	if out.NewHostID != "" {
		h.broadcast(room, "", EventHostChanged, HostChangedPayload{NewHostID: out.NewHostID})

		h.logger.Info().
			Str("room_code", room.Code).
			Str("previous_host_id", userID).
			Str("host_id", out.NewHostID).
			Msg("Host migrated.")
	}
}

func (h *Hub) sendInvite(c SendInvite) {
	target, ok := h.presence.Lookup(c.ToUserID)
	if !ok {
		h.logger.Debug().Str("user_id", c.ToUserID).Msg("Invite target offline, dropping invite.")
		return
	}

	h.send(target.SessionID, EventInviteReceived, InviteReceivedPayload{
		RoomCode: randx.NormalizeRoomCode(c.RoomCode),
		From:     InviteSender{Username: c.FromUsername},
		Message:  fmt.Sprintf("%s invited you to battle!", c.FromUsername),
	})
}
