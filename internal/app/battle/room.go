package battle

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"dojo/internal/pkg/errs"
	"dojo/internal/pkg/randx"
)

// Room is the aggregate root of one battle.
type Room struct {
	Code          string
	HostID        string
	Status        Status
	Problem       Problem
	Duration      int
	StartTime     time.Time
	FinishedAt    time.Time
	IsHardcore    bool
	EntryFee      int
	ProblemLocked bool
	WinnerID      string

	// participants in join order; order holds the user ids.
	participants map[string]*Participant
	order        []string

	chat []ChatMessage

	suggestions     map[string]*suggestion
	suggestionOrder []string

	now func() time.Time
}

// JoinOutcome describes the effect of a successful Join.
type JoinOutcome struct {
	Participant Participant
	// Rejoined is true when the user was already a participant; nothing else changed.
	Rejoined bool
	Notice   ChatMessage
}

// LeaveOutcome describes the effect of a participant leaving.
type LeaveOutcome struct {
	Participant Participant
	Notice      ChatMessage
	// Empty is true when the room has no participants left and must be deleted.
	Empty bool
	// NewHostID is set when the leaver was host and someone was promoted.
	NewHostID string
}

// SolveOutcome describes the first accepted solve, which finishes the room.
type SolveOutcome struct {
	Participant Participant
	Rankings    []Ranking
	WinnerID    string
}

// newRoom builds a waiting room with the creator as its only, ready participant.
func newRoom(code string, host Identity, sessionID string, settings Settings, now func() time.Time) *Room {
	duration := settings.DurationMinutes
	if duration <= 0 {
		duration = DefaultDurationMinutes
	}

	problem := settings.Problem
	if problem.Difficulty == "" {
		problem.Difficulty = DifficultyMedium
	}

	r := &Room{
		Code:         code,
		HostID:       host.UserID,
		Status:       StatusWaiting,
		Problem:      problem,
		Duration:     duration,
		IsHardcore:   settings.IsHardcore,
		EntryFee:     max(settings.EntryFee, 0),
		participants: make(map[string]*Participant),
		suggestions:  make(map[string]*suggestion),
		now:          now,
	}

	r.addParticipant(host, sessionID, true)
	r.appendSystem(fmt.Sprintf("%s created the room", host.Username))

	return r
}

func (r *Room) addParticipant(id Identity, sessionID string, ready bool) *Participant {
	p := &Participant{
		UserID:    id.UserID,
		Username:  id.Username,
		AvatarURL: id.AvatarURL,
		IsReady:   ready,
		SessionID: sessionID,
	}
	r.participants[id.UserID] = p
	r.order = append(r.order, id.UserID)
	return p
}

func (r *Room) appendSystem(text string) ChatMessage {
	msg := ChatMessage{
		ID:        randx.SystemMessageID(),
		UserID:    SystemUserID,
		Username:  SystemUsername,
		Message:   text,
		Timestamp: r.timestamp(),
		Type:      ChatKindSystem,
	}
	r.chat = append(r.chat, msg)
	return msg
}

func (r *Room) timestamp() string {
	return r.now().UTC().Format(time.RFC3339Nano)
}

// Size returns the number of participants.
func (r *Room) Size() int {
	return len(r.order)
}

// Participant returns a copy of the participant with the given user id.
func (r *Room) Participant(userID string) (Participant, bool) {
	p, ok := r.participants[userID]
	if !ok {
		return Participant{}, false
	}
	return *p, true
}

// Participants returns copies of all participants in join order.
func (r *Room) Participants() []Participant {
	out := make([]Participant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.participants[id])
	}
	return out
}

// UsersOnSession returns the ids of participants carried by the given transport session.
func (r *Room) UsersOnSession(sessionID string) []string {
	var ids []string
	for _, id := range r.order {
		if r.participants[id].SessionID == sessionID {
			ids = append(ids, id)
		}
	}
	return ids
}

// Chat returns a copy of the transcript.
func (r *Room) Chat() []ChatMessage {
	return slices.Clone(r.chat)
}

// Join adds a participant while the room is waiting.
// A user who is already a participant is re-attached to sessionID and nothing else changes.
func (r *Room) Join(id Identity, sessionID string) (JoinOutcome, *errs.CustomError) {
	if p, ok := r.participants[id.UserID]; ok {
		p.SessionID = sessionID
		return JoinOutcome{Participant: *p, Rejoined: true}, nil
	}

	if r.Status != StatusWaiting {
		return JoinOutcome{}, errs.NewError(errs.ErrBattleAlreadyStarted)
	}

	if r.Size() >= MaxParticipants {
		return JoinOutcome{}, errs.NewError(errs.ErrRoomIsFull)
	}

	p := r.addParticipant(id, sessionID, false)
	notice := r.appendSystem(fmt.Sprintf("%s joined the room", id.Username))

	return JoinOutcome{Participant: *p, Notice: notice}, nil
}

// SetReady toggles a participant's readiness. It is honoured only while the room is
// waiting and its problem is locked; otherwise it reports false and changes nothing.
func (r *Room) SetReady(userID string, ready bool) bool {
	if r.Status != StatusWaiting || !r.ProblemLocked {
		return false
	}

	p, ok := r.participants[userID]
	if !ok {
		return false
	}

	p.IsReady = ready
	return true
}

// AllReady reports whether every participant is ready.
func (r *Room) AllReady() bool {
	for _, p := range r.participants {
		if !p.IsReady {
			return false
		}
	}
	return true
}

// Start moves a waiting room into the countdown.
func (r *Room) Start(requesterID string) *errs.CustomError {
	if r.HostID != requesterID {
		return errs.NewError(errs.ErrOnlyHostCanStart)
	}

	if r.Status != StatusWaiting {
		return errs.NewError(errs.ErrBattleAlreadyStarted)
	}

	if !r.AllReady() {
		return errs.NewError(errs.ErrNotEveryoneReady)
	}

	r.Status = StatusStarting
	return nil
}

// BeginRace ends the countdown and records the start time.
// It reports false unless the room is starting.
func (r *Room) BeginRace() bool {
	if r.Status != StatusStarting {
		return false
	}

	r.Status = StatusInProgress
	r.StartTime = r.now()
	return true
}

// Say appends a user chat line. Blank or oversized text is dropped.
func (r *Room) Say(author Identity, text string) (ChatMessage, bool) {
	text = strings.TrimSpace(text)
	if text == "" || len(text) > MaxChatBytes {
		return ChatMessage{}, false
	}

	msg := ChatMessage{
		ID:        randx.MessageID(),
		UserID:    author.UserID,
		Username:  author.Username,
		Message:   text,
		Timestamp: r.timestamp(),
		Type:      ChatKindMessage,
	}
	r.chat = append(r.chat, msg)
	return msg, true
}

// Leave removes a participant, promoting the earliest remaining joiner when the host leaves.
// It reports false when userID is not a participant.
func (r *Room) Leave(userID string) (LeaveOutcome, bool) {
	p, ok := r.participants[userID]
	if !ok {
		return LeaveOutcome{}, false
	}

	delete(r.participants, userID)
	r.order = slices.DeleteFunc(r.order, func(id string) bool { return id == userID })

	out := LeaveOutcome{
		Participant: *p,
		Notice:      r.appendSystem(fmt.Sprintf("%s left the room", p.Username)),
	}

	if len(r.order) == 0 {
		out.Empty = true
		return out, true
	}

	if r.HostID == userID {
		r.HostID = r.order[0]
		out.NewHostID = r.HostID
	}

	return out, true
}

// State returns the full snapshot sent to members.
func (r *Room) State() RoomState {
	state := RoomState{
		Code:               r.Code,
		HostID:             r.HostID,
		Status:             r.Status,
		Problem:            r.Problem,
		Duration:           r.Duration,
		IsHardcore:         r.IsHardcore,
		EntryFee:           r.EntryFee,
		ProblemLocked:      r.ProblemLocked,
		Participants:       r.Participants(),
		Chat:               r.Chat(),
		ProblemSuggestions: r.Suggestions(),
	}

	if !r.StartTime.IsZero() {
		ms := r.StartTime.UnixMilli()
		state.StartTime = &ms
	}

	return state
}

// Summary returns the redacted read-only view.
func (r *Room) Summary() RoomSummary {
	participants := make([]PublicParticipant, 0, len(r.order))
	for _, id := range r.order {
		p := r.participants[id]
		participants = append(participants, PublicParticipant{
			UserID:   p.UserID,
			Username: p.Username,
			IsReady:  p.IsReady,
			Solved:   p.Solved,
		})
	}

	return RoomSummary{
		Code:         r.Code,
		Status:       r.Status,
		Problem:      r.Problem,
		Duration:     r.Duration,
		IsHardcore:   r.IsHardcore,
		Participants: participants,
	}
}
