/*
Package arena is the boundary between connected clients and the battle rooms.

The Hub applies every inbound command from a single goroutine, so commands from
different connections are serialized exactly as they arrive. Results are fanned out
to the sessions of the room's participants, or delivered point to point for invites.

This file defines the outbound event names, payloads and wire frames.
*/
package arena

import (
	"encoding/json"

	"dojo/internal/app/battle"
	"dojo/internal/pkg/errs"
)

// EventType names an outbound event.
type EventType string

const (
	EventPresenceUpdate     EventType = "presence:update"
	EventParticipantJoined  EventType = "room:participant-joined"
	EventParticipantUpdated EventType = "room:participant-updated"
	EventParticipantLeft    EventType = "room:participant-left"
	EventChatMessage        EventType = "room:chat-message"
	EventStarting           EventType = "room:starting"
	EventStarted            EventType = "room:started"
	EventParticipantSolved  EventType = "room:participant-solved"
	EventFinished           EventType = "room:finished"
	EventProblemSuggested   EventType = "room:problem-suggested"
	EventVoteUpdated        EventType = "room:vote-updated"
	EventProblemLocked      EventType = "room:problem-locked"
	EventHostChanged        EventType = "room:host-changed"
	EventInviteReceived     EventType = "invite:received"
	EventAck                EventType = "ack"
)

// Frame is the envelope of every outbound message.
type Frame struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// AckFrame answers an inbound frame that carried an ack id.
type AckFrame struct {
	Type    EventType `json:"type"`
	AckID   string    `json:"ackId"`
	Payload *Ack      `json:"payload"`
}

// InboundFrame is the envelope of every message a client sends.
type InboundFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	AckID   string          `json:"ackId,omitempty"`
}

// Ack is the response to a command that expects one.
type Ack struct {
	Success    bool                   `json:"success"`
	Error      string                 `json:"error,omitempty"`
	Code       int                    `json:"code,omitempty"`
	Room       *battle.RoomState      `json:"room,omitempty"`
	Suggestion *battle.SuggestionView `json:"suggestion,omitempty"`
	Problem    *LockedProblem         `json:"problem,omitempty"`
}

// LockedProblem is the problem returned to the host after a lock.
type LockedProblem struct {
	Slug  string `json:"problemSlug"`
	Title string `json:"problemTitle"`
}

func accepted() *Ack {
	return &Ack{Success: true}
}

func rejected(err *errs.CustomError) *Ack {
	return &Ack{Success: false, Error: err.Message, Code: err.Code}
}

type ParticipantJoinedPayload struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type ParticipantUpdatedPayload struct {
	UserID  string `json:"userId"`
	IsReady bool   `json:"isReady"`
}

type ParticipantLeftPayload struct {
	UserID string `json:"userId"`
}

type StartingPayload struct {
	Countdown int `json:"countdown"`
}

type StartedPayload struct {
	battle.Problem
	StartTime int64 `json:"startTime"`
	Duration  int   `json:"duration"`
}

type ParticipantSolvedPayload struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	SolveTime int64  `json:"solveTime"`
}

type FinishedPayload struct {
	Rankings []battle.Ranking `json:"rankings"`
	WinnerID string           `json:"winnerId"`
}

type VoteUpdatedPayload struct {
	SuggestionID string   `json:"suggestionId"`
	Votes        []string `json:"votes"`
	VoteCount    int      `json:"voteCount"`
	VoterID      string   `json:"voterId"`
}

type ProblemLockedPayload struct {
	battle.Problem
	VoteCount int `json:"voteCount"`
}

type HostChangedPayload struct {
	NewHostID string `json:"newHostId"`
}

type InviteSender struct {
	Username string `json:"username"`
}

type InviteReceivedPayload struct {
	RoomCode string       `json:"roomCode"`
	From     InviteSender `json:"from"`
	Message  string       `json:"message"`
}
