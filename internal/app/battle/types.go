/*
Package battle contains the authoritative state of battle rooms.

A Room is the aggregate for one race: its participants, chat transcript, problem
suggestions with their ballots, and the waiting → starting → in_progress → finished
lifecycle. The Store owns every live Room, keyed by its short code.

Nothing in this package is safe for concurrent mutation of a single Room; the arena
dispatcher applies every command from one goroutine.
*/
package battle

import (
	"strings"
	"time"
)

const (
	// MaxParticipants is the capacity of a room.
	MaxParticipants = 4

	// DefaultDurationMinutes is used when a room is created without a duration.
	DefaultDurationMinutes = 30

	// MaxChatBytes is the largest chat body accepted.
	MaxChatBytes = 2000

	// SystemUserID is the author id of server-generated chat lines.
	SystemUserID = "system"

	// SystemUsername is the author name of server-generated chat lines.
	SystemUsername = "System"
)

// Status is a room's lifecycle state.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusStarting   Status = "starting"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// Difficulty is the judge's difficulty label for a problem.
type Difficulty string

const (
	DifficultyEasy    Difficulty = "Easy"
	DifficultyMedium  Difficulty = "Medium"
	DifficultyHard    Difficulty = "Hard"
	DifficultyUnknown Difficulty = "Unknown"
)

// ParseDifficulty maps free-form input onto a known Difficulty, case-insensitively.
func ParseDifficulty(s string) Difficulty {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return DifficultyEasy
	case "medium":
		return DifficultyMedium
	case "hard":
		return DifficultyHard
	default:
		return DifficultyUnknown
	}
}

// ChatKind distinguishes user chat from server notices.
type ChatKind string

const (
	ChatKindMessage ChatKind = "message"
	ChatKindSystem  ChatKind = "system"
	ChatKindInvite  ChatKind = "invite"
)

// Identity is what the identity provider tells us about a user.
type Identity struct {
	UserID    string
	Username  string
	AvatarURL string
}

// Participant is one user's membership in one room.
type Participant struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	IsReady   bool   `json:"isReady"`
	Solved    bool   `json:"solved"`
	// SolveTime is milliseconds from race start, set once solved.
	SolveTime *int64 `json:"solveTime,omitempty"`

	// SessionID is the transport session currently carrying this user. It changes on reconnect.
	SessionID string `json:"-"`
}

// ChatMessage is an immutable entry of a room transcript.
type ChatMessage struct {
	ID        string   `json:"id"`
	UserID    string   `json:"userId"`
	Username  string   `json:"username"`
	Message   string   `json:"message"`
	Timestamp string   `json:"timestamp"`
	Type      ChatKind `json:"type"`
}

// Problem describes the problem a room races on.
type Problem struct {
	Slug       string     `json:"problemSlug"`
	Title      string     `json:"problemTitle"`
	Difficulty Difficulty `json:"difficulty"`
	// URL points at the external judge session, when one exists.
	URL string `json:"leetCodeRoomUrl,omitempty"`
}

// Settings are the creator-chosen parameters of a new room.
type Settings struct {
	Problem         Problem
	DurationMinutes int
	IsHardcore      bool
	EntryFee        int
}

// SuggestionInput is a proposed problem as submitted by a participant.
type SuggestionInput struct {
	URL        string
	Slug       string
	Title      string
	Difficulty Difficulty
}

// SuggestionView is the serializable form of a suggestion and its ballots.
type SuggestionView struct {
	ID                  string     `json:"id"`
	URL                 string     `json:"url"`
	ProblemSlug         string     `json:"problemSlug"`
	ProblemTitle        string     `json:"problemTitle"`
	Difficulty          Difficulty `json:"difficulty"`
	SubmittedBy         string     `json:"submittedBy"`
	SubmittedByUsername string     `json:"submittedByUsername"`
	Votes               []string   `json:"votes"`
	VoteCount           int        `json:"voteCount"`
}

// Ranking is one row of the final standings.
type Ranking struct {
	Rank      int    `json:"rank"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Solved    bool   `json:"solved"`
	SolveTime *int64 `json:"solveTime,omitempty"`
}

// RoomState is the full room snapshot handed to members on create and join.
type RoomState struct {
	Code   string `json:"code"`
	HostID string `json:"hostId"`
	Status Status `json:"status"`
	Problem
	Duration           int              `json:"duration"`
	StartTime          *int64           `json:"startTime,omitempty"`
	IsHardcore         bool             `json:"isHardcore"`
	EntryFee           int              `json:"entryFee"`
	ProblemLocked      bool             `json:"problemLocked"`
	Participants       []Participant    `json:"participants"`
	Chat               []ChatMessage    `json:"chat"`
	ProblemSuggestions []SuggestionView `json:"problemSuggestions"`
}

// PublicParticipant is the redacted participant shape of the read-only query.
type PublicParticipant struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsReady  bool   `json:"isReady"`
	Solved   bool   `json:"solved"`
}

// RoomSummary is the read-only query answer for a room code.
type RoomSummary struct {
	Code   string `json:"code"`
	Status Status `json:"status"`
	Problem
	Duration     int                 `json:"duration"`
	IsHardcore   bool                `json:"isHardcore"`
	Participants []PublicParticipant `json:"participants"`
}

// Result is the record of a finished battle handed to external recorders.
type Result struct {
	RoomCode   string        `json:"roomCode"`
	Problem    Problem       `json:"problem"`
	Duration   int           `json:"duration"`
	IsHardcore bool          `json:"isHardcore"`
	EntryFee   int           `json:"entryFee"`
	WinnerID   string        `json:"winnerId"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Rankings   []Ranking     `json:"rankings"`
	Transcript []ChatMessage `json:"transcript"`
}
