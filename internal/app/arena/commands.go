package arena

import (
	"cmp"
	"encoding/json"
	"strings"

	"dojo/internal/pkg/errs"
)

// Inbound command names.
const (
	CmdPresenceOnline  = "presence:online"
	CmdPresenceOffline = "presence:offline"
	CmdRoomCreate      = "room:create"
	CmdRoomJoin        = "room:join"
	CmdRoomReady       = "room:ready"
	CmdRoomStart       = "room:start"
	CmdRoomSolved      = "room:solved"
	CmdRoomChat        = "room:chat"
	CmdSuggestProblem  = "room:suggest-problem"
	CmdVoteProblem     = "room:vote-problem"
	CmdLockProblem     = "room:lock-problem"
	CmdRoomLeave       = "room:leave"
	CmdInviteSend      = "invite:send"
)

// Command is one decoded inbound command. The set of implementations is closed.
type Command interface {
	isCommand()
}

type PresenceOnline struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type PresenceOffline struct {
	UserID string `json:"userId"`
}

type CreateRoom struct {
	UserID             string `json:"userId"`
	Username           string `json:"username"`
	AvatarURL          string `json:"avatarUrl,omitempty"`
	ProblemSlug        string `json:"problemSlug,omitempty"`
	Title              string `json:"title,omitempty"`
	Difficulty         string `json:"difficulty,omitempty"`
	Duration           int    `json:"duration,omitempty"`
	IsHardcore         bool   `json:"isHardcore,omitempty"`
	EntryFee           int    `json:"entryFee,omitempty"`
	ExternalSessionURL string `json:"externalSessionUrl,omitempty"`
}

type JoinRoom struct {
	RoomCode  string `json:"roomCode"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type SetReady struct {
	RoomCode string `json:"roomCode"`
	UserID   string `json:"userId"`
	IsReady  bool   `json:"isReady"`
}

type StartBattle struct {
	RoomCode string `json:"roomCode"`
	HostID   string `json:"hostId"`
}

type ReportSolved struct {
	RoomCode    string `json:"roomCode"`
	UserID      string `json:"userId"`
	SolveTimeMs int64  `json:"solveTimeMs"`
}

type SendChat struct {
	RoomCode string `json:"roomCode"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Text     string `json:"text"`
}

type SuggestProblem struct {
	RoomCode   string `json:"roomCode"`
	UserID     string `json:"userId"`
	Username   string `json:"username"`
	URL        string `json:"url"`
	Slug       string `json:"slug"`
	Title      string `json:"title"`
	Difficulty string `json:"difficulty"`
}

type VoteProblem struct {
	RoomCode     string `json:"roomCode"`
	UserID       string `json:"userId"`
	SuggestionID string `json:"suggestionId"`
}

type LockProblem struct {
	RoomCode string `json:"roomCode"`
	HostID   string `json:"hostId"`
}

type LeaveRoom struct {
	RoomCode string `json:"roomCode"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type SendInvite struct {
	ToUserID     string `json:"toUserId"`
	RoomCode     string `json:"roomCode"`
	FromUsername string `json:"fromUsername"`
}

func (PresenceOnline) isCommand()  {}
func (PresenceOffline) isCommand() {}
func (CreateRoom) isCommand()      {}
func (JoinRoom) isCommand()        {}
func (SetReady) isCommand()        {}
func (StartBattle) isCommand()     {}
func (ReportSolved) isCommand()    {}
func (SendChat) isCommand()        {}
func (SuggestProblem) isCommand()  {}
func (VoteProblem) isCommand()     {}
func (LockProblem) isCommand()     {}
func (LeaveRoom) isCommand()       {}
func (SendInvite) isCommand()      {}

// UnmarshalJSON also accepts the problemTitle and leetCodeRoomUrl spellings used by web clients.
func (c *CreateRoom) UnmarshalJSON(data []byte) error {
	type plain CreateRoom
	var wire struct {
		plain
		ProblemTitle    string `json:"problemTitle"`
		LeetCodeRoomURL string `json:"leetCodeRoomUrl"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*c = CreateRoom(wire.plain)
	c.Title = cmp.Or(c.Title, wire.ProblemTitle)
	c.ExternalSessionURL = cmp.Or(c.ExternalSessionURL, wire.LeetCodeRoomURL)
	return nil
}

// UnmarshalJSON also accepts solveTime as the solve time field.
func (c *ReportSolved) UnmarshalJSON(data []byte) error {
	type plain ReportSolved
	var wire struct {
		plain
		SolveTime int64 `json:"solveTime"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*c = ReportSolved(wire.plain)
	c.SolveTimeMs = cmp.Or(c.SolveTimeMs, wire.SolveTime)
	return nil
}

// UnmarshalJSON also accepts message as the chat body field.
func (c *SendChat) UnmarshalJSON(data []byte) error {
	type plain SendChat
	var wire struct {
		plain
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*c = SendChat(wire.plain)
	c.Text = cmp.Or(c.Text, wire.Message)
	return nil
}

// UnmarshalJSON also accepts the problemSlug and problemTitle spellings.
func (c *SuggestProblem) UnmarshalJSON(data []byte) error {
	type plain SuggestProblem
	var wire struct {
		plain
		ProblemSlug  string `json:"problemSlug"`
		ProblemTitle string `json:"problemTitle"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*c = SuggestProblem(wire.plain)
	c.Slug = cmp.Or(c.Slug, wire.ProblemSlug)
	c.Title = cmp.Or(c.Title, wire.ProblemTitle)
	return nil
}

// DecodeCommand parses the payload of the named inbound command.
func DecodeCommand(name string, payload json.RawMessage) (Command, *errs.CustomError) {
	switch name {
	case CmdPresenceOnline:
		c, err := decode[PresenceOnline](payload)
		return checked(c, err, c.UserID)
	case CmdPresenceOffline:
		c, err := decode[PresenceOffline](payload)
		return checked(c, err, c.UserID)
	case CmdRoomCreate:
		c, err := decode[CreateRoom](payload)
		return checked(c, err, c.UserID, c.Username)
	case CmdRoomJoin:
		c, err := decode[JoinRoom](payload)
		return checked(c, err, c.RoomCode, c.UserID, c.Username)
	case CmdRoomReady:
		c, err := decode[SetReady](payload)
		return checked(c, err, c.RoomCode, c.UserID)
	case CmdRoomStart:
		c, err := decode[StartBattle](payload)
		return checked(c, err, c.RoomCode, c.HostID)
	case CmdRoomSolved:
		c, err := decode[ReportSolved](payload)
		return checked(c, err, c.RoomCode, c.UserID)
	case CmdRoomChat:
		c, err := decode[SendChat](payload)
		return checked(c, err, c.RoomCode, c.UserID)
	case CmdSuggestProblem:
		c, err := decode[SuggestProblem](payload)
		return checked(c, err, c.RoomCode, c.UserID, c.Slug)
	case CmdVoteProblem:
		c, err := decode[VoteProblem](payload)
		return checked(c, err, c.RoomCode, c.UserID, c.SuggestionID)
	case CmdLockProblem:
		c, err := decode[LockProblem](payload)
		return checked(c, err, c.RoomCode, c.HostID)
	case CmdRoomLeave:
		c, err := decode[LeaveRoom](payload)
		return checked(c, err, c.RoomCode, c.UserID)
	case CmdInviteSend:
		c, err := decode[SendInvite](payload)
		return checked(c, err, c.ToUserID, c.RoomCode)
	default:
		return nil, errs.NewError(errs.ErrUnsupportedCommand, name)
	}
}

func decode[T Command](payload json.RawMessage) (T, *errs.CustomError) {
	var c T
	if len(payload) == 0 {
		return c, errs.NewError(errs.ErrInvalidParams)
	}

	if err := json.Unmarshal(payload, &c); err != nil {
		return c, errs.NewError(errs.ErrInvalidJSONFormat)
	}

	return c, nil
}

// checked returns c unless decoding failed or a required field is blank.
func checked(c Command, err *errs.CustomError, required ...string) (Command, *errs.CustomError) {
	if err != nil {
		return nil, err
	}

	for _, field := range required {
		if strings.TrimSpace(field) == "" {
			return nil, errs.NewError(errs.ErrInvalidParams)
		}
	}

	return c, nil
}
