package battle

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dojo/internal/pkg/errs"
)

var testEpoch = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testEpoch }

func ident(id string) Identity {
	return Identity{UserID: id, Username: "user-" + id}
}

// newTestRoom returns a waiting room hosted by "A" with the given extra joiners.
func newTestRoom(t *testing.T, joiners ...string) *Room {
	t.Helper()

	r := newRoom("ABC234", ident("A"), "sess-A", Settings{}, fixedClock)
	for _, id := range joiners {
		_, err := r.Join(ident(id), "sess-"+id)
		require.Nil(t, err, "join %s", id)
	}
	return r
}

// lockedRoom returns a waiting room whose problem is already locked.
func lockedRoom(t *testing.T, joiners ...string) *Room {
	t.Helper()

	r := newTestRoom(t, joiners...)
	_, err := r.Suggest(ident("A"), SuggestionInput{Slug: "two-sum", Title: "Two Sum", Difficulty: DifficultyEasy})
	require.Nil(t, err)
	_, _, err = r.Lock("A")
	require.Nil(t, err)
	return r
}

func TestNewRoom(t *testing.T) {
	r := newRoom("ABC234", ident("A"), "sess-A", Settings{}, fixedClock)

	assert.Equal(t, StatusWaiting, r.Status)
	assert.Equal(t, "A", r.HostID)
	assert.Equal(t, DefaultDurationMinutes, r.Duration)
	assert.Equal(t, DifficultyMedium, r.Problem.Difficulty)
	assert.False(t, r.ProblemLocked)

	host, ok := r.Participant("A")
	require.True(t, ok)
	assert.True(t, host.IsReady, "creator starts ready")

	chat := r.Chat()
	require.Len(t, chat, 1)
	assert.Equal(t, ChatKindSystem, chat[0].Type)
	assert.Equal(t, SystemUserID, chat[0].UserID)
	assert.Equal(t, "user-A created the room", chat[0].Message)
	assert.Equal(t, "2026-10-15T12:00:00Z", chat[0].Timestamp)
}

func TestJoin(t *testing.T) {
	t.Run("adds unready participant with notice", func(t *testing.T) {
		r := newTestRoom(t)

		out, err := r.Join(ident("B"), "sess-B")
		require.Nil(t, err)
		assert.False(t, out.Rejoined)
		assert.False(t, out.Participant.IsReady)
		assert.Equal(t, "user-B joined the room", out.Notice.Message)
		assert.Equal(t, 2, r.Size())
	})

	t.Run("rejoin is idempotent and moves the session", func(t *testing.T) {
		r := newTestRoom(t, "B")

		out, err := r.Join(ident("B"), "sess-B2")
		require.Nil(t, err)
		assert.True(t, out.Rejoined)
		assert.Equal(t, 2, r.Size())

		p, _ := r.Participant("B")
		assert.Equal(t, "sess-B2", p.SessionID)
		assert.Len(t, r.Chat(), 2, "rejoin does not add a notice")
	})

	t.Run("rejected when full", func(t *testing.T) {
		r := newTestRoom(t, "B", "C", "D")

		_, err := r.Join(ident("E"), "sess-E")
		require.NotNil(t, err)
		assert.Equal(t, errs.ErrRoomIsFull, err.Code)
		assert.Equal(t, "Room is full", err.Message)
		assert.Equal(t, MaxParticipants, r.Size())
	})

	t.Run("rejected once started", func(t *testing.T) {
		r := lockedRoom(t)
		require.Nil(t, r.Start("A"))

		_, err := r.Join(ident("B"), "sess-B")
		require.NotNil(t, err)
		assert.Equal(t, errs.ErrBattleAlreadyStarted, err.Code)
	})

	t.Run("existing participant may rejoin a full started room", func(t *testing.T) {
		r := newTestRoom(t, "B", "C", "D")
		r.Status = StatusInProgress

		out, err := r.Join(ident("C"), "sess-C2")
		require.Nil(t, err)
		assert.True(t, out.Rejoined)
	})
}

func TestParticipantCountNeverExceedsCapacity(t *testing.T) {
	r := newTestRoom(t)

	for i := range 10 {
		_, _ = r.Join(ident(fmt.Sprintf("u%d", i)), "s")
		assert.LessOrEqual(t, r.Size(), MaxParticipants)
	}
	assert.Equal(t, MaxParticipants, r.Size())
}

func TestSetReady(t *testing.T) {
	t.Run("ignored until problem is locked", func(t *testing.T) {
		r := newTestRoom(t, "B")

		assert.False(t, r.SetReady("B", true))
		p, _ := r.Participant("B")
		assert.False(t, p.IsReady)
	})

	t.Run("toggles once locked", func(t *testing.T) {
		r := lockedRoom(t, "B")

		assert.True(t, r.SetReady("B", true))
		p, _ := r.Participant("B")
		assert.True(t, p.IsReady)

		assert.True(t, r.SetReady("B", false))
		p, _ = r.Participant("B")
		assert.False(t, p.IsReady)
	})

	t.Run("ignored for unknown participant", func(t *testing.T) {
		r := lockedRoom(t)
		assert.False(t, r.SetReady("ghost", true))
	})

	t.Run("ignored after waiting", func(t *testing.T) {
		r := lockedRoom(t)
		require.Nil(t, r.Start("A"))
		assert.False(t, r.SetReady("A", false))
	})
}

func TestStart(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T) *Room
		caller   string
		wantCode int
	}{
		{
			name:     "non-host",
			setup:    func(t *testing.T) *Room { return lockedRoom(t, "B") },
			caller:   "B",
			wantCode: errs.ErrOnlyHostCanStart,
		},
		{
			name:     "not everyone ready",
			setup:    func(t *testing.T) *Room { return lockedRoom(t, "B") },
			caller:   "A",
			wantCode: errs.ErrNotEveryoneReady,
		},
		{
			name: "already starting",
			setup: func(t *testing.T) *Room {
				r := lockedRoom(t)
				require.Nil(t, r.Start("A"))
				return r
			},
			caller:   "A",
			wantCode: errs.ErrBattleAlreadyStarted,
		},
		{
			name: "host with everyone ready",
			setup: func(t *testing.T) *Room {
				r := lockedRoom(t, "B")
				require.True(t, r.SetReady("B", true))
				return r
			},
			caller: "A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.setup(t)
			before := r.Status

			err := r.Start(tt.caller)
			if tt.wantCode != 0 {
				require.NotNil(t, err)
				assert.Equal(t, tt.wantCode, err.Code)
				assert.Equal(t, before, r.Status)
				return
			}

			require.Nil(t, err)
			assert.Equal(t, StatusStarting, r.Status)
		})
	}
}

func TestBeginRace(t *testing.T) {
	r := lockedRoom(t)
	assert.False(t, r.BeginRace(), "waiting room cannot begin")

	require.Nil(t, r.Start("A"))
	require.True(t, r.BeginRace())
	assert.Equal(t, StatusInProgress, r.Status)
	assert.Equal(t, testEpoch, r.StartTime)

	assert.False(t, r.BeginRace(), "second transition is refused")

	state := r.State()
	require.NotNil(t, state.StartTime)
	assert.Equal(t, testEpoch.UnixMilli(), *state.StartTime)
}

func TestSay(t *testing.T) {
	r := newTestRoom(t)

	msg, ok := r.Say(ident("A"), "  hello  ")
	require.True(t, ok)
	assert.Equal(t, "hello", msg.Message)
	assert.Equal(t, ChatKindMessage, msg.Type)

	_, ok = r.Say(ident("A"), "   ")
	assert.False(t, ok)

	long := make([]byte, MaxChatBytes+1)
	for i := range long {
		long[i] = 'x'
	}
	_, ok = r.Say(ident("A"), string(long))
	assert.False(t, ok)

	chat := r.Chat()
	require.Len(t, chat, 2)
	assert.Equal(t, msg, chat[1], "transcript is append-only in insertion order")
}

func TestLeave(t *testing.T) {
	t.Run("host leaving promotes earliest remaining joiner", func(t *testing.T) {
		r := newTestRoom(t, "B", "C")

		out, ok := r.Leave("A")
		require.True(t, ok)
		assert.False(t, out.Empty)
		assert.Equal(t, "B", out.NewHostID)
		assert.Equal(t, "B", r.HostID)
		assert.Equal(t, "user-A left the room", out.Notice.Message)
	})

	t.Run("non-host leaving keeps host", func(t *testing.T) {
		r := newTestRoom(t, "B", "C")

		out, ok := r.Leave("B")
		require.True(t, ok)
		assert.Empty(t, out.NewHostID)
		assert.Equal(t, "A", r.HostID)
		assert.Equal(t, []string{"A", "C"}, userIDs(r.Participants()))
	})

	t.Run("last participant empties the room", func(t *testing.T) {
		r := newTestRoom(t)

		out, ok := r.Leave("A")
		require.True(t, ok)
		assert.True(t, out.Empty)
		assert.Zero(t, r.Size())
	})

	t.Run("unknown participant is ignored", func(t *testing.T) {
		r := newTestRoom(t)
		before := len(r.Chat())

		_, ok := r.Leave("ghost")
		assert.False(t, ok)
		assert.Len(t, r.Chat(), before)
	})
}

func TestUsersOnSession(t *testing.T) {
	r := newTestRoom(t, "B")
	assert.Equal(t, []string{"B"}, r.UsersOnSession("sess-B"))
	assert.Empty(t, r.UsersOnSession("nope"))
}

func TestSummaryIsRedacted(t *testing.T) {
	r := newTestRoom(t, "B")

	summary := r.Summary()
	assert.Equal(t, "ABC234", summary.Code)
	assert.Equal(t, StatusWaiting, summary.Status)
	require.Len(t, summary.Participants, 2)
	assert.Equal(t, PublicParticipant{UserID: "A", Username: "user-A", IsReady: true}, summary.Participants[0])
}

func userIDs(ps []Participant) []string {
	ids := make([]string, 0, len(ps))
	for _, p := range ps {
		ids = append(ids, p.UserID)
	}
	return ids
}
