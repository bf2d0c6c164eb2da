package arena

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dojo/internal/app/battle"
	"dojo/internal/app/presence"
	"dojo/internal/pkg/errs"
)

const testTick = 10 * time.Millisecond

type fakeSink struct {
	id     string
	frames chan []byte

	mu     sync.Mutex
	closed bool
}

func newFakeSink(id string, capacity int) *fakeSink {
	return &fakeSink{id: id, frames: make(chan []byte, capacity)}
}

func (s *fakeSink) SessionID() string { return s.id }

func (s *fakeSink) Deliver(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.frames <- frame:
		return true
	default:
		return false
	}
}

func (s *fakeSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *fakeSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeRecorder struct {
	results chan battle.Result
}

func (r *fakeRecorder) RecordBattle(_ context.Context, res battle.Result) error {
	r.results <- res
	return nil
}

type received struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func newTestHub(t *testing.T, opts ...Option) *Hub {
	t.Helper()

	opts = append([]Option{WithCountdown(3, testTick)}, opts...)
	h := NewHub(battle.NewStore(), presence.NewRegistry(), opts...)
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func connect(t *testing.T, h *Hub, sessionID string) *fakeSink {
	t.Helper()

	s := newFakeSink(sessionID, 64)
	h.Connect(s)
	return s
}

// flush waits until every operation queued so far has been applied.
func flush(h *Hub) {
	h.Summary("")
}

func recvEvent(t *testing.T, s *fakeSink, within time.Duration) received {
	t.Helper()

	select {
	case frame := <-s.frames:
		var r received
		require.NoError(t, json.Unmarshal(frame, &r))
		return r
	case <-time.After(within):
		require.FailNow(t, "timed out waiting for event", "session %s", s.id)
		return received{}
	}
}

func expectEvent(t *testing.T, s *fakeSink, want EventType) received {
	t.Helper()

	r := recvEvent(t, s, time.Second)
	require.Equal(t, want, r.Type, "session %s payload %s", s.id, r.Payload)
	return r
}

func expectSilence(t *testing.T, s *fakeSink) {
	t.Helper()

	select {
	case frame := <-s.frames:
		require.FailNow(t, "unexpected frame", "session %s got %s", s.id, frame)
	default:
	}
}

func drain(s *fakeSink) {
	for {
		select {
		case <-s.frames:
		default:
			return
		}
	}
}

func payloadOf[T any](t *testing.T, r received) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(r.Payload, &v))
	return v
}

func create(t *testing.T, h *Hub, sessionID, userID string) string {
	t.Helper()

	ack := h.Dispatch(sessionID, CreateRoom{UserID: userID, Username: "user-" + userID})
	require.NotNil(t, ack)
	require.True(t, ack.Success, ack.Error)
	return ack.Room.Code
}

func join(t *testing.T, h *Hub, sessionID, code, userID string) *Ack {
	t.Helper()

	ack := h.Dispatch(sessionID, JoinRoom{RoomCode: code, UserID: userID, Username: "user-" + userID})
	require.NotNil(t, ack)
	return ack
}

// readyBattle returns a room hosted by A with B joined, the problem locked and everyone ready.
func readyBattle(t *testing.T, h *Hub) (a, b *fakeSink, code string) {
	t.Helper()

	a = connect(t, h, "sa")
	b = connect(t, h, "sb")
	code = create(t, h, "sa", "A")
	require.True(t, join(t, h, "sb", code, "B").Success)

	ack := h.Dispatch("sa", SuggestProblem{RoomCode: code, UserID: "A", Username: "user-A", Slug: "two-sum", Title: "Two Sum", Difficulty: "easy"})
	require.True(t, ack.Success, ack.Error)
	ack = h.Dispatch("sa", LockProblem{RoomCode: code, HostID: "A"})
	require.True(t, ack.Success, ack.Error)
	require.Nil(t, h.Dispatch("sb", SetReady{RoomCode: code, UserID: "B", IsReady: true}))

	drain(a)
	drain(b)
	return a, b, code
}

func TestCreateRoomAck(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "sa")

	ack := h.Dispatch("sa", CreateRoom{UserID: "A", Username: "user-A", Duration: 45, Difficulty: "hard", IsHardcore: true, EntryFee: 10})
	require.NotNil(t, ack)
	require.True(t, ack.Success)
	require.NotNil(t, ack.Room)

	assert.Len(t, ack.Room.Code, 6)
	assert.Equal(t, "A", ack.Room.HostID)
	assert.Equal(t, battle.StatusWaiting, ack.Room.Status)
	assert.Equal(t, 45, ack.Room.Duration)
	assert.Equal(t, battle.DifficultyHard, ack.Room.Difficulty)
	require.Len(t, ack.Room.Participants, 1)
	assert.True(t, ack.Room.Participants[0].IsReady)
	require.Len(t, ack.Room.Chat, 1)
	assert.Equal(t, "user-A created the room", ack.Room.Chat[0].Message)

	expectSilence(t, a)
	assert.Equal(t, Stats{Rooms: 1}, h.Stats())
}

func TestJoinBroadcasts(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "sa")
	b := connect(t, h, "sb")
	code := create(t, h, "sa", "A")

	ack := join(t, h, "sb", code, "B")
	require.True(t, ack.Success)
	assert.Len(t, ack.Room.Participants, 2)

	joined := payloadOf[ParticipantJoinedPayload](t, expectEvent(t, a, EventParticipantJoined))
	assert.Equal(t, "B", joined.UserID)
	notice := payloadOf[battle.ChatMessage](t, expectEvent(t, a, EventChatMessage))
	assert.Equal(t, "user-B joined the room", notice.Message)

	expectEvent(t, b, EventChatMessage)
	expectSilence(t, b)
}

func TestJoinRejections(t *testing.T) {
	h := newTestHub(t)
	connect(t, h, "sa")
	code := create(t, h, "sa", "A")

	ack := join(t, h, "sx", "NOPE22", "X")
	assert.False(t, ack.Success)
	assert.Equal(t, "Room not found", ack.Error)
	assert.Equal(t, errs.ErrRoomNotFound, ack.Code)

	for _, id := range []string{"B", "C", "D"} {
		require.True(t, join(t, h, "s"+id, code, id).Success)
	}

	ack = join(t, h, "sE", code, "E")
	assert.False(t, ack.Success)
	assert.Equal(t, "Room is full", ack.Error)
}

func TestJoinIsCaseInsensitive(t *testing.T) {
	h := newTestHub(t)
	connect(t, h, "sa")
	code := create(t, h, "sa", "A")

	ack := join(t, h, "sb", "  "+strings.ToLower(code)+" ", "B")
	assert.True(t, ack.Success, ack.Error)
}

func TestRejoinMovesSession(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "sa")
	b1 := connect(t, h, "sb1")
	b2 := connect(t, h, "sb2")
	code := create(t, h, "sa", "A")
	require.True(t, join(t, h, "sb1", code, "B").Success)
	drain(a)
	drain(b1)

	ack := join(t, h, "sb2", code, "B")
	require.True(t, ack.Success)
	assert.Len(t, ack.Room.Participants, 2)
	expectSilence(t, a)

	require.Nil(t, h.Dispatch("sa", SendChat{RoomCode: code, UserID: "A", Username: "user-A", Text: "hi"}))
	expectEvent(t, b2, EventChatMessage)
	expectSilence(t, b1)

	// the stale session going away must not remove B
	h.Disconnect("sb1")
	summary, found := h.Summary(code)
	require.True(t, found)
	assert.Len(t, summary.Participants, 2)
}

func TestFullBattleFlow(t *testing.T) {
	rec := &fakeRecorder{results: make(chan battle.Result, 1)}
	h := newTestHub(t, WithRecorder(rec))
	a, b, code := readyBattle(t, h)

	ack := h.Dispatch("sa", StartBattle{RoomCode: code, HostID: "A"})
	require.True(t, ack.Success, ack.Error)

	for _, s := range []*fakeSink{a, b} {
		for _, want := range []int{3, 2, 1} {
			starting := payloadOf[StartingPayload](t, expectEvent(t, s, EventStarting))
			assert.Equal(t, want, starting.Countdown)
		}
		started := payloadOf[StartedPayload](t, expectEvent(t, s, EventStarted))
		assert.Equal(t, "two-sum", started.Slug)
		assert.Equal(t, battle.DefaultDurationMinutes, started.Duration)
		assert.NotZero(t, started.StartTime)
	}

	summary, _ := h.Summary(code)
	assert.Equal(t, battle.StatusInProgress, summary.Status)

	require.Nil(t, h.Dispatch("sa", ReportSolved{RoomCode: code, UserID: "A", SolveTimeMs: 5000}))

	for _, s := range []*fakeSink{a, b} {
		solved := payloadOf[ParticipantSolvedPayload](t, expectEvent(t, s, EventParticipantSolved))
		assert.Equal(t, ParticipantSolvedPayload{UserID: "A", Username: "user-A", SolveTime: 5000}, solved)

		finished := payloadOf[FinishedPayload](t, expectEvent(t, s, EventFinished))
		assert.Equal(t, "A", finished.WinnerID)
		require.Len(t, finished.Rankings, 2)
		assert.Equal(t, "A", finished.Rankings[0].UserID)
		assert.True(t, finished.Rankings[0].Solved)
		assert.Equal(t, "B", finished.Rankings[1].UserID)
		assert.False(t, finished.Rankings[1].Solved)
	}

	select {
	case res := <-rec.results:
		assert.Equal(t, code, res.RoomCode)
		assert.Equal(t, "A", res.WinnerID)
	case <-time.After(time.Second):
		require.FailNow(t, "recorder was not called")
	}

	// a later solve changes nothing
	require.Nil(t, h.Dispatch("sb", ReportSolved{RoomCode: code, UserID: "B", SolveTimeMs: 100}))
	expectSilence(t, a)
	expectSilence(t, b)
}

func TestStartRejections(t *testing.T) {
	h := newTestHub(t)
	connect(t, h, "sa")
	connect(t, h, "sb")
	code := create(t, h, "sa", "A")
	require.True(t, join(t, h, "sb", code, "B").Success)

	ack := h.Dispatch("sb", StartBattle{RoomCode: code, HostID: "B"})
	assert.False(t, ack.Success)
	assert.Equal(t, "Only host can start", ack.Error)

	ack = h.Dispatch("sa", StartBattle{RoomCode: code, HostID: "A"})
	assert.False(t, ack.Success)
	assert.Equal(t, "Not everyone is ready", ack.Error)

	ack = h.Dispatch("sa", StartBattle{RoomCode: "ZZZZZZ", HostID: "A"})
	assert.Equal(t, "Room not found", ack.Error)
}

func TestReadyIgnoredBeforeLock(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "sa")
	connect(t, h, "sb")
	code := create(t, h, "sa", "A")
	require.True(t, join(t, h, "sb", code, "B").Success)
	drain(a)

	require.Nil(t, h.Dispatch("sb", SetReady{RoomCode: code, UserID: "B", IsReady: true}))
	expectSilence(t, a)
}

func TestVotingBroadcasts(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "sa")
	b := connect(t, h, "sb")
	code := create(t, h, "sa", "A")
	require.True(t, join(t, h, "sb", code, "B").Success)
	drain(a)
	drain(b)

	ack := h.Dispatch("sb", SuggestProblem{RoomCode: code, UserID: "B", Username: "user-B", URL: "https://leetcode.com/problems/two-sum", Slug: "two-sum", Title: "Two Sum", Difficulty: "Easy"})
	require.True(t, ack.Success)
	require.NotNil(t, ack.Suggestion)
	assert.Equal(t, []string{"B"}, ack.Suggestion.Votes)

	suggested := payloadOf[battle.SuggestionView](t, expectEvent(t, a, EventProblemSuggested))
	assert.Equal(t, ack.Suggestion.ID, suggested.ID)
	expectEvent(t, b, EventProblemSuggested)

	dup := h.Dispatch("sa", SuggestProblem{RoomCode: code, UserID: "A", Username: "user-A", Slug: "two-sum"})
	assert.False(t, dup.Success)
	assert.Equal(t, "This problem was already suggested", dup.Error)
	expectSilence(t, a)

	ack = h.Dispatch("sa", VoteProblem{RoomCode: code, UserID: "A", SuggestionID: suggested.ID})
	require.True(t, ack.Success)
	vote := payloadOf[VoteUpdatedPayload](t, expectEvent(t, b, EventVoteUpdated))
	assert.Equal(t, 2, vote.VoteCount)
	assert.Equal(t, "A", vote.VoterID)
	expectEvent(t, a, EventVoteUpdated)

	ack = h.Dispatch("sb", LockProblem{RoomCode: code, HostID: "B"})
	assert.Equal(t, "Only host can lock problem", ack.Error)

	ack = h.Dispatch("sa", LockProblem{RoomCode: code, HostID: "A"})
	require.True(t, ack.Success)
	assert.Equal(t, &LockedProblem{Slug: "two-sum", Title: "Two Sum"}, ack.Problem)

	locked := payloadOf[ProblemLockedPayload](t, expectEvent(t, b, EventProblemLocked))
	assert.Equal(t, 2, locked.VoteCount)
	assert.Equal(t, "https://leetcode.com/problems/two-sum", locked.URL)
	notice := payloadOf[battle.ChatMessage](t, expectEvent(t, b, EventChatMessage))
	assert.Equal(t, "Problem locked: Two Sum", notice.Message)

	ack = h.Dispatch("sa", VoteProblem{RoomCode: code, UserID: "A", SuggestionID: suggested.ID})
	assert.Equal(t, "Problem already locked", ack.Error)
}

func TestHostLeavePromotesNextJoiner(t *testing.T) {
	h := newTestHub(t)
	connect(t, h, "sa")
	b := connect(t, h, "sb")
	c := connect(t, h, "sc")
	code := create(t, h, "sa", "A")
	require.True(t, join(t, h, "sb", code, "B").Success)
	require.True(t, join(t, h, "sc", code, "C").Success)
	drain(b)
	drain(c)

	require.Nil(t, h.Dispatch("sa", LeaveRoom{RoomCode: code, UserID: "A", Username: "user-A"}))

	for _, s := range []*fakeSink{b, c} {
		notice := payloadOf[battle.ChatMessage](t, expectEvent(t, s, EventChatMessage))
		assert.Equal(t, "user-A left the room", notice.Message)
		left := payloadOf[ParticipantLeftPayload](t, expectEvent(t, s, EventParticipantLeft))
		assert.Equal(t, "A", left.UserID)
		changed := payloadOf[HostChangedPayload](t, expectEvent(t, s, EventHostChanged))
		assert.Equal(t, "B", changed.NewHostID)
	}
}

func TestLastLeaveDeletesRoom(t *testing.T) {
	h := newTestHub(t)
	connect(t, h, "sa")
	code := create(t, h, "sa", "A")

	require.Nil(t, h.Dispatch("sa", LeaveRoom{RoomCode: code, UserID: "A"}))

	_, found := h.Summary(code)
	assert.False(t, found)
	assert.Zero(t, h.Stats().Rooms)
}

func TestDisconnectLeavesRoomsAndPresence(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "sa")
	b := connect(t, h, "sb")
	require.Nil(t, h.Dispatch("sa", PresenceOnline{UserID: "A", Username: "user-A"}))
	require.Nil(t, h.Dispatch("sb", PresenceOnline{UserID: "B", Username: "user-B"}))
	code := create(t, h, "sb", "B")
	require.True(t, join(t, h, "sa", code, "A").Success)
	drain(a)
	drain(b)

	h.Disconnect("sb")
	flush(h)

	assert.True(t, b.isClosed())

	online := payloadOf[[]string](t, expectEvent(t, a, EventPresenceUpdate))
	assert.Equal(t, []string{"A"}, online)
	expectEvent(t, a, EventChatMessage)
	expectEvent(t, a, EventParticipantLeft)
	changed := payloadOf[HostChangedPayload](t, expectEvent(t, a, EventHostChanged))
	assert.Equal(t, "A", changed.NewHostID)

	assert.Equal(t, Stats{Rooms: 1, OnlineUsers: 1}, h.Stats())
}

func TestCountdownCancelledWhenRoomEmpties(t *testing.T) {
	h := newTestHub(t, WithCountdown(3, 50*time.Millisecond))
	a := connect(t, h, "sa")
	code := create(t, h, "sa", "A")
	require.True(t, h.Dispatch("sa", SuggestProblem{RoomCode: code, UserID: "A", Slug: "two-sum"}).Success)
	require.True(t, h.Dispatch("sa", LockProblem{RoomCode: code, HostID: "A"}).Success)
	require.True(t, h.Dispatch("sa", StartBattle{RoomCode: code, HostID: "A"}).Success)
	drain(a)

	require.Nil(t, h.Dispatch("sa", LeaveRoom{RoomCode: code, UserID: "A"}))
	assert.False(t, countdownPending(h, code))

	time.Sleep(200 * time.Millisecond)
	expectSilence(t, a)
	assert.Zero(t, h.Stats().Rooms)
}

func TestCountdownSurvivesPartialLeave(t *testing.T) {
	h := newTestHub(t)
	a, b, code := readyBattle(t, h)

	require.True(t, h.Dispatch("sa", StartBattle{RoomCode: code, HostID: "A"}).Success)
	require.Nil(t, h.Dispatch("sa", LeaveRoom{RoomCode: code, UserID: "A"}))
	drain(a)

	for {
		r := recvEvent(t, b, time.Second)
		if r.Type == EventStarted {
			break
		}
	}

	summary, found := h.Summary(code)
	require.True(t, found)
	assert.Equal(t, battle.StatusInProgress, summary.Status)
}

func TestChat(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "sa")
	code := create(t, h, "sa", "A")

	require.Nil(t, h.Dispatch("sa", SendChat{RoomCode: code, UserID: "A", Username: "user-A", Text: "  gl hf "}))
	msg := payloadOf[battle.ChatMessage](t, expectEvent(t, a, EventChatMessage))
	assert.Equal(t, "gl hf", msg.Message)
	assert.Equal(t, battle.ChatKindMessage, msg.Type)

	require.Nil(t, h.Dispatch("sa", SendChat{RoomCode: code, UserID: "A", Text: "   "}))
	require.Nil(t, h.Dispatch("sa", SendChat{RoomCode: "ZZZZZZ", UserID: "A", Text: "hello"}))
	expectSilence(t, a)
}

func TestInvite(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "sa")
	c := connect(t, h, "sc")
	require.Nil(t, h.Dispatch("sc", PresenceOnline{UserID: "C", Username: "user-C"}))
	drain(a)
	drain(c)

	require.Nil(t, h.Dispatch("sa", SendInvite{ToUserID: "C", RoomCode: "abc234", FromUsername: "user-A"}))
	invite := payloadOf[InviteReceivedPayload](t, expectEvent(t, c, EventInviteReceived))
	assert.Equal(t, InviteReceivedPayload{
		RoomCode: "ABC234",
		From:     InviteSender{Username: "user-A"},
		Message:  "user-A invited you to battle!",
	}, invite)
	expectSilence(t, a)

	require.Nil(t, h.Dispatch("sa", SendInvite{ToUserID: "ghost", RoomCode: "ABC234", FromUsername: "user-A"}))
	expectSilence(t, a)
	expectSilence(t, c)
}

func TestPresenceUpdates(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "sa")
	b := connect(t, h, "sb")

	require.Nil(t, h.Dispatch("sa", PresenceOnline{UserID: "A", Username: "user-A"}))
	assert.Equal(t, []string{"A"}, payloadOf[[]string](t, expectEvent(t, a, EventPresenceUpdate)))
	assert.Equal(t, []string{"A"}, payloadOf[[]string](t, expectEvent(t, b, EventPresenceUpdate)))

	require.Nil(t, h.Dispatch("sa", PresenceOffline{UserID: "A"}))
	assert.Empty(t, payloadOf[[]string](t, expectEvent(t, b, EventPresenceUpdate)))
	expectEvent(t, a, EventPresenceUpdate)

	require.Nil(t, h.Dispatch("sa", PresenceOffline{UserID: "A"}))
	expectSilence(t, b)
}

func TestSlowSessionIsEvicted(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "sa")
	b := newFakeSink("sb", 1)
	h.Connect(b)

	code := create(t, h, "sa", "A")
	require.True(t, join(t, h, "sb", code, "B").Success)
	drain(a)

	// B's single slot already holds the join notice
	require.Nil(t, h.Dispatch("sa", SendChat{RoomCode: code, UserID: "A", Username: "user-A", Text: "hello"}))
	flush(h)

	assert.True(t, b.isClosed())
	expectEvent(t, a, EventChatMessage)
	notice := payloadOf[battle.ChatMessage](t, expectEvent(t, a, EventChatMessage))
	assert.Equal(t, "user-B left the room", notice.Message)
	expectEvent(t, a, EventParticipantLeft)

	summary, _ := h.Summary(code)
	assert.Len(t, summary.Participants, 1)
}

func TestSummaryIsRedacted(t *testing.T) {
	h := newTestHub(t)
	connect(t, h, "sa")
	code := create(t, h, "sa", "A")

	summary, found := h.Summary(strings.ToLower(code))
	require.True(t, found)
	assert.Equal(t, code, summary.Code)
	assert.Equal(t, []battle.PublicParticipant{{UserID: "A", Username: "user-A", IsReady: true}}, summary.Participants)

	_, found = h.Summary("ZZZZZZ")
	assert.False(t, found)
}

func TestStopClosesSessions(t *testing.T) {
	h := NewHub(battle.NewStore(), presence.NewRegistry())
	go h.Run()

	a := newFakeSink("sa", 4)
	h.Connect(a)
	flush(h)

	h.Stop()
	assert.True(t, a.isClosed())
	assert.Nil(t, h.Dispatch("sa", CreateRoom{UserID: "A", Username: "user-A"}))
}

func countdownPending(h *Hub, code string) bool {
	reply := make(chan bool, 1)
	h.post(func() {
		_, ok := h.countdowns[code]
		reply <- ok
	})
	return <-reply
}
