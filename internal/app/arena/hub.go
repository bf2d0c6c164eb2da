package arena

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"dojo/internal/app/battle"
	"dojo/internal/app/presence"
	"dojo/internal/pkg/errs"
	"dojo/internal/pkg/logx"
	"dojo/internal/pkg/randx"
)

const (
	// inboxBuffer is the capacity of the hub's command queue.
	inboxBuffer = 1024

	// DefaultCountdown is the number of countdown ticks between start and race.
	DefaultCountdown = 3

	// DefaultTickInterval is the delay between countdown ticks.
	DefaultTickInterval = time.Second

	// recordTimeout bounds a single result recorder call.
	recordTimeout = 15 * time.Second
)

// Sink is one transport session able to receive encoded frames.
type Sink interface {
	SessionID() string

	// Deliver queues frame without blocking and reports false when the session cannot keep up.
	Deliver(frame []byte) bool

	// Close ends the session's outbound stream.
	Close()
}

// ResultRecorder receives every finished battle.
type ResultRecorder interface {
	RecordBattle(ctx context.Context, res battle.Result) error
}

// Stats is the process-wide load shown on the health endpoint.
type Stats struct {
	Rooms       int `json:"rooms"`
	OnlineUsers int `json:"onlineUsers"`
}

// Hub applies commands to the Room Store and fans the results out to sessions.
// All room mutation happens on the goroutine running Run.
type Hub struct {
	store    *battle.Store
	presence *presence.Registry

	// sessions, countdowns and slow are owned by the Run goroutine.
	sessions   map[string]Sink
	countdowns map[string]*countdown
	slow       map[string]struct{}

	countdownFrom int
	tickInterval  time.Duration
	recorders     []ResultRecorder

	// inbox serializes every operation onto the Run goroutine.
	inbox chan func()

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	// records tracks in-flight result recorder calls.
	records sync.WaitGroup

	logger zerolog.Logger
}

// Option customizes a Hub.
type Option func(*Hub)

// WithCountdown sets the number of countdown ticks and the delay between them.
func WithCountdown(from int, interval time.Duration) Option {
	return func(h *Hub) {
		if from > 0 {
			h.countdownFrom = from
		}
		if interval > 0 {
			h.tickInterval = interval
		}
	}
}

// WithRecorder adds a recorder that receives every finished battle.
func WithRecorder(rec ResultRecorder) Option {
	return func(h *Hub) {
		if rec != nil {
			h.recorders = append(h.recorders, rec)
		}
	}
}

// NewHub constructs a Hub over the given store and presence registry. Call Run to start it.
func NewHub(store *battle.Store, registry *presence.Registry, opts ...Option) *Hub {
	h := &Hub{
		store:         store,
		presence:      registry,
		sessions:      make(map[string]Sink),
		countdowns:    make(map[string]*countdown),
		slow:          make(map[string]struct{}),
		countdownFrom: DefaultCountdown,
		tickInterval:  DefaultTickInterval,
		inbox:         make(chan func(), inboxBuffer),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
		logger:        logx.Component("Hub"),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Run processes queued operations until Stop is called.
func (h *Hub) Run() {
	h.logger.Info().
		Int("countdown", h.countdownFrom).
		Dur("tick_interval", h.tickInterval).
		Int("recorders", len(h.recorders)).
		Msg("Hub loop started.")

	defer h.shutdown()

	for {
		select {
		case fn := <-h.inbox:
			fn()
			h.evictSlow()

		case <-h.stop:
			return
		}
	}
}

// shutdown cancels pending countdowns and closes every session.
func (h *Hub) shutdown() {
	for code := range h.countdowns {
		h.cancelCountdown(code)
	}

	for id, sink := range h.sessions {
		sink.Close()
		delete(h.sessions, id)
	}

	close(h.done)
	h.logger.Info().Msg("Hub loop stopped.")
}

// Stop ends the Run loop and waits for in-flight result recorders.
// It must only be called once Run has been started.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})

	<-h.done
	h.records.Wait()
}

// post queues fn for the Run goroutine. It reports false once the hub is stopping.
func (h *Hub) post(fn func()) bool {
	select {
	case <-h.stop:
		return false
	default:
	}

	select {
	case h.inbox <- fn:
		return true
	case <-h.stop:
		return false
	}
}

// Connect registers a session so it can receive frames.
func (h *Hub) Connect(sink Sink) {
	h.post(func() {
		h.sessions[sink.SessionID()] = sink
		h.logger.Debug().
			Str("session_id", sink.SessionID()).
			Int("sessions", len(h.sessions)).
			Msg("Session connected.")
	})
}

// Disconnect removes a session, its presence entries and its room memberships.
func (h *Hub) Disconnect(sessionID string) {
	h.post(func() {
		h.disconnect(sessionID)
	})
}

// Dispatch applies cmd on behalf of sessionID and waits for its acknowledgment.
// Commands that are not acknowledged return nil, as does a stopped hub.
func (h *Hub) Dispatch(sessionID string, cmd Command) *Ack {
	reply := make(chan *Ack, 1)

	if !h.post(func() { reply <- h.apply(sessionID, cmd) }) {
		return nil
	}

	select {
	case ack := <-reply:
		return ack
	case <-h.done:
		return nil
	}
}

// Summary returns the redacted view of the room with the given code.
func (h *Hub) Summary(code string) (battle.RoomSummary, bool) {
	type answer struct {
		summary battle.RoomSummary
		found   bool
	}
	reply := make(chan answer, 1)

	posted := h.post(func() {
		room := h.store.Get(randx.NormalizeRoomCode(code))
		if room == nil {
			reply <- answer{}
			return
		}
		reply <- answer{summary: room.Summary(), found: true}
	})
	if !posted {
		return battle.RoomSummary{}, false
	}

	select {
	case a := <-reply:
		return a.summary, a.found
	case <-h.done:
		return battle.RoomSummary{}, false
	}
}

// Stats reports the number of live rooms and online users.
func (h *Hub) Stats() Stats {
	return Stats{
		Rooms:       h.store.Len(),
		OnlineUsers: h.presence.Len(),
	}
}

// apply routes one command to its handler.
func (h *Hub) apply(sessionID string, cmd Command) *Ack {
	switch c := cmd.(type) {
	case PresenceOnline:
		h.presenceOnline(sessionID, c)
		return nil
	case PresenceOffline:
		h.presenceOffline(c)
		return nil
	case CreateRoom:
		return h.createRoom(sessionID, c)
	case JoinRoom:
		return h.joinRoom(sessionID, c)
	case SetReady:
		h.setReady(c)
		return nil
	case StartBattle:
		return h.startBattle(c)
	case ReportSolved:
		h.reportSolved(c)
		return nil
	case SendChat:
		h.sendChat(c)
		return nil
	case SuggestProblem:
		return h.suggestProblem(c)
	case VoteProblem:
		return h.voteProblem(c)
	case LockProblem:
		return h.lockProblem(c)
	case LeaveRoom:
		h.leaveRoom(c)
		return nil
	case SendInvite:
		h.sendInvite(c)
		return nil
	default:
		name := fmt.Sprintf("%T", cmd)
		h.logger.Error().Str("command", name).Msg("No handler for command.")
		return rejected(errs.NewError(errs.ErrUnsupportedCommand, name))
	}
}

// disconnect drops the session and applies a full departure for every room it carried.
func (h *Hub) disconnect(sessionID string) {
	if sink, ok := h.sessions[sessionID]; ok {
		delete(h.sessions, sessionID)
		sink.Close()
	}
	delete(h.slow, sessionID)

	if removed := h.presence.RemoveSession(sessionID); len(removed) > 0 {
		h.broadcastPresence()
	}

	for _, room := range h.store.Rooms() {
		for _, userID := range room.UsersOnSession(sessionID) {
			h.depart(room, userID)
		}
	}

	h.logger.Debug().
		Str("session_id", sessionID).
		Int("sessions", len(h.sessions)).
		Msg("Session disconnected.")
}

// evictSlow disconnects sessions whose send queue overflowed during the last operation.
func (h *Hub) evictSlow() {
	for len(h.slow) > 0 {
		for sessionID := range h.slow {
			delete(h.slow, sessionID)
			h.disconnect(sessionID)
		}
	}
}

// record hands a finished room's result to every recorder in the background.
func (h *Hub) record(room *battle.Room) {
	res, ok := room.Result()
	if !ok || len(h.recorders) == 0 {
		return
	}

	for _, rec := range h.recorders {
		h.records.Add(1)

		go func() {
			defer h.records.Done()

			ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
			defer cancel()

			if err := rec.RecordBattle(ctx, res); err != nil {
				h.logger.Error().
					Err(err).
					Str("room_code", res.RoomCode).
					Str("recorder", fmt.Sprintf("%T", rec)).
					Msg("Failed to record battle result.")
			}
		}()
	}
}
