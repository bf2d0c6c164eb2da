package arena

import (
	"time"

	"dojo/internal/app/battle"
)

// countdown is the pending starting → in_progress transition of one room.
type countdown struct {
	code      string
	remaining int
	timer     *time.Timer
}

// beginCountdown announces the first countdown value and schedules the next tick.
func (h *Hub) beginCountdown(room *battle.Room) {
	task := &countdown{code: room.Code, remaining: h.countdownFrom}
	h.countdowns[room.Code] = task

	h.broadcast(room, "", EventStarting, StartingPayload{Countdown: task.remaining})
	h.scheduleTick(task)
}

func (h *Hub) scheduleTick(task *countdown) {
	task.timer = time.AfterFunc(h.tickInterval, func() {
		h.post(func() { h.tick(task) })
	})
}

// tick advances a countdown; the last tick begins the race.
func (h *Hub) tick(task *countdown) {
	if h.countdowns[task.code] != task {
		return
	}

	room := h.store.Get(task.code)
	if room == nil {
		delete(h.countdowns, task.code)
		return
	}

	task.remaining--
	if task.remaining > 0 {
		h.broadcast(room, "", EventStarting, StartingPayload{Countdown: task.remaining})
		h.scheduleTick(task)
		return
	}

	delete(h.countdowns, task.code)

	if !room.BeginRace() {
		return
	}

	h.broadcast(room, "", EventStarted, StartedPayload{
		Problem:   room.Problem,
		StartTime: room.StartTime.UnixMilli(),
		Duration:  room.Duration,
	})

	h.logger.Info().
		Str("room_code", room.Code).
		Str("problem", room.Problem.Slug).
		Int("participants", room.Size()).
		Msg("Race started.")
}

// cancelCountdown drops the pending transition of a room, if any.
func (h *Hub) cancelCountdown(code string) {
	task, ok := h.countdowns[code]
	if !ok {
		return
	}

	task.timer.Stop()
	delete(h.countdowns, code)

	h.logger.Info().Str("room_code", code).Msg("Countdown cancelled.")
}
