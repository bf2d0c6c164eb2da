package battle

import (
	"cmp"
	"slices"
)

// Solve accepts the first solve of an in-progress race: the solver wins and the room
// finishes. Later solves, solves outside in_progress and repeat solves are ignored.
func (r *Room) Solve(userID string, solveTimeMs int64) (SolveOutcome, bool) {
	if r.Status != StatusInProgress {
		return SolveOutcome{}, false
	}

	p, ok := r.participants[userID]
	if !ok || p.Solved {
		return SolveOutcome{}, false
	}

	solveTime := max(solveTimeMs, 0)
	p.Solved = true
	p.SolveTime = &solveTime

	r.Status = StatusFinished
	r.FinishedAt = r.now()
	r.WinnerID = userID

	return SolveOutcome{
		Participant: *p,
		Rankings:    r.Rankings(),
		WinnerID:    userID,
	}, true
}

// Rankings orders participants solved-first, then by ascending solve time.
// Unsolved participants keep their join order at the bottom.
func (r *Room) Rankings() []Ranking {
	participants := r.Participants()

	slices.SortStableFunc(participants, func(a, b Participant) int {
		switch {
		case a.Solved && !b.Solved:
			return -1
		case !a.Solved && b.Solved:
			return 1
		case a.Solved && b.Solved:
			return cmp.Compare(*a.SolveTime, *b.SolveTime)
		default:
			return 0
		}
	})

	rankings := make([]Ranking, 0, len(participants))
	for i, p := range participants {
		rankings = append(rankings, Ranking{
			Rank:      i + 1,
			UserID:    p.UserID,
			Username:  p.Username,
			AvatarURL: p.AvatarURL,
			Solved:    p.Solved,
			SolveTime: p.SolveTime,
		})
	}

	return rankings
}

// Result builds the record of a finished room. It reports false until the room finishes.
func (r *Room) Result() (Result, bool) {
	if r.Status != StatusFinished {
		return Result{}, false
	}

	return Result{
		RoomCode:   r.Code,
		Problem:    r.Problem,
		Duration:   r.Duration,
		IsHardcore: r.IsHardcore,
		EntryFee:   r.EntryFee,
		WinnerID:   r.WinnerID,
		StartedAt:  r.StartTime,
		FinishedAt: r.FinishedAt,
		Rankings:   r.Rankings(),
		Transcript: r.Chat(),
	}, true
}
