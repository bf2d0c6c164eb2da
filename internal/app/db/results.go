package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"dojo/internal/app/battle"
	"dojo/internal/pkg/logx"
)

const insertResultSQL = `
INSERT INTO battle_results (
    room_code, problem_slug, problem_title, difficulty, duration_minutes,
    is_hardcore, entry_fee, winner_id, started_at, finished_at, transcript
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id`

var rankingColumns = []string{"battle_id", "rank", "user_id", "username", "solved", "solve_time_ms"}

// beginner is the part of pgxpool.Pool the store needs.
type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ResultStore writes finished battles into battle_results and battle_rankings.
type ResultStore struct {
	db     beginner
	logger zerolog.Logger
}

func NewResultStore(db beginner) *ResultStore {
	return &ResultStore{
		db:     db,
		logger: logx.Component("ResultStore"),
	}
}

// RecordBattle stores one result and its rankings in a single transaction.
// A result already stored for the same room and finish time is treated as recorded.
func (s *ResultStore) RecordBattle(ctx context.Context, res battle.Result) error {
	transcript, err := json.Marshal(res.Transcript)
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}

	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var battleID int64
		err := tx.QueryRow(ctx, insertResultSQL,
			res.RoomCode,
			res.Problem.Slug,
			res.Problem.Title,
			string(res.Problem.Difficulty),
			res.Duration,
			res.IsHardcore,
			res.EntryFee,
			res.WinnerID,
			res.StartedAt,
			res.FinishedAt,
			transcript,
		).Scan(&battleID)
		if err != nil {
			return err
		}

		rows := res.Rankings
		_, err = tx.CopyFrom(ctx, pgx.Identifier{"battle_rankings"}, rankingColumns,
			pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
				r := rows[i]
				return []any{battleID, r.Rank, r.UserID, r.Username, r.Solved, r.SolveTime}, nil
			}))
		return err
	})

	if IsUniqueViolation(err) {
		s.logger.Info().
			Str("room_code", res.RoomCode).
			Time("finished_at", res.FinishedAt).
			Msg("Battle result already recorded.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to record battle %s: %w", res.RoomCode, err)
	}

	s.logger.Info().
		Str("room_code", res.RoomCode).
		Str("winner_id", res.WinnerID).
		Int("rankings", len(res.Rankings)).
		Msg("Battle result recorded.")
	return nil
}
