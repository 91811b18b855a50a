// internal/database/match.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lastcard-club/lastcard/internal/engine"
	"github.com/lastcard-club/lastcard/internal/models"
)

// RoundSnapshot is the serialized deal of a round: the post-shuffle
// piles and every starting hand, keyed by user id. It is stored whole
// so a replay can reconstruct the deal.
type RoundSnapshot struct {
	DrawPile    []engine.Card            `json:"draw_pile"`
	DiscardPile []engine.Card            `json:"discard_pile"`
	Hands       map[string][]engine.Card `json:"hands"`
}

// UpsertInitialRoundState saves the snapshot into matches.initial_round_state.
func UpsertInitialRoundState(matchID uuid.UUID, snap RoundSnapshot) error {
	if DB == nil {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal round snapshot: %w", err)
	}
	q := `
		INSERT INTO matches (id, status, initial_round_state)
		VALUES ($1, 'in_progress', $2)
		ON CONFLICT (id) DO UPDATE SET initial_round_state = $2
	`
	_, err = DB.Exec(context.Background(), q, matchID, data)
	if err != nil {
		return fmt.Errorf("upsert initial round state: %w", err)
	}
	return nil
}

// RecordRoundResults persists the final finish order of a round and
// bumps each participant's lifetime tallies. The first entry of
// winners is the round winner.
func RecordRoundResults(ctx context.Context, matchID uuid.UUID, players []*models.Player, winners []uuid.UUID) error {
	if DB == nil {
		return nil
	}
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertMatch := `
			INSERT INTO matches (id, status)
			VALUES ($1, 'completed')
			ON CONFLICT (id) DO UPDATE SET status = 'completed'
		`
		if _, e := tx.Exec(ctx, upsertMatch, matchID); e != nil {
			return e
		}

		for _, pl := range players {
			place := 0
			for i, w := range winners {
				if w == pl.ID {
					place = i + 1
					break
				}
			}
			q := `
				INSERT INTO match_results (match_id, player_id, place, did_win)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (match_id, player_id)
				DO UPDATE SET place=$3, did_win=$4
			`
			if _, e := tx.Exec(ctx, q, matchID, pl.ID, place, place == 1); e != nil {
				return e
			}

			tally := `
				UPDATE users
				SET rounds_played = rounds_played + 1,
				    rounds_won = rounds_won + $2
				WHERE id = $1
			`
			won := 0
			if place == 1 {
				won = 1
			}
			if _, e := tx.Exec(ctx, tally, pl.ID, won); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx upsert match or results: %w", err)
	}
	return nil
}

// InsertMatchAction stores a single historian record.
func InsertMatchAction(ctx context.Context, matchID uuid.UUID, actionIndex int, actor uuid.UUID, actionType string, payload map[string]interface{}, ts int64) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal action payload: %w", err)
	}
	q := `
		INSERT INTO match_actions (match_id, action_index, actor_user_id, action_type, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5, to_timestamp($6 / 1000.0))
		ON CONFLICT (match_id, action_index) DO NOTHING
	`
	_, err = DB.Exec(ctx, q, matchID, actionIndex, actor, actionType, data, ts)
	return err
}
